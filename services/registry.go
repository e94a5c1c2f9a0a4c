package services

import (
	"encoding/json"
	"sync"

	"github.com/bingoroom/bingo-backend/utils/logger"
)

// Registry tracks which sessions are subscribed to which round's channel.
// Broadcasts are scoped to the round's group; sessions in other rounds never
// see them.
type Registry struct {
	mu     sync.RWMutex
	rounds map[uint]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{rounds: make(map[uint]map[string]*Session)}
}

// Join adds the session to the round's group and immediately hands it the
// snapshot so late joiners see the full ordered history.
func (r *Registry) Join(s *Session, roundID uint, snapshot []byte) {
	r.mu.Lock()
	group, ok := r.rounds[roundID]
	if !ok {
		group = make(map[string]*Session)
		r.rounds[roundID] = group
	}
	if old, exists := group[s.ID]; exists {
		old.Close()
	}
	group[s.ID] = s
	total := len(group)
	r.mu.Unlock()

	if snapshot != nil {
		s.Deliver(snapshot)
	}
	logger.Infof("[Round %d] session %s joined (total=%d)", roundID, s.ID, total)
}

// Leave removes the session from the round's group. Idempotent; connection
// loss funnels through here as an implicit leave.
func (r *Registry) Leave(sessionID string, roundID uint) {
	r.mu.Lock()
	group, ok := r.rounds[roundID]
	if ok {
		if s, exists := group[sessionID]; exists {
			delete(group, sessionID)
			s.Close()
		}
		if len(group) == 0 {
			delete(r.rounds, roundID)
		}
	}
	r.mu.Unlock()
}

// Broadcast delivers payload to every session joined to the round. A session
// whose send buffer is full gets the message dropped and logged; it will
// recover the sequence on its next snapshot request.
func (r *Registry) Broadcast(roundID uint, payload []byte) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.rounds[roundID]))
	for _, s := range r.rounds[roundID] {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if !s.Deliver(payload) {
			logger.Errorf("[Round %d] dropping event for session %s", roundID, s.ID)
		}
	}
}

// BroadcastEvent marshals and broadcasts a typed event.
func (r *Registry) BroadcastEvent(roundID uint, event any) {
	b, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[Round %d] marshal event: %v", roundID, err)
		return
	}
	r.Broadcast(roundID, b)
}

// Count returns the number of sessions joined to the round.
func (r *Registry) Count(roundID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rounds[roundID])
}
