package services

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/gorilla/websocket"
)

// Session is one connected participant on a round's channel.
type Session struct {
	ID      string
	userID  uint
	roundID uint
	conn    *websocket.Conn
	engine  *Engine
	send    chan []byte
	once    sync.Once
}

func NewSession(id string, userID, roundID uint, conn *websocket.Conn, engine *Engine) *Session {
	return &Session{
		ID:      id,
		userID:  userID,
		roundID: roundID,
		conn:    conn,
		engine:  engine,
		send:    make(chan []byte, 32),
	}
}

func (s *Session) Close() {
	s.once.Do(func() {
		close(s.send)
		if s.conn != nil {
			s.conn.Close()
		}
	})
}

// Deliver queues payload for the write pump without blocking. Reports whether
// the message was accepted.
func (s *Session) Deliver(payload []byte) bool {
	defer func() {
		// send may already be closed by a concurrent Leave
		recover()
	}()
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// --------------------
// Session read/write pumps
// --------------------
func (s *Session) readPump() {
	defer func() {
		s.engine.Registry().Leave(s.ID, s.roundID)
		if s.conn != nil {
			s.conn.Close()
		}
	}()

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("[Session %s] disconnected normally", s.ID)
			} else {
				logger.Errorf("[Session %s] read error: %v", s.ID, err)
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *Session) handleMessage(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Session %s] recovered from panic: %v", s.ID, r)
		}
	}()

	var data map[string]any
	if err := json.Unmarshal(msg, &data); err != nil {
		logger.Errorf("[Session %s] invalid message: %v", s.ID, err)
		return
	}

	switch data["action"] {
	case "claim":
		amount, err := s.engine.SubmitClaim(s.userID, s.roundID)
		if err != nil {
			s.reply(map[string]any{
				"type":   "claim_result",
				"ok":     false,
				"reason": game.Reason(err),
			})
			if !isExpectedClaimError(err) {
				logger.Errorf("[Session %s] claim failed: %v", s.ID, err)
			}
			return
		}
		s.reply(map[string]any{
			"type":       "claim_result",
			"ok":         true,
			"win_amount": amount,
		})
	case "snapshot":
		snap, err := s.engine.Snapshot(s.roundID)
		if err != nil {
			logger.Errorf("[Session %s] snapshot failed: %v", s.ID, err)
			return
		}
		s.reply(snap)
	default:
		logger.Debugf("[Session %s] unknown action: %v", s.ID, data["action"])
	}
}

func (s *Session) reply(payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if !s.Deliver(b) {
		logger.Errorf("[Session %s] dropping reply", s.ID)
	}
}

func (s *Session) writePump() {
	defer func() {
		if s.conn != nil {
			s.conn.Close()
		}
	}()
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Errorf("[Session %s] write error: %v", s.ID, err)
			return
		}
	}
}

func isExpectedClaimError(err error) bool {
	return errors.Is(err, game.ErrNotAWinningCard) ||
		errors.Is(err, game.ErrRoundAlreadyWon) ||
		errors.Is(err, game.ErrAlreadyResolved) ||
		errors.Is(err, game.ErrNoCardFound) ||
		errors.Is(err, game.ErrRoundNotDrawing)
}
