package services

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/bingoroom/bingo-backend/utils/logger"
	"github.com/google/uuid"
)

const DefaultDrawInterval = 3 * time.Second

// Engine owns the runtime state of every round: the draw loops and the
// claim arbitration. All per-round state lives in a roundRun addressable by
// round id, so rounds draw concurrently without cross-contamination.
type Engine struct {
	store    Store
	registry *Registry
	interval time.Duration

	mu     sync.Mutex
	rounds map[uint]*roundRun
}

// roundRun is the mutable state of one round. Its mutex is the per-round
// serialization point: the draw loop's append and the claim's check-then-set
// both run under it, so no draw lands after logical completion and two
// claims can never both win.
type roundRun struct {
	mu        sync.Mutex
	drawn     []string
	remaining []string
	drawing   bool
	completed bool
	winner    *uint
	cancel    chan struct{}
}

type NumberDrawnEvent struct {
	Type         string   `json:"type"`
	RoundID      uint     `json:"round_id"`
	Number       string   `json:"number"`
	DrawnNumbers []string `json:"drawn_numbers"`
}

type RoundEndedEvent struct {
	Type         string  `json:"type"`
	RoundID      uint    `json:"round_id"`
	WinnerUserID *uint   `json:"winner_user_id"`
	WinAmount    float64 `json:"win_amount"`
}

type Snapshot struct {
	Type         string     `json:"type"`
	RoundID      uint       `json:"round_id"`
	State        game.State `json:"state"`
	IsDrawing    bool       `json:"is_drawing"`
	DrawnNumbers []string   `json:"drawn_numbers"`
	WinnerUserID *uint      `json:"winner_user_id"`
}

func NewEngine(store Store, registry *Registry, interval time.Duration) *Engine {
	if interval <= 0 {
		interval = DefaultDrawInterval
	}
	return &Engine{
		store:    store,
		registry: registry,
		interval: interval,
		rounds:   make(map[uint]*roundRun),
	}
}

func (e *Engine) Registry() *Registry {
	return e.registry
}

// run returns the round's runtime state, creating it from the persisted
// round on first access so a restarted process resumes mid-sequence.
func (e *Engine) run(round *models.Round) *roundRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rounds[round.ID]
	if !ok {
		r = &roundRun{
			drawn:  DecodeSequence(round.NumbersJSON),
			winner: round.WinnerUserID,
			cancel: make(chan struct{}),
		}
		r.completed = r.winner != nil || len(r.drawn) >= game.PoolSize
		// Finished rounds are a derived view of the persisted row; only
		// live rounds stay resident.
		if !r.completed {
			e.rounds[round.ID] = r
		}
	}
	return r
}

// evict drops a finished round's runtime state. A later access rebuilds it
// from the persisted round, which now derives Completed.
func (e *Engine) evict(roundID uint) {
	e.mu.Lock()
	delete(e.rounds, roundID)
	e.mu.Unlock()
}

// EnsureDrawing starts the round's draw loop if the round has entered the
// Drawing state. Starting a loop for a round already drawing is a no-op.
func (e *Engine) EnsureDrawing(roundID uint) error {
	round, err := e.store.GetRound(roundID)
	if err != nil {
		return err
	}
	r := e.run(round)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawing || r.completed {
		return nil
	}
	if game.DeriveState(round, len(r.drawn), time.Now()) != game.StateDrawing {
		return nil
	}

	r.drawing = true
	r.remaining = shuffledRemaining(r.drawn)
	go e.drawLoop(roundID, r)
	logger.Infof("[Round %d] draw loop started (%d already drawn)", roundID, len(r.drawn))
	return nil
}

// shuffledRemaining returns the undrawn pool in random order. Popping it
// front-to-back is a uniform draw without replacement.
func shuffledRemaining(drawn []string) []string {
	taken := game.DrawnSet(drawn)
	remaining := make([]string, 0, game.PoolSize-len(drawn))
	for n := 1; n <= game.PoolSize; n++ {
		s := game.FormatNumber(n)
		if !taken[s] {
			remaining = append(remaining, s)
		}
	}
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	r.Shuffle(len(remaining), func(i, j int) { remaining[i], remaining[j] = remaining[j], remaining[i] })
	return remaining
}

func (e *Engine) drawLoop(roundID uint, r *roundRun) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("[Round %d] draw loop panic: %v", roundID, rec)
		}
	}()

	for {
		select {
		case <-r.cancel:
			return
		case <-time.After(e.interval):
		}

		r.mu.Lock()
		if r.completed {
			r.mu.Unlock()
			return
		}
		number := r.remaining[0]
		r.remaining = r.remaining[1:]
		r.drawn = append(r.drawn, number)
		sequence := append([]string(nil), r.drawn...)
		exhausted := len(r.drawn) >= game.PoolSize
		if exhausted {
			r.completed = true
			r.drawing = false
		}

		// Persist and broadcast under the round lock so a concurrent claim's
		// terminal event cannot overtake this draw. Both writes are short;
		// delivery itself never blocks (buffered sends, drop on full).
		if err := e.store.SaveDrawnNumbers(roundID, sequence); err != nil {
			logger.Errorf("[Round %d] persist sequence: %v", roundID, err)
		}
		e.registry.BroadcastEvent(roundID, NumberDrawnEvent{
			Type:         "number_drawn",
			RoundID:      roundID,
			Number:       number,
			DrawnNumbers: sequence,
		})
		if exhausted {
			if err := e.store.RetireRound(roundID); err != nil {
				logger.Errorf("[Round %d] retire round: %v", roundID, err)
			}
			logger.Infof("[Round %d] pool exhausted, round ended without winner", roundID)
			e.registry.BroadcastEvent(roundID, RoundEndedEvent{
				Type:    "round_ended",
				RoundID: roundID,
			})
		}
		r.mu.Unlock()

		if exhausted {
			e.evict(roundID)
			return
		}
	}
}

// FinalizeCard validates a user's cells inside the setup window and persists
// them exactly once. The store write is conditional on the card still being
// unpopulated, so of two concurrent finalizes the loser gets
// game.ErrCardAlreadyFinal instead of silently overwriting the first.
func (e *Engine) FinalizeCard(userID, roundID uint, rawCells []string) (uint, []string, error) {
	round, err := e.store.GetRound(roundID)
	if err != nil {
		return 0, nil, err
	}
	drawn := DecodeSequence(round.NumbersJSON)
	if err := game.CheckSetup(round, len(drawn), time.Now()); err != nil {
		return 0, nil, err
	}

	card, err := e.store.GetCard(userID, roundID)
	if err != nil {
		return 0, nil, err
	}
	if card.Finalized {
		return 0, nil, game.ErrCardAlreadyFinal
	}

	cells, err := game.NormalizeCard(rawCells)
	if err != nil {
		return 0, nil, err
	}
	if err := e.store.FinalizeCard(card.ID, cells); err != nil {
		return 0, nil, err
	}
	logger.Infof("[Round %d] card %d finalized for user %d", roundID, card.ID, userID)
	return card.ID, cells, nil
}

// SubmitClaim is the authoritative win check. It re-evaluates the pattern
// server-side against the drawn sequence and serializes the check-then-set
// per round, so exactly one structurally valid claim can win.
func (e *Engine) SubmitClaim(userID, roundID uint) (float64, error) {
	round, err := e.store.GetRound(roundID)
	if err != nil {
		return 0, err
	}
	r := e.run(round)

	r.mu.Lock()
	defer r.mu.Unlock()

	card, err := e.store.GetCard(userID, roundID)
	if err != nil {
		return 0, err
	}
	if card.ClaimStatus != models.ClaimUnset {
		return 0, game.ErrAlreadyResolved
	}

	won := r.completed && r.winner != nil
	if !won && game.DeriveState(round, len(r.drawn), time.Now()) != game.StateDrawing {
		return 0, game.ErrRoundNotDrawing
	}

	cells := DecodeSequence(card.CellsJSON)
	if !game.HasWinningLine(cells, game.DrawnSet(r.drawn)) {
		e.recordRejection(userID, roundID, card.ID, game.ErrNotAWinningCard)
		return 0, game.ErrNotAWinningCard
	}
	if won {
		e.recordRejection(userID, roundID, card.ID, game.ErrRoundAlreadyWon)
		return 0, game.ErrRoundAlreadyWon
	}

	claim := &models.Claim{
		Reference:   uuid.NewString(),
		UserID:      userID,
		RoundID:     roundID,
		CardID:      card.ID,
		Accepted:    true,
		PrizeAmount: round.PrizeAmount,
		Status:      models.TxPending,
	}
	if err := e.store.RecordWinner(round, card, claim); err != nil {
		if errors.Is(err, game.ErrRoundAlreadyWon) {
			// Another process recorded a winner between our read and our
			// write. Sync the runtime view, winner included, so later valid
			// claims here are rejected as already won, not as a state error.
			r.completed = true
			r.drawing = false
			if fresh, ferr := e.store.GetRound(roundID); ferr == nil {
				r.winner = fresh.WinnerUserID
			}
			e.recordRejection(userID, roundID, card.ID, game.ErrRoundAlreadyWon)
			e.evict(roundID)
		}
		return 0, err
	}

	r.completed = true
	r.drawing = false
	r.winner = &userID
	close(r.cancel)

	logger.Infof("[Round %d] user %d wins %.2f", roundID, userID, round.PrizeAmount)
	e.registry.BroadcastEvent(roundID, RoundEndedEvent{
		Type:         "round_ended",
		RoundID:      roundID,
		WinnerUserID: &userID,
		WinAmount:    round.PrizeAmount,
	})
	e.evict(roundID)
	return round.PrizeAmount, nil
}

func (e *Engine) recordRejection(userID, roundID, cardID uint, cause error) {
	claim := &models.Claim{
		Reference: uuid.NewString(),
		UserID:    userID,
		RoundID:   roundID,
		CardID:    cardID,
		Accepted:  false,
		Reason:    game.Reason(cause),
		Status:    models.TxRejected,
	}
	if err := e.store.CreateClaim(claim); err != nil {
		logger.Errorf("[Round %d] persist rejected claim for user %d: %v", roundID, userID, err)
	}
}

// Snapshot returns the round's current derived state and full drawn sequence.
// It is the catch-up path for late joiners and the polling fallback; the
// broadcast channel stays the primary ordered transport.
func (e *Engine) Snapshot(roundID uint) (*Snapshot, error) {
	round, err := e.store.GetRound(roundID)
	if err != nil {
		return nil, err
	}
	r := e.run(round)

	r.mu.Lock()
	sequence := append([]string(nil), r.drawn...)
	drawing := r.drawing
	winner := r.winner
	completed := r.completed
	r.mu.Unlock()

	state := game.DeriveState(round, len(sequence), time.Now())
	if completed {
		state = game.StateCompleted
	} else if state == game.StateDrawing {
		// A status query is also a transition trigger.
		if err := e.EnsureDrawing(roundID); err != nil {
			logger.Errorf("[Round %d] ensure drawing: %v", roundID, err)
		}
	}

	return &Snapshot{
		Type:         "snapshot",
		RoundID:      roundID,
		State:        state,
		IsDrawing:    drawing,
		DrawnNumbers: sequence,
		WinnerUserID: winner,
	}, nil
}

// RunScheduler sweeps for rounds that crossed their play time with no
// observer online to trigger them. Stops when stop is closed.
func (e *Engine) RunScheduler(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ids, err := e.store.ListDrawable(time.Now())
			if err != nil {
				logger.Errorf("[Scheduler] list drawable rounds: %v", err)
				continue
			}
			for _, id := range ids {
				if err := e.EnsureDrawing(id); err != nil {
					logger.Errorf("[Scheduler] round %d: %v", id, err)
				}
			}
		}
	}
}
