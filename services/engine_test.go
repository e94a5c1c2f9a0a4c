package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bingoroom/bingo-backend/game"
	"github.com/bingoroom/bingo-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// memStore is the in-memory Store fake the engine tests run against.
type memStore struct {
	mu     sync.Mutex
	rounds map[uint]*models.Round
	cards  map[[2]uint]*models.Card
	claims []*models.Claim
}

func newMemStore() *memStore {
	return &memStore{
		rounds: make(map[uint]*models.Round),
		cards:  make(map[[2]uint]*models.Card),
	}
}

func (m *memStore) addRound(r *models.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rounds[r.ID] = r
}

func (m *memStore) addCard(c *models.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[[2]uint{c.UserID, c.RoundID}] = c
}

func (m *memStore) GetRound(roundID uint) (*models.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return nil, game.ErrRoundNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetCard(userID, roundID uint) (*models.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[[2]uint{userID, roundID}]
	if !ok {
		return nil, game.ErrNoCardFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) SaveDrawnNumbers(roundID uint, sequence []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := json.Marshal(sequence)
	if r, ok := m.rounds[roundID]; ok {
		r.NumbersJSON = datatypes.JSON(b)
	}
	return nil
}

func (m *memStore) FinalizeCard(cardID uint, cells []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cards {
		if c.ID != cardID {
			continue
		}
		if c.Finalized {
			return game.ErrCardAlreadyFinal
		}
		b, _ := json.Marshal(cells)
		c.CellsJSON = datatypes.JSON(b)
		c.Finalized = true
		return nil
	}
	return game.ErrNoCardFound
}

func (m *memStore) RecordWinner(round *models.Round, card *models.Card, claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[round.ID]
	if !ok {
		return game.ErrRoundNotFound
	}
	if r.WinnerUserID != nil {
		return game.ErrRoundAlreadyWon
	}
	uid := card.UserID
	r.WinnerUserID = &uid
	r.IsActive = false
	if c, ok := m.cards[[2]uint{card.UserID, card.RoundID}]; ok {
		c.IsWinner = true
		c.ClaimStatus = models.ClaimPending
		c.WinAmount = claim.PrizeAmount
	}
	m.claims = append(m.claims, claim)
	return nil
}

func (m *memStore) CreateClaim(claim *models.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, claim)
	return nil
}

func (m *memStore) RetireRound(roundID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rounds[roundID]; ok {
		r.IsActive = false
	}
	return nil
}

func (m *memStore) ListDrawable(now time.Time) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for id, r := range m.rounds {
		if r.IsActive && r.WinnerUserID == nil && !r.PlayTime.After(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) acceptedClaims() []*models.Claim {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Claim
	for _, c := range m.claims {
		if c.Accepted {
			out = append(out, c)
		}
	}
	return out
}

// drawingRound builds a round whose play time has already passed.
func drawingRound(id uint, drawn []string) *models.Round {
	now := time.Now()
	r := &models.Round{
		ID:                id,
		Title:             fmt.Sprintf("round %d", id),
		RegistrationOpen:  now.Add(-3 * time.Hour),
		RegistrationClose: now.Add(-2 * time.Hour),
		PlayTime:          now.Add(-time.Hour),
		PrizeAmount:       500,
		IsActive:          true,
	}
	if drawn != nil {
		b, _ := json.Marshal(drawn)
		r.NumbersJSON = datatypes.JSON(b)
	}
	return r
}

// lobbyRound builds a round inside its card-setup window: registration just
// closed, play time still minutes away.
func lobbyRound(id uint) *models.Round {
	now := time.Now()
	return &models.Round{
		ID:                id,
		Title:             fmt.Sprintf("round %d", id),
		RegistrationOpen:  now.Add(-time.Hour),
		RegistrationClose: now.Add(-10 * time.Second),
		PlayTime:          now.Add(10 * time.Minute),
		PrizeAmount:       500,
		IsActive:          true,
	}
}

// winningCells returns a card whose top row is exactly the given five numbers.
func winningCells(row []string) []string {
	cells := make([]string, game.CellCount)
	copy(cells, row)
	filler := 80
	for i := 5; i < game.CellCount; i++ {
		if i == game.FreeIndex {
			cells[i] = game.FreeCell
			continue
		}
		cells[i] = game.FormatNumber(filler)
		filler++
	}
	return cells
}

func cardFor(userID, roundID uint, cells []string) *models.Card {
	b, _ := json.Marshal(cells)
	return &models.Card{
		ID:        userID * 100,
		UserID:    userID,
		RoundID:   roundID,
		CellsJSON: datatypes.JSON(b),
		Finalized: true,
	}
}

func newTestEngine(store Store, interval time.Duration) *Engine {
	return NewEngine(store, NewRegistry(), interval)
}

// resident reports whether a round's runtime state is still held in memory.
func (e *Engine) resident(roundID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.rounds[roundID]
	return ok
}

func TestSubmitClaimAccepted(t *testing.T) {
	store := newMemStore()
	drawn := []string{"01", "02", "03", "04", "05"}
	store.addRound(drawingRound(1, drawn))
	store.addCard(cardFor(10, 1, winningCells(drawn)))

	e := newTestEngine(store, time.Hour)
	amount, err := e.SubmitClaim(10, 1)
	require.NoError(t, err)
	assert.Equal(t, 500.0, amount)

	accepted := store.acceptedClaims()
	require.Len(t, accepted, 1)
	assert.Equal(t, uint(10), accepted[0].UserID)
	assert.Equal(t, models.TxPending, accepted[0].Status)

	card, err := store.GetCard(10, 1)
	require.NoError(t, err)
	assert.True(t, card.IsWinner)
	assert.Equal(t, models.ClaimPending, card.ClaimStatus)
	assert.Equal(t, 500.0, card.WinAmount)

	snap, err := e.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, game.StateCompleted, snap.State)
	require.NotNil(t, snap.WinnerUserID)
	assert.Equal(t, uint(10), *snap.WinnerUserID)

	// A won round is retired: out of the scheduler sweep and out of the
	// engine's resident set.
	round, err := store.GetRound(1)
	require.NoError(t, err)
	assert.False(t, round.IsActive)
	ids, err := store.ListDrawable(time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, e.resident(1))
}

func TestSubmitClaimRejections(t *testing.T) {
	store := newMemStore()
	drawn := []string{"01", "02", "03", "04"}
	store.addRound(drawingRound(1, drawn))
	store.addCard(cardFor(10, 1, winningCells([]string{"01", "02", "03", "04", "05"})))
	e := newTestEngine(store, time.Hour)

	t.Run("no card", func(t *testing.T) {
		_, err := e.SubmitClaim(99, 1)
		assert.ErrorIs(t, err, game.ErrNoCardFound)
	})

	t.Run("round not found", func(t *testing.T) {
		_, err := e.SubmitClaim(10, 42)
		assert.ErrorIs(t, err, game.ErrRoundNotFound)
	})

	t.Run("four of five is not a win", func(t *testing.T) {
		_, err := e.SubmitClaim(10, 1)
		assert.ErrorIs(t, err, game.ErrNotAWinningCard)
	})

	t.Run("unfinalized card cannot win", func(t *testing.T) {
		store.addCard(&models.Card{ID: 1100, UserID: 11, RoundID: 1})
		_, err := e.SubmitClaim(11, 1)
		assert.ErrorIs(t, err, game.ErrNotAWinningCard)
	})

	t.Run("claim before play time", func(t *testing.T) {
		future := drawingRound(2, nil)
		future.PlayTime = time.Now().Add(time.Hour)
		store.addRound(future)
		store.addCard(cardFor(10, 2, winningCells([]string{"01", "02", "03", "04", "05"})))
		_, err := e.SubmitClaim(10, 2)
		assert.ErrorIs(t, err, game.ErrRoundNotDrawing)
	})

	t.Run("duplicate claim from same card", func(t *testing.T) {
		store.addRound(drawingRound(3, []string{"01", "02", "03", "04", "05"}))
		winner := cardFor(12, 3, winningCells([]string{"01", "02", "03", "04", "05"}))
		store.addCard(winner)
		_, err := e.SubmitClaim(12, 3)
		require.NoError(t, err)
		_, err = e.SubmitClaim(12, 3)
		assert.ErrorIs(t, err, game.ErrAlreadyResolved)
	})
}

func TestExactlyOneWinner(t *testing.T) {
	const (
		total    = 20
		eligible = 8
	)
	drawn := []string{"01", "02", "03", "04", "05"}

	store := newMemStore()
	store.addRound(drawingRound(1, drawn))
	for u := uint(1); u <= total; u++ {
		if u <= eligible {
			store.addCard(cardFor(u, 1, winningCells(drawn)))
		} else {
			store.addCard(cardFor(u, 1, winningCells([]string{"06", "07", "08", "09", "10"})))
		}
	}

	e := newTestEngine(store, time.Hour)

	type result struct {
		user uint
		err  error
	}
	results := make(chan result, total)
	var wg sync.WaitGroup
	for u := uint(1); u <= total; u++ {
		wg.Add(1)
		go func(user uint) {
			defer wg.Done()
			_, err := e.SubmitClaim(user, 1)
			results <- result{user, err}
		}(u)
	}
	wg.Wait()
	close(results)

	var winners []uint
	var alreadyWon, notWinning int
	for r := range results {
		switch {
		case r.err == nil:
			winners = append(winners, r.user)
		case r.err == game.ErrRoundAlreadyWon:
			alreadyWon++
		case r.err == game.ErrNotAWinningCard:
			notWinning++
		default:
			t.Fatalf("unexpected error for user %d: %v", r.user, r.err)
		}
	}

	require.Len(t, winners, 1, "exactly one claim must succeed")
	assert.LessOrEqual(t, winners[0], uint(eligible), "the winner must be structurally eligible")
	assert.Equal(t, eligible-1, alreadyWon, "other eligible claims are rejected as already won")
	assert.Equal(t, total-eligible, notWinning)

	round, err := store.GetRound(1)
	require.NoError(t, err)
	require.NotNil(t, round.WinnerUserID)
	assert.Equal(t, winners[0], *round.WinnerUserID)
	assert.Len(t, store.acceptedClaims(), 1)
}

func TestDrawLoopUniqueAndMonotonic(t *testing.T) {
	store := newMemStore()
	store.addRound(drawingRound(1, nil))
	e := newTestEngine(store, 5*time.Millisecond)

	require.NoError(t, e.EnsureDrawing(1))
	// Idempotent start: a second call must not spawn a second loop.
	require.NoError(t, e.EnsureDrawing(1))

	time.Sleep(60 * time.Millisecond)
	first, err := e.Snapshot(1)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	second, err := e.Snapshot(1)
	require.NoError(t, err)

	assert.NotEmpty(t, first.DrawnNumbers)
	assert.Greater(t, len(second.DrawnNumbers), len(first.DrawnNumbers))
	assert.LessOrEqual(t, len(second.DrawnNumbers), game.PoolSize)

	// Prefix consistency: an early snapshot is a prefix of a later one.
	assert.Equal(t, first.DrawnNumbers, second.DrawnNumbers[:len(first.DrawnNumbers)])

	seen := make(map[string]bool)
	for _, n := range second.DrawnNumbers {
		assert.False(t, seen[n], "duplicate draw %q", n)
		seen[n] = true
	}
}

func TestDrawLoopResumesPersistedSequence(t *testing.T) {
	prior := []string{"10", "20", "30"}
	store := newMemStore()
	store.addRound(drawingRound(1, prior))
	e := newTestEngine(store, 5*time.Millisecond)

	require.NoError(t, e.EnsureDrawing(1))
	time.Sleep(40 * time.Millisecond)

	snap, err := e.Snapshot(1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(snap.DrawnNumbers), 3)
	assert.Equal(t, prior, snap.DrawnNumbers[:3])

	seen := make(map[string]bool)
	for _, n := range snap.DrawnNumbers {
		assert.False(t, seen[n], "resumed loop re-drew %q", n)
		seen[n] = true
	}
}

func TestDrawLoopExhaustsPool(t *testing.T) {
	// Seed 97 drawn numbers so the loop only has two left.
	var prior []string
	for n := 1; n <= 97; n++ {
		prior = append(prior, game.FormatNumber(n))
	}
	store := newMemStore()
	store.addRound(drawingRound(1, prior))
	e := newTestEngine(store, 2*time.Millisecond)

	require.NoError(t, e.EnsureDrawing(1))
	time.Sleep(50 * time.Millisecond)

	snap, err := e.Snapshot(1)
	require.NoError(t, err)
	assert.Len(t, snap.DrawnNumbers, game.PoolSize)
	assert.Equal(t, game.StateCompleted, snap.State)

	// Exhaustion without a winner rejects further claims as a state error.
	store.addCard(cardFor(10, 1, winningCells([]string{"01", "02", "03", "04", "05"})))
	_, claimErr := e.SubmitClaim(10, 1)
	assert.ErrorIs(t, claimErr, game.ErrRoundNotDrawing)

	// The exhausted round is retired, so the scheduler sweep stops listing
	// it and its runtime state is released.
	round, err := store.GetRound(1)
	require.NoError(t, err)
	assert.False(t, round.IsActive)
	ids, err := store.ListDrawable(time.Now())
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.False(t, e.resident(1))
}

func TestNoDrawAfterWin(t *testing.T) {
	drawn := []string{"01", "02", "03", "04", "05"}
	store := newMemStore()
	store.addRound(drawingRound(1, drawn))
	store.addCard(cardFor(10, 1, winningCells(drawn)))
	e := newTestEngine(store, 5*time.Millisecond)

	require.NoError(t, e.EnsureDrawing(1))
	time.Sleep(20 * time.Millisecond)

	_, err := e.SubmitClaim(10, 1)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	first, err := e.Snapshot(1)
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	second, err := e.Snapshot(1)
	require.NoError(t, err)

	assert.Equal(t, first.DrawnNumbers, second.DrawnNumbers, "no draw may land after completion")
	assert.Equal(t, game.StateCompleted, second.State)
}

func TestFinalizeCardPopulateOnce(t *testing.T) {
	store := newMemStore()
	store.addRound(lobbyRound(1))
	store.addCard(&models.Card{ID: 77, UserID: 10, RoundID: 1})
	e := newTestEngine(store, time.Hour)

	const writers = 8
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.FinalizeCard(10, 1, game.GenerateRandomCard())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, alreadyFinal int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, game.ErrCardAlreadyFinal):
			alreadyFinal++
		default:
			t.Fatalf("unexpected finalize error: %v", err)
		}
	}
	require.Equal(t, 1, ok, "exactly one finalize may populate the card")
	assert.Equal(t, writers-1, alreadyFinal)

	card, err := store.GetCard(10, 1)
	require.NoError(t, err)
	assert.True(t, card.Finalized)
	require.NoError(t, game.ValidateCard(DecodeSequence(card.CellsJSON)))

	// A later retry is rejected the same way.
	_, _, err = e.FinalizeCard(10, 1, game.GenerateRandomCard())
	assert.ErrorIs(t, err, game.ErrCardAlreadyFinal)
}

func TestFinalizeCardGates(t *testing.T) {
	store := newMemStore()
	store.addRound(drawingRound(1, nil))
	store.addCard(&models.Card{ID: 5, UserID: 10, RoundID: 1})
	store.addRound(lobbyRound(2))
	e := newTestEngine(store, time.Hour)

	t.Run("window elapsed", func(t *testing.T) {
		_, _, err := e.FinalizeCard(10, 1, game.GenerateRandomCard())
		assert.ErrorIs(t, err, game.ErrSetupWindowElapsed)
	})

	t.Run("no card", func(t *testing.T) {
		_, _, err := e.FinalizeCard(10, 2, game.GenerateRandomCard())
		assert.ErrorIs(t, err, game.ErrNoCardFound)
	})
}

// raceStore simulates a second process winning between this process's round
// read and its winner write: reads hide the recorded winner until the
// conditional write has conflicted once.
type raceStore struct {
	*memStore
	revealed atomic.Bool
}

func (s *raceStore) GetRound(roundID uint) (*models.Round, error) {
	r, err := s.memStore.GetRound(roundID)
	if err == nil && !s.revealed.Load() {
		r.WinnerUserID = nil
	}
	return r, err
}

func (s *raceStore) RecordWinner(round *models.Round, card *models.Card, claim *models.Claim) error {
	err := s.memStore.RecordWinner(round, card, claim)
	if errors.Is(err, game.ErrRoundAlreadyWon) {
		s.revealed.Store(true)
	}
	return err
}

func TestClaimAfterExternalWinner(t *testing.T) {
	drawn := []string{"01", "02", "03", "04", "05"}
	mem := newMemStore()
	round := drawingRound(1, drawn)
	external := uint(99)
	round.WinnerUserID = &external
	round.IsActive = false
	mem.addRound(round)
	mem.addCard(cardFor(10, 1, winningCells(drawn)))
	mem.addCard(cardFor(11, 1, winningCells(drawn)))

	store := &raceStore{memStore: mem}
	e := newTestEngine(store, time.Hour)

	_, err := e.SubmitClaim(10, 1)
	assert.ErrorIs(t, err, game.ErrRoundAlreadyWon)

	// The conflict synced the runtime view, so a later valid claim is also
	// rejected as already won, not as a state error.
	_, err = e.SubmitClaim(11, 1)
	assert.ErrorIs(t, err, game.ErrRoundAlreadyWon)

	snap, err := e.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, game.StateCompleted, snap.State)
	require.NotNil(t, snap.WinnerUserID)
	assert.Equal(t, external, *snap.WinnerUserID)
}

func TestSchedulerStartsDueRounds(t *testing.T) {
	store := newMemStore()
	store.addRound(drawingRound(1, nil))
	e := newTestEngine(store, 5*time.Millisecond)

	ids, err := store.ListDrawable(time.Now())
	require.NoError(t, err)
	require.Equal(t, []uint{1}, ids)

	for _, id := range ids {
		require.NoError(t, e.EnsureDrawing(id))
	}
	time.Sleep(30 * time.Millisecond)

	snap, err := e.Snapshot(1)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.DrawnNumbers)
}
