package game

import (
	"time"

	"github.com/bingoroom/bingo-backend/models"
)

type State string

const (
	StateRegistration State = "registration"
	StateLobbyWait    State = "lobby_wait"
	StateDrawing      State = "drawing"
	StateCompleted    State = "completed"
)

// CardSetupWindow bounds the card-setup phase inside LobbyWait. The original
// client enforced this timer alone; the server checks it too.
const CardSetupWindow = 120 * time.Second

// DeriveState computes the round state from its timestamps, winner reference
// and drawn count. There is no background timer owning the state: every
// observer recomputes it, so two observers with the same inputs always agree.
func DeriveState(r *models.Round, drawnCount int, now time.Time) State {
	if r.WinnerUserID != nil || drawnCount >= PoolSize {
		return StateCompleted
	}
	if !now.Before(r.PlayTime) {
		return StateDrawing
	}
	if !now.Before(r.RegistrationClose) {
		return StateLobbyWait
	}
	return StateRegistration
}

// SetupDeadline is the instant after which card finalization is rejected:
// the fixed setup window after registration close, capped by play time.
func SetupDeadline(r *models.Round) time.Time {
	deadline := r.RegistrationClose.Add(CardSetupWindow)
	if deadline.After(r.PlayTime) {
		return r.PlayTime
	}
	return deadline
}

// CheckRegistration gates the register-for-round operation against the
// registration window.
func CheckRegistration(r *models.Round, now time.Time) error {
	if now.Before(r.RegistrationOpen) {
		return ErrRegistrationNotOpen
	}
	if !now.Before(r.RegistrationClose) {
		return ErrRegistrationClosed
	}
	return nil
}

// CheckSetup gates the finalize-card operation: only during LobbyWait and
// before the setup deadline.
func CheckSetup(r *models.Round, drawnCount int, now time.Time) error {
	if DeriveState(r, drawnCount, now) != StateLobbyWait {
		return ErrSetupWindowElapsed
	}
	if !now.Before(SetupDeadline(r)) {
		return ErrSetupWindowElapsed
	}
	return nil
}

// ValidateSchedule rejects a round whose timestamps are out of order or whose
// amounts are negative, before it is ever persisted.
func ValidateSchedule(r *models.Round) error {
	if r.Title == "" ||
		r.RegistrationOpen.After(r.RegistrationClose) ||
		r.RegistrationClose.After(r.PlayTime) ||
		r.TicketPrice < 0 || r.PrizeAmount < 0 {
		return ErrInvalidSchedule
	}
	return nil
}
