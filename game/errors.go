package game

import "errors"

// Sentinel errors for the round engine. Controllers map these to HTTP
// statuses and reason codes; callers branch with errors.Is.
var (
	ErrInvalidCard         = errors.New("invalid card: must be 25 cells, FREE center, distinct numbers in 01..99")
	ErrCardAlreadyFinal    = errors.New("card already finalized")
	ErrSetupWindowElapsed  = errors.New("card setup window elapsed")
	ErrNoCardFound         = errors.New("no card found for this round")
	ErrAlreadyResolved     = errors.New("claim already submitted for this card")
	ErrNotAWinningCard     = errors.New("card does not satisfy a winning line")
	ErrRoundAlreadyWon     = errors.New("round already won by another claim")
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundNotDrawing     = errors.New("round is not in drawing state")
	ErrRegistrationNotOpen = errors.New("registration has not opened yet")
	ErrRegistrationClosed  = errors.New("registration is closed")
	ErrAlreadyRegistered   = errors.New("already registered for this round")
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrInvalidSchedule     = errors.New("invalid round schedule: need open <= close <= play and non-negative amounts")
)

// Reason returns the stable reason code for an engine error, used in
// rejection payloads so clients can tell "someone else won" from
// "you haven't won yet".
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCard):
		return "invalid_card"
	case errors.Is(err, ErrCardAlreadyFinal):
		return "card_already_finalized"
	case errors.Is(err, ErrSetupWindowElapsed):
		return "setup_window_elapsed"
	case errors.Is(err, ErrNoCardFound):
		return "no_card_found"
	case errors.Is(err, ErrAlreadyResolved):
		return "claim_already_resolved"
	case errors.Is(err, ErrNotAWinningCard):
		return "not_a_winning_card"
	case errors.Is(err, ErrRoundAlreadyWon):
		return "round_already_won"
	case errors.Is(err, ErrRoundNotFound):
		return "round_not_found"
	case errors.Is(err, ErrRoundNotDrawing):
		return "round_not_drawing"
	case errors.Is(err, ErrRegistrationNotOpen):
		return "registration_not_open"
	case errors.Is(err, ErrRegistrationClosed):
		return "registration_closed"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidSchedule):
		return "invalid_schedule"
	default:
		return "internal_error"
	}
}
