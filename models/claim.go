package models

import "time"

// Claim records a user's winning assertion for a round. Resolved synchronously
// by the engine; payout bookkeeping stays pending until an admin acts on it.
type Claim struct {
	ID          uint              `gorm:"primaryKey" json:"claim_id"`
	Reference   string            `gorm:"uniqueIndex;not null" json:"reference"`
	UserID      uint              `gorm:"not null" json:"user_id"`
	RoundID     uint              `gorm:"not null" json:"round_id"`
	CardID      uint              `gorm:"not null" json:"card_id"`
	Accepted    bool              `json:"accepted"`
	Reason      string            `json:"reason"` // rejection reason code, empty when accepted
	PrizeAmount float64           `json:"prize_amount"`
	Status      TransactionStatus `gorm:"default:'pending'" json:"status"`
	SubmittedAt time.Time         `gorm:"autoCreateTime" json:"submitted_at"`
}
