package models

import (
	"time"

	"gorm.io/datatypes"
)

type ClaimStatus string

const (
	ClaimUnset    ClaimStatus = ""
	ClaimPending  ClaimStatus = "pending"
	ClaimResolved ClaimStatus = "resolved"
)

type Card struct {
	ID          uint           `gorm:"primaryKey" json:"card_id"`
	UserID      uint           `gorm:"not null;uniqueIndex:idx_user_round" json:"user_id"`
	RoundID     uint           `gorm:"not null;uniqueIndex:idx_user_round" json:"round_id"`
	CellsJSON   datatypes.JSON `json:"cells"` // 25 cells: "01".."99", "FREE" at center, "" when blanked
	Finalized   bool           `gorm:"default:false" json:"finalized"`
	IsWinner    bool           `gorm:"default:false" json:"is_winner"`
	ClaimStatus ClaimStatus    `gorm:"default:''" json:"winning_claim_status"`
	WinAmount   float64        `gorm:"default:0" json:"win_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
