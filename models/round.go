package models

import (
	"time"

	"gorm.io/datatypes"
)

type Round struct {
	ID                uint           `gorm:"primaryKey" json:"round_id"`
	Title             string         `gorm:"not null" json:"title"`
	RegistrationOpen  time.Time      `json:"registration_open"`
	RegistrationClose time.Time      `json:"registration_close"`
	PlayTime          time.Time      `json:"play_time"`
	TicketPrice       float64        `json:"ticket_price"`
	PrizeAmount       float64        `json:"prize_amount"`
	IsActive          bool           `gorm:"default:true" json:"is_active"`
	WinnerUserID      *uint          `json:"winner_user_id"`
	NumbersJSON       datatypes.JSON `json:"numbers_drawn"` // drawn sequence as JSON array of "01".."99"
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
