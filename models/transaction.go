package models

import "time"

type TransactionType string

const (
	DepositTransaction  TransactionType = "deposit"
	WithdrawTransaction TransactionType = "withdraw"
	BetTransaction      TransactionType = "bet"
	WinTransaction      TransactionType = "win"
)

type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxApproved TransactionStatus = "approved"
	TxRejected TransactionStatus = "rejected"
)

type Transaction struct {
	ID           uint              `gorm:"primaryKey" json:"transaction_id"`
	UserID       uint              `gorm:"not null" json:"user_id"`
	RoundID      *uint             `json:"round_id"`
	Type         TransactionType   `json:"transaction_type"`
	Amount       float64           `json:"amount"`
	Status       TransactionStatus `gorm:"default:'approved'" json:"status"`
	BalanceAfter float64           `json:"balance_after"`
	CreatedAt    time.Time         `json:"created_at"`
}
