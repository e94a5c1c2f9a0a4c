package models

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID            uint      `gorm:"primaryKey" json:"user_id"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName      string    `json:"full_name"`
	Phone         string    `json:"phone_number"`
	Role          UserRole  `gorm:"default:'user'" json:"role"`
	WalletBalance float64   `gorm:"default:0" json:"wallet_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
