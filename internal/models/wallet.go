package models

import (
	"time"
)

// Wallet is a student's account. Its balance is always the sum of its
// transactions and is never stored.
type Wallet struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	StudentID uint      `gorm:"uniqueIndex;not null" json:"student_id"`
	Currency  string    `gorm:"size:3;not null;default:'EGP'" json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Transactions []Transaction `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
