package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RechargeCode is a single-use prepaid voucher.
type RechargeCode struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Code        string          `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	IsUsed      bool            `gorm:"not null;default:false;index" json:"is_used"`
	UsedByID    *uint           `json:"used_by_id,omitempty"`
	UsedAt      *time.Time      `json:"used_at,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	CreatedByID *uint           `json:"created_by_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsValid reports whether the code can still be redeemed at now.
func (c *RechargeCode) IsValid(now time.Time) bool {
	return !c.IsUsed && (c.ExpiresAt == nil || c.ExpiresAt.After(now))
}

// IsExpired reports whether the expiry timestamp has passed at now.
func (c *RechargeCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
