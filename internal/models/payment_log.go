package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment log actions
const (
	LogActionDeposit             = "deposit"
	LogActionWithdrawal          = "withdrawal"
	LogActionPurchase            = "purchase"
	LogActionRefund              = "refund"
	LogActionRechargeCodeUsed    = "recharge_code_used"
	LogActionManualDeposit       = "manual_deposit"
	LogActionBulkCodeGeneration  = "bulk_code_generation"
	LogActionPriceChange         = "price_change"
	LogActionSuspiciousRecharge  = "suspicious_recharge_attempts"
	LogActionSuspiciousPurchases = "suspicious_purchase_rate"
)

// Log severities
const (
	SeverityInfo = "info"
	SeverityHigh = "high"
)

// PaymentLog is an append-only audit record.
type PaymentLog struct {
	ID            uint                `gorm:"primarykey" json:"id"`
	ActorID       *uint               `json:"actor_id,omitempty"`
	Action        string              `gorm:"size:50;not null;index:idx_payment_logs_action_created,priority:1" json:"action"`
	Amount        decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"amount"`
	StudentID     *uint               `gorm:"index:idx_payment_logs_student_created,priority:1" json:"student_id,omitempty"`
	CourseID      *uint               `json:"course_id,omitempty"`
	TransactionID *uint               `json:"transaction_id,omitempty"`
	IPAddress     string              `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent     string              `gorm:"type:text" json:"user_agent,omitempty"`
	SessionID     string              `gorm:"size:64" json:"session_id,omitempty"`
	Severity      string              `gorm:"size:10;not null;default:'info'" json:"severity"`
	Metadata      JSON                `gorm:"type:jsonb" json:"metadata"`
	CreatedAt     time.Time           `gorm:"not null;index:idx_payment_logs_action_created,priority:2;index:idx_payment_logs_student_created,priority:2" json:"created_at"`
}

// PaymentLogFilter matches the fields used for deduplication. Nil fields
// are ignored.
type PaymentLogFilter struct {
	Action        string
	StudentID     *uint
	CourseID      *uint
	TransactionID *uint
	Amount        *decimal.Decimal
}

// Matches reports whether l satisfies the filter.
func (f PaymentLogFilter) Matches(l *PaymentLog) bool {
	if l.Action != f.Action {
		return false
	}
	if f.StudentID != nil && (l.StudentID == nil || *l.StudentID != *f.StudentID) {
		return false
	}
	if f.CourseID != nil && (l.CourseID == nil || *l.CourseID != *f.CourseID) {
		return false
	}
	if f.TransactionID != nil && (l.TransactionID == nil || *l.TransactionID != *f.TransactionID) {
		return false
	}
	if f.Amount != nil && (!l.Amount.Valid || !l.Amount.Decimal.Equal(*f.Amount)) {
		return false
	}
	return true
}
