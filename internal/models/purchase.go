package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records one student's acquisition of one course. At most one
// non-refunded row may exist per (student, course).
type Purchase struct {
	ID                  uint            `gorm:"primarykey" json:"id"`
	StudentID           uint            `gorm:"not null;uniqueIndex:idx_purchases_active,where:refunded = false;index:idx_purchases_student_time,priority:1" json:"student_id"`
	CourseID            uint            `gorm:"not null;uniqueIndex:idx_purchases_active,where:refunded = false;index" json:"course_id"`
	Amount              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PriceAtPurchase     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	TransactionID       uint            `gorm:"uniqueIndex;not null" json:"transaction_id"`
	PurchasedAt         time.Time       `gorm:"not null;index:idx_purchases_student_time,priority:2" json:"purchased_at"`
	Refunded            bool            `gorm:"not null;default:false" json:"refunded"`
	RefundedAt          *time.Time      `json:"refunded_at,omitempty"`
	RefundReason        string          `gorm:"type:text" json:"refund_reason,omitempty"`
	RefundTransactionID *uint           `json:"refund_transaction_id,omitempty"`

	Transaction Transaction `gorm:"foreignKey:TransactionID;constraint:OnDelete:RESTRICT" json:"-"`
}
