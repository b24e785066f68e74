package wallet

import (
	"context"
	"time"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
)

// OperationRequest is a deposit or withdrawal against a student's wallet.
type OperationRequest struct {
	StudentID     uint
	Amount        decimal.Decimal
	Description   string
	Reason        string
	PaymentMethod string
	Actor         *models.Actor
}

// Entry describes a ledger line before it is signed and stored.
type Entry struct {
	Type           string
	PaymentMethod  string
	Amount         decimal.Decimal
	Description    string
	Reason         string
	PurchaseID     *uint
	RechargeCodeID *uint
	CreatedByID    *uint
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Cache metrics
	RecordCacheHit(key string)
	RecordCacheMiss(key string)

	// Error metrics
	RecordError(operation, errType string)

	// Transaction metrics
	RecordTransaction(txType string, amount decimal.Decimal)
	RecordRetry(operation string)
}

// BalanceCache stores approximate balances for casual reads.
type BalanceCache interface {
	GetBalance(ctx context.Context, studentID uint) (decimal.Decimal, bool, error)
	SetBalance(ctx context.Context, studentID uint, balance decimal.Decimal, ttl time.Duration) error
	InvalidateBalance(ctx context.Context, studentID uint) error
}
