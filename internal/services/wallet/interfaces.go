package wallet

import (
	"context"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
)

// Service defines the main wallet service interface
type Service interface {
	// Core wallet operations
	GetWallet(ctx context.Context, studentID uint) (*models.Wallet, error)
	Deposit(ctx context.Context, req OperationRequest) (*models.Transaction, error)
	Withdraw(ctx context.Context, req OperationRequest) (*models.Transaction, error)
	ManualDeposit(ctx context.Context, admin models.Actor, studentID uint, amount decimal.Decimal, reason string) (*models.Transaction, error)

	// Balance operations
	GetBalance(ctx context.Context, studentID uint) (decimal.Decimal, error)
	GetTransactionHistory(ctx context.Context, studentID uint, limit, offset int) ([]models.Transaction, error)
}
