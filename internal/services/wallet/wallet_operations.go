package wallet

import (
	"context"
	"fmt"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/models"
	"coursepay/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger posts transactions inside an open store transaction. Callers lock
// the wallet first and keep the lock until commit.
type Ledger struct {
	tx    repositories.Store
	clock clock.Clock
	cfg   config.LedgerConfig
}

func NewLedger(tx repositories.Store, clk clock.Clock, cfg config.LedgerConfig) *Ledger {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Ledger{tx: tx, clock: clk, cfg: cfg.WithDefaults()}
}

// ValidateAmount rejects non-positive amounts and sub-cent precision.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

// LockWallet returns the student's wallet under a row lock, creating it on
// first use.
func (l *Ledger) LockWallet(ctx context.Context, studentID uint) (*models.Wallet, error) {
	w, err := l.tx.Wallets().GetOrCreateForUpdate(ctx, studentID, l.cfg.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet for student %d: %w", studentID, err)
	}
	return w, nil
}

func (l *Ledger) Balance(ctx context.Context, w *models.Wallet) (decimal.Decimal, error) {
	balance, err := l.tx.Wallets().Balance(ctx, w.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance for wallet %d: %w", w.ID, err)
	}
	return balance, nil
}

// Credit posts a positive entry. Refunds restore previously debited money
// and are exempt from the balance ceiling.
func (l *Ledger) Credit(ctx context.Context, w *models.Wallet, e Entry) (*models.Transaction, error) {
	if err := ValidateAmount(e.Amount); err != nil {
		return nil, err
	}
	if e.Type != models.TransactionTypeRefund && l.cfg.MaxWalletBalance.IsPositive() {
		balance, err := l.Balance(ctx, w)
		if err != nil {
			return nil, err
		}
		if balance.Add(e.Amount).GreaterThan(l.cfg.MaxWalletBalance) {
			return nil, apperrors.ErrBalanceLimitExceeded
		}
	}
	return l.post(ctx, w, e, e.Amount)
}

// Debit posts a negative entry after checking the balance covers it.
func (l *Ledger) Debit(ctx context.Context, w *models.Wallet, e Entry) (*models.Transaction, error) {
	if err := ValidateAmount(e.Amount); err != nil {
		return nil, err
	}
	balance, err := l.Balance(ctx, w)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(e.Amount) {
		return nil, apperrors.ErrInsufficientBalance
	}
	return l.post(ctx, w, e, e.Amount.Neg())
}

func (l *Ledger) post(ctx context.Context, w *models.Wallet, e Entry, signed decimal.Decimal) (*models.Transaction, error) {
	method := e.PaymentMethod
	if method == "" {
		method = models.PaymentMethodWallet
	}
	txn := &models.Transaction{
		Reference:      uuid.NewString(),
		WalletID:       w.ID,
		Type:           e.Type,
		PaymentMethod:  method,
		Amount:         signed,
		Description:    e.Description,
		Reason:         e.Reason,
		PurchaseID:     e.PurchaseID,
		RechargeCodeID: e.RechargeCodeID,
		CreatedByID:    e.CreatedByID,
		CreatedAt:      l.clock.Now(),
	}
	if err := txn.ValidateSign(); err != nil {
		return nil, err
	}
	if err := l.tx.Wallets().CreateTransaction(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to create %s transaction: %w", e.Type, err)
	}
	return txn, nil
}
