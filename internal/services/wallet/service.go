package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/logger"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/services/paymentlog"

	"github.com/shopspring/decimal"
)

type service struct {
	store   repositories.Store
	cache   BalanceCache
	logs    *paymentlog.Service
	clock   clock.Clock
	config  config.LedgerConfig
	metrics MetricsCollector
}

// NewService creates a new wallet service
func NewService(
	store repositories.Store,
	cache BalanceCache,
	logs *paymentlog.Service,
	clk clock.Clock,
	cfg config.LedgerConfig,
	metrics MetricsCollector,
) Service {
	if store == nil {
		panic("store is required")
	}
	if logs == nil {
		panic("payment log service is required")
	}

	// Cache is optional, reads go straight to the store without one
	if cache == nil {
		cache = NoopBalanceCache{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		store:   store,
		cache:   cache,
		logs:    logs,
		clock:   clk,
		config:  cfg.WithDefaults(),
		metrics: metrics,
	}
}

func (s *service) GetWallet(ctx context.Context, studentID uint) (*models.Wallet, error) {
	w, err := s.store.Wallets().GetByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, apperrors.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, studentID uint) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(OperationGetBalance, time.Since(start))
	}()

	if balance, ok, err := s.cache.GetBalance(ctx, studentID); err == nil && ok {
		s.metrics.RecordCacheHit("balance")
		return balance, nil
	} else if err != nil {
		logger.Warnf("balance cache read failed for student %d: %v", studentID, err)
	}
	s.metrics.RecordCacheMiss("balance")

	w, err := s.store.Wallets().GetByStudentID(ctx, studentID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get wallet: %w", err)
	}
	balance, err := s.store.Wallets().Balance(ctx, w.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute balance: %w", err)
	}

	if err := s.cache.SetBalance(ctx, studentID, balance, s.config.BalanceCacheTTL); err != nil {
		logger.Warnf("balance cache write failed for student %d: %v", studentID, err)
	}
	return balance, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, studentID uint, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	w, err := s.store.Wallets().GetByStudentID(ctx, studentID)
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return []models.Transaction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	txns, err := s.store.Wallets().GetTransactionHistory(ctx, w.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return txns, nil
}

func (s *service) Deposit(ctx context.Context, req OperationRequest) (*models.Transaction, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		s.metrics.RecordOperationResult(OperationDeposit, ResultRejected)
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = "Wallet deposit"
	}

	txn, err := s.post(ctx, OperationDeposit, req.StudentID, func(l *Ledger, w *models.Wallet) (*models.Transaction, error) {
		return l.Credit(ctx, w, Entry{
			Type:          models.TransactionTypeDeposit,
			PaymentMethod: req.PaymentMethod,
			Amount:        req.Amount,
			Description:   description,
			Reason:        req.Reason,
			CreatedByID:   models.ActorID(req.Actor),
		})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.logs.LogDeposit(ctx, req.Actor, req.StudentID, req.Amount, txn.ID, req.Reason); err != nil {
		logger.Errorf("failed to log deposit %s: %v", txn.Reference, err)
	}
	return txn, nil
}

func (s *service) Withdraw(ctx context.Context, req OperationRequest) (*models.Transaction, error) {
	if err := ValidateAmount(req.Amount); err != nil {
		s.metrics.RecordOperationResult(OperationWithdraw, ResultRejected)
		return nil, err
	}
	description := req.Description
	if description == "" {
		description = "Wallet withdrawal"
	}

	txn, err := s.post(ctx, OperationWithdraw, req.StudentID, func(l *Ledger, w *models.Wallet) (*models.Transaction, error) {
		return l.Debit(ctx, w, Entry{
			Type:          models.TransactionTypeWithdrawal,
			PaymentMethod: req.PaymentMethod,
			Amount:        req.Amount,
			Description:   description,
			Reason:        req.Reason,
			CreatedByID:   models.ActorID(req.Actor),
		})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.logs.LogWithdrawal(ctx, req.Actor, req.StudentID, req.Amount, txn.ID, req.Reason); err != nil {
		logger.Errorf("failed to log withdrawal %s: %v", txn.Reference, err)
	}
	return txn, nil
}

func (s *service) ManualDeposit(ctx context.Context, admin models.Actor, studentID uint, amount decimal.Decimal, reason string) (*models.Transaction, error) {
	if !admin.IsAdmin() {
		s.metrics.RecordOperationResult(OperationManualDeposit, ResultRejected)
		return nil, apperrors.ErrForbidden
	}
	if reason == "" {
		s.metrics.RecordOperationResult(OperationManualDeposit, ResultRejected)
		return nil, apperrors.ErrReasonRequired
	}
	if err := ValidateAmount(amount); err != nil {
		s.metrics.RecordOperationResult(OperationManualDeposit, ResultRejected)
		return nil, err
	}

	txn, err := s.post(ctx, OperationManualDeposit, studentID, func(l *Ledger, w *models.Wallet) (*models.Transaction, error) {
		return l.Credit(ctx, w, Entry{
			Type:          models.TransactionTypeManualDeposit,
			PaymentMethod: models.PaymentMethodManual,
			Amount:        amount,
			Description:   fmt.Sprintf("Manual deposit by admin %d", admin.ID),
			Reason:        reason,
			CreatedByID:   models.Uint(admin.ID),
		})
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.logs.LogManualDeposit(ctx, &admin, studentID, amount, txn.ID, reason); err != nil {
		logger.Errorf("failed to log manual deposit %s: %v", txn.Reference, err)
	}
	return txn, nil
}

// post locks the student's wallet, applies op and commits.
func (s *service) post(
	ctx context.Context,
	operation string,
	studentID uint,
	op func(*Ledger, *models.Wallet) (*models.Transaction, error),
) (*models.Transaction, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(operation, time.Since(start))
	}()

	var txn *models.Transaction
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		l := NewLedger(tx, s.clock, s.config)
		w, err := l.LockWallet(ctx, studentID)
		if err != nil {
			return err
		}
		txn, err = op(l, w)
		return err
	})
	if err != nil {
		if apperrors.IsDomainError(err) {
			s.metrics.RecordOperationResult(operation, ResultRejected)
			return nil, err
		}
		s.metrics.RecordOperationResult(operation, ResultFailed)
		s.metrics.RecordError(operation, "store")
		return nil, fmt.Errorf("%s failed: %w", operation, err)
	}

	s.metrics.RecordOperationResult(operation, ResultSuccess)
	s.metrics.RecordTransaction(txn.Type, txn.Amount)
	if err := s.cache.InvalidateBalance(ctx, studentID); err != nil {
		logger.Warnf("failed to invalidate balance cache for student %d: %v", studentID, err)
	}
	logger.Infof("%s of %s posted to wallet %d (ref %s)", operation, txn.Amount, txn.WalletID, txn.Reference)
	return txn, nil
}
