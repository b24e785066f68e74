// Package rechargecode issues and redeems single-use prepaid codes.
package rechargecode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/logger"
	"coursepay/internal/metrics"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/services/paymentlog"
	"coursepay/internal/services/risk"
	"coursepay/internal/services/wallet"
	"coursepay/internal/utils"

	"github.com/shopspring/decimal"
)

// Operation names used for metrics
const (
	OperationRedeem   = "redeem_code"
	OperationGenerate = "generate_codes"
)

// Notifier delivers recharge notifications after commit.
type Notifier interface {
	SendRechargeNotification(ctx context.Context, studentID uint, txn *models.Transaction) error
}

// Generator returns a candidate code for prefix.
type Generator func(prefix string) (string, error)

type Service struct {
	store    repositories.Store
	logs     *paymentlog.Service
	detector *risk.Detector
	notifier Notifier
	balances wallet.BalanceCache
	clock    clock.Clock
	config   config.LedgerConfig
	metrics  wallet.MetricsCollector
	generate Generator
}

// NewService creates a new recharge code service
func NewService(
	store repositories.Store,
	logs *paymentlog.Service,
	detector *risk.Detector,
	notifier Notifier,
	balances wallet.BalanceCache,
	clk clock.Clock,
	cfg config.LedgerConfig,
	metricsCollector wallet.MetricsCollector,
) *Service {
	if store == nil {
		panic("store is required")
	}
	if logs == nil {
		panic("payment log service is required")
	}
	if balances == nil {
		balances = wallet.NoopBalanceCache{}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if metricsCollector == nil {
		metricsCollector = &wallet.NoopMetricsCollector{}
	}
	cfg = cfg.WithDefaults()
	tokenBytes := cfg.CodeTokenBytes
	return &Service{
		store:    store,
		logs:     logs,
		detector: detector,
		notifier: notifier,
		balances: balances,
		clock:    clk,
		config:   cfg,
		metrics:  metricsCollector,
		generate: func(prefix string) (string, error) {
			token, err := utils.GenerateSecureToken(tokenBytes)
			if err != nil {
				return "", err
			}
			return prefix + token, nil
		},
	}
}

// IsValid reports whether code can be redeemed now.
func (s *Service) IsValid(code *models.RechargeCode) bool {
	return code.IsValid(s.clock.Now())
}

// GenerateCodes creates count codes worth amount each in one transaction.
// A colliding code is regenerated inside a savepoint so the batch survives.
func (s *Service) GenerateCodes(
	ctx context.Context,
	amount decimal.Decimal,
	count int,
	prefix string,
	expiresAt *time.Time,
	createdBy *models.Actor,
) ([]models.RechargeCode, error) {
	if err := wallet.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, apperrors.ErrInvalidCodeRequest
	}
	if len(prefix)+utils.SecureTokenLength(s.config.CodeTokenBytes) > config.MaxRechargeCodeLength {
		return nil, apperrors.ErrInvalidCodeRequest
	}
	if expiresAt != nil && !expiresAt.After(s.clock.Now()) {
		return nil, apperrors.ErrInvalidCodeRequest
	}
	if createdBy != nil && !createdBy.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(OperationGenerate, time.Since(start))
	}()

	codes := make([]models.RechargeCode, 0, count)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		for i := 0; i < count; i++ {
			rc, err := s.insertUnique(ctx, tx, amount, prefix, expiresAt, models.ActorID(createdBy))
			if err != nil {
				return err
			}
			codes = append(codes, *rc)
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordOperationResult(OperationGenerate, wallet.ResultFailed)
		return nil, fmt.Errorf("failed to generate recharge codes: %w", err)
	}

	s.metrics.RecordOperationResult(OperationGenerate, wallet.ResultSuccess)
	metrics.RecordRechargeCodesGenerated(len(codes))
	logger.Infof("generated %d recharge codes of %s", len(codes), amount)

	if createdBy != nil {
		if _, err := s.logs.LogBulkCodeGeneration(ctx, createdBy, amount, codes); err != nil {
			logger.Errorf("failed to log code generation: %v", err)
		}
	}
	return codes, nil
}

func (s *Service) insertUnique(
	ctx context.Context,
	tx repositories.Store,
	amount decimal.Decimal,
	prefix string,
	expiresAt *time.Time,
	createdByID *uint,
) (*models.RechargeCode, error) {
	var lastErr error
	for attempt := 1; attempt <= s.config.MaxCodeGenerationAttempts; attempt++ {
		code, err := s.generate(prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		rc := &models.RechargeCode{
			Code:        code,
			Amount:      amount,
			ExpiresAt:   expiresAt,
			CreatedByID: createdByID,
			CreatedAt:   s.clock.Now(),
		}
		err = tx.ExecuteInTransaction(ctx, func(sp repositories.Store) error {
			return sp.RechargeCodes().Create(ctx, rc)
		})
		if err == nil {
			return rc, nil
		}
		if !repositories.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		logger.Debugf("recharge code collision on attempt %d, regenerating", attempt)
	}
	return nil, fmt.Errorf("no unique code after %d attempts: %w", s.config.MaxCodeGenerationAttempts, lastErr)
}

// RedeemCode credits the code's amount to the student's wallet and marks
// the code used. The code row is locked before the wallet.
func (s *Service) RedeemCode(ctx context.Context, student models.Actor, code string) (*models.Transaction, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(OperationRedeem, time.Since(start))
	}()

	if !student.IsStudent() {
		s.metrics.RecordOperationResult(OperationRedeem, wallet.ResultRejected)
		return nil, apperrors.ErrNotStudent
	}
	code = strings.TrimSpace(code)
	if code == "" || len(code) > config.MaxRechargeCodeLength {
		s.metrics.RecordOperationResult(OperationRedeem, wallet.ResultRejected)
		return nil, apperrors.ErrInvalidCode
	}

	// Flagged on the outer store so the log outlives a rolled back redemption.
	if s.detector != nil {
		if _, err := s.detector.CheckRechargeCodeAttempt(ctx, &student, student.ID); err != nil {
			logger.Errorf("recharge attempt check failed for student %d: %v", student.ID, err)
		}
	}

	var (
		rc  *models.RechargeCode
		txn *models.Transaction
	)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		rc, err = tx.RechargeCodes().GetByCodeForUpdate(ctx, code)
		if errors.Is(err, repositories.ErrRechargeCodeNotFound) {
			return apperrors.ErrInvalidCode
		}
		if err != nil {
			return fmt.Errorf("failed to load recharge code: %w", err)
		}

		now := s.clock.Now()
		if rc.IsUsed {
			return apperrors.ErrCodeAlreadyUsed
		}
		if rc.IsExpired(now) {
			return apperrors.ErrCodeExpired
		}

		ledger := wallet.NewLedger(tx, s.clock, s.config)
		w, err := ledger.LockWallet(ctx, student.ID)
		if err != nil {
			return err
		}
		txn, err = ledger.Credit(ctx, w, wallet.Entry{
			Type:           models.TransactionTypeRechargeCode,
			PaymentMethod:  models.PaymentMethodRechargeCode,
			Amount:         rc.Amount,
			Description:    fmt.Sprintf("Recharge code: %s", rc.Code),
			RechargeCodeID: models.Uint(rc.ID),
			CreatedByID:    models.Uint(student.ID),
		})
		if err != nil {
			return err
		}

		rc.UsedByID = models.Uint(student.ID)
		rc.UsedAt = &now
		if err := tx.RechargeCodes().MarkUsed(ctx, rc); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return apperrors.ErrCodeAlreadyUsed
			}
			return fmt.Errorf("failed to mark code used: %w", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsDomainError(err) {
			s.metrics.RecordOperationResult(OperationRedeem, wallet.ResultRejected)
			logger.Warnf("recharge code redemption rejected for student %d: %v", student.ID, err)
			return nil, err
		}
		s.metrics.RecordOperationResult(OperationRedeem, wallet.ResultFailed)
		s.metrics.RecordError(OperationRedeem, "store")
		return nil, fmt.Errorf("failed to redeem recharge code: %w", err)
	}

	s.metrics.RecordOperationResult(OperationRedeem, wallet.ResultSuccess)
	s.metrics.RecordTransaction(txn.Type, txn.Amount)
	logger.Infof("student %d redeemed a code worth %s (ref %s)", student.ID, rc.Amount, txn.Reference)

	if _, err := s.logs.LogRecharge(ctx, &student, student.ID, rc.Amount, rc.Code, txn.ID); err != nil {
		logger.Errorf("failed to log recharge %s: %v", txn.Reference, err)
	}
	if err := s.balances.InvalidateBalance(ctx, student.ID); err != nil {
		logger.Warnf("failed to invalidate balance cache for student %d: %v", student.ID, err)
	}
	if s.notifier != nil {
		if err := s.notifier.SendRechargeNotification(ctx, student.ID, txn); err != nil {
			logger.Errorf("failed to send recharge notification %s: %v", txn.Reference, err)
		}
	}
	return txn, nil
}
