// Package purchase buys courses with wallet funds and refunds them.
package purchase

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
	"coursepay/internal/services/risk"
	"coursepay/internal/services/wallet"
)

// Operation names used for metrics
const (
	OperationPurchase = "purchase"
	OperationRefund   = "refund"
)

type Service struct {
	store    repositories.Store
	courses  Courses
	notifier Notifier
	logs     *paymentlog.Service
	detector *risk.Detector
	balances wallet.BalanceCache
	clock    clock.Clock
	config   config.LedgerConfig
	metrics  wallet.MetricsCollector
	sleep    func(context.Context, time.Duration) error
}

// NewService creates a new purchase service
func NewService(
	store repositories.Store,
	courses Courses,
	notifier Notifier,
	logs *paymentlog.Service,
	detector *risk.Detector,
	balances wallet.BalanceCache,
	clk clock.Clock,
	cfg config.LedgerConfig,
	metrics wallet.MetricsCollector,
) *Service {
	if store == nil {
		panic("store is required")
	}
	if courses == nil {
		panic("course service is required")
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
	if metrics == nil {
		metrics = &wallet.NoopMetricsCollector{}
	}
	return &Service{
		store:    store,
		courses:  courses,
		notifier: notifier,
		logs:     logs,
		detector: detector,
		balances: balances,
		clock:    clk,
		config:   cfg.WithDefaults(),
		metrics:  metrics,
		sleep:    sleepContext,
	}
}

// PurchaseCourse debits the course price from the student's wallet and
// enrolls them. Storage conflicts are retried with linear backoff; business
// rule failures are returned on the first attempt.
func (s *Service) PurchaseCourse(ctx context.Context, student models.Actor, courseID uint) (*Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(OperationPurchase, time.Since(start))
	}()

	if !student.IsStudent() {
		s.metrics.RecordOperationResult(OperationPurchase, wallet.ResultRejected)
		return nil, apperrors.ErrNotStudent
	}
	course, err := s.courses.GetCourse(ctx, s.store, courseID)
	if err != nil {
		return nil, s.fail(OperationPurchase, err)
	}
	if !course.Purchasable() {
		s.metrics.RecordOperationResult(OperationPurchase, wallet.ResultRejected)
		return nil, apperrors.ErrCourseNotPurchasable
	}

	var result *Result
	for attempt := 1; ; attempt++ {
		result, err = s.attemptPurchase(ctx, student.ID, courseID)
		if err == nil {
			break
		}
		if apperrors.IsDomainError(err) {
			return nil, s.fail(OperationPurchase, err)
		}
		if !repositories.IsRetryable(err) {
			return nil, s.fail(OperationPurchase, fmt.Errorf("purchase of course %d failed: %w", courseID, err))
		}
		if attempt >= s.config.MaxRetryAttempts {
			return nil, s.fail(OperationPurchase, fmt.Errorf("purchase of course %d failed after %d attempts: %w", courseID, attempt, err))
		}

		s.metrics.RecordRetry(OperationPurchase)
		logger.Warnf("purchase attempt %d for student %d course %d hit a conflict, retrying: %v", attempt, student.ID, courseID, err)
		if err := s.sleep(ctx, s.config.RetryBackoff*time.Duration(attempt)); err != nil {
			return nil, s.fail(OperationPurchase, err)
		}
	}

	s.metrics.RecordOperationResult(OperationPurchase, wallet.ResultSuccess)
	s.metrics.RecordTransaction(result.Transaction.Type, result.Transaction.Amount)
	logger.Infof("student %d purchased course %d for %s (ref %s)", student.ID, courseID, result.Purchase.Amount, result.Transaction.Reference)

	s.afterPurchase(ctx, student, result)
	return result, nil
}

func (s *Service) attemptPurchase(ctx context.Context, studentID, courseID uint) (*Result, error) {
	var result *Result
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		ledger := wallet.NewLedger(tx, s.clock, s.config)
		w, err := ledger.LockWallet(ctx, studentID)
		if err != nil {
			return err
		}

		_, err = tx.Purchases().GetActive(ctx, studentID, courseID, true)
		switch {
		case err == nil:
			return apperrors.ErrAlreadyPurchased
		case !errors.Is(err, repositories.ErrPurchaseNotFound):
			return fmt.Errorf("failed to check existing purchase: %w", err)
		}

		if s.config.MaxDailyPurchases > 0 {
			now := s.clock.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			count, err := tx.Purchases().CountSince(ctx, studentID, midnight)
			if err != nil {
				return fmt.Errorf("failed to count daily purchases: %w", err)
			}
			if count >= int64(s.config.MaxDailyPurchases) {
				return apperrors.ErrDailyPurchaseLimit
			}
		}

		course, err := s.courses.GetCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !course.Purchasable() {
			return apperrors.ErrCourseNotPurchasable
		}

		txn, err := ledger.Debit(ctx, w, wallet.Entry{
			Type:          models.TransactionTypePurchase,
			PaymentMethod: models.PaymentMethodWallet,
			Amount:        course.Price,
			Description:   fmt.Sprintf("Purchase of course: %s", course.Title),
			CreatedByID:   models.Uint(studentID),
		})
		if err != nil {
			return err
		}

		p := &models.Purchase{
			StudentID:       studentID,
			CourseID:        courseID,
			Amount:          course.Price,
			PriceAtPurchase: course.Price,
			TransactionID:   txn.ID,
			PurchasedAt:     txn.CreatedAt,
		}
		if err := tx.Purchases().Create(ctx, p); err != nil {
			return fmt.Errorf("failed to record purchase: %w", err)
		}

		if err := s.courses.LockCoursePrice(ctx, tx, course); err != nil {
			return err
		}
		if err := s.courses.EnrollStudent(ctx, tx, studentID, courseID); err != nil {
			return err
		}

		result = &Result{Purchase: p, Transaction: txn}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) afterPurchase(ctx context.Context, student models.Actor, r *Result) {
	p := r.Purchase
	if _, err := s.logs.LogPurchase(ctx, &student, p.StudentID, p.CourseID, p.Amount, r.Transaction.ID); err != nil {
		logger.Errorf("failed to log purchase %d: %v", p.ID, err)
	}
	s.refreshSideState(ctx, p.StudentID, p.CourseID)
	if s.notifier != nil {
		if err := s.notifier.SendPurchaseNotification(ctx, p.StudentID, p.CourseID, r.Transaction); err != nil {
			logger.Errorf("failed to send purchase notification for purchase %d: %v", p.ID, err)
		}
	}
	if s.detector != nil {
		if _, err := s.detector.CheckPurchaseRate(ctx, &student, p.StudentID); err != nil {
			logger.Errorf("purchase rate check failed for student %d: %v", p.StudentID, err)
		}
	}
}

// RefundPurchase credits back the active purchase of the course and
// unenrolls the student. A nil actor is the system.
func (s *Service) RefundPurchase(ctx context.Context, studentID, courseID uint, reason string, actor *models.Actor) (*models.Transaction, error) {
	start := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(OperationRefund, time.Since(start))
	}()

	if actor != nil && !actor.IsAdmin() {
		s.metrics.RecordOperationResult(OperationRefund, wallet.ResultRejected)
		return nil, apperrors.ErrForbidden
	}
	createdBy := models.ActorID(actor)
	if createdBy == nil {
		createdBy = models.Uint(studentID)
	}

	var (
		purchase *models.Purchase
		txn      *models.Transaction
	)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		ledger := wallet.NewLedger(tx, s.clock, s.config)
		w, err := ledger.LockWallet(ctx, studentID)
		if err != nil {
			return err
		}

		purchase, err = tx.Purchases().GetActive(ctx, studentID, courseID, true)
		if errors.Is(err, repositories.ErrPurchaseNotFound) {
			return apperrors.ErrNoActivePurchase
		}
		if err != nil {
			return fmt.Errorf("failed to load purchase: %w", err)
		}

		description := fmt.Sprintf("Refund for course %d", courseID)
		txn, err = ledger.Credit(ctx, w, wallet.Entry{
			Type:          models.TransactionTypeRefund,
			PaymentMethod: models.PaymentMethodWallet,
			Amount:        purchase.Amount,
			Description:   description,
			Reason:        reason,
			PurchaseID:    models.Uint(purchase.ID),
			CreatedByID:   createdBy,
		})
		if err != nil {
			return err
		}

		refundedAt := txn.CreatedAt
		purchase.Refunded = true
		purchase.RefundedAt = &refundedAt
		purchase.RefundReason = reason
		purchase.RefundTransactionID = models.Uint(txn.ID)
		if err := tx.Purchases().MarkRefunded(ctx, purchase); err != nil {
			return fmt.Errorf("failed to mark purchase %d refunded: %w", purchase.ID, err)
		}

		return s.courses.UnenrollStudent(ctx, tx, studentID, courseID)
	})
	if err != nil {
		if apperrors.IsDomainError(err) {
			return nil, s.fail(OperationRefund, err)
		}
		return nil, s.fail(OperationRefund, fmt.Errorf("refund of course %d failed: %w", courseID, err))
	}

	s.metrics.RecordOperationResult(OperationRefund, wallet.ResultSuccess)
	s.metrics.RecordTransaction(txn.Type, txn.Amount)
	logger.Infof("refunded %s to student %d for course %d (ref %s)", txn.Amount, studentID, courseID, txn.Reference)

	if _, err := s.logs.LogRefund(ctx, actor, studentID, courseID, txn.Amount, txn.ID, reason); err != nil {
		logger.Errorf("failed to log refund of purchase %d: %v", purchase.ID, err)
	}
	s.refreshSideState(ctx, studentID, courseID)
	if s.notifier != nil {
		if err := s.notifier.SendRefundNotification(ctx, studentID, courseID, txn); err != nil {
			logger.Errorf("failed to send refund notification for purchase %d: %v", purchase.ID, err)
		}
	}
	return txn, nil
}

// ListPurchases returns the student's purchases, newest first.
func (s *Service) ListPurchases(ctx context.Context, studentID uint) ([]models.Purchase, error) {
	purchases, err := s.store.Purchases().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

func (s *Service) HasActivePurchase(ctx context.Context, studentID, courseID uint) (bool, error) {
	_, err := s.store.Purchases().GetActive(ctx, studentID, courseID, false)
	if errors.Is(err, repositories.ErrPurchaseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return true, nil
}

func (s *Service) refreshSideState(ctx context.Context, studentID, courseID uint) {
	if err := s.balances.InvalidateBalance(ctx, studentID); err != nil {
		logger.Warnf("failed to invalidate balance cache for student %d: %v", studentID, err)
	}
	if _, err := s.courses.RefreshCourseStats(ctx, courseID); err != nil {
		logger.Errorf("failed to refresh stats for course %d: %v", courseID, err)
	}
}

func (s *Service) fail(operation string, err error) error {
	if apperrors.IsDomainError(err) {
		s.metrics.RecordOperationResult(operation, wallet.ResultRejected)
	} else {
		s.metrics.RecordOperationResult(operation, wallet.ResultFailed)
		s.metrics.RecordError(operation, "store")
	}
	return err
}
