// Package paymentlog writes the append-only audit trail of financial
// actions. Entries repeated within a short window are deduplicated.
package paymentlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/logger"
	"coursepay/internal/models"
	"coursepay/internal/repositories"

	"github.com/shopspring/decimal"
)

// Entry describes a log entry to write. Nil references are left empty and
// are ignored when looking for duplicates.
type Entry struct {
	Actor         *models.Actor
	Action        string
	Amount        *decimal.Decimal
	StudentID     *uint
	CourseID      *uint
	TransactionID *uint
	Severity      string
	Metadata      map[string]interface{}
	// Fields are merged into Metadata without overwriting existing keys.
	Fields map[string]interface{}
}

type Service struct {
	store       repositories.Store
	clock       clock.Clock
	dedupWindow time.Duration
}

// NewService creates a new payment log service
func NewService(store repositories.Store, clk clock.Clock, cfg config.LedgerConfig) *Service {
	if store == nil {
		panic("store is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	cfg = cfg.WithDefaults()
	return &Service{
		store:       store,
		clock:       clk,
		dedupWindow: cfg.LogDedupWindow,
	}
}

// CreateLog writes entry unless an equivalent one was written within the
// dedup window, in which case the existing entry is returned.
func (s *Service) CreateLog(ctx context.Context, entry Entry) (*models.PaymentLog, error) {
	if entry.Action == "" {
		return nil, errors.New("payment log action is required")
	}

	metadata := normalizeMap(entry.Metadata)
	for k, v := range normalizeMap(entry.Fields) {
		if _, exists := metadata[k]; !exists {
			metadata[k] = v
		}
	}

	now := s.clock.Now()
	repo := s.store.PaymentLogs()

	filter := models.PaymentLogFilter{
		Action:        entry.Action,
		StudentID:     entry.StudentID,
		CourseID:      entry.CourseID,
		TransactionID: entry.TransactionID,
		Amount:        entry.Amount,
	}
	existing, err := repo.FindRecent(ctx, filter, now.Add(-s.dedupWindow))
	switch {
	case err == nil:
		logger.Debugf("payment log deduplicated action=%s id=%d", entry.Action, existing.ID)
		return existing, nil
	case !errors.Is(err, repositories.ErrPaymentLogNotFound):
		// a failed lookup must not lose the record
		logger.Warnf("payment log dedup lookup failed action=%s: %v", entry.Action, err)
	}

	severity := entry.Severity
	if severity == "" {
		severity = models.SeverityInfo
	}
	info := RequestInfoFrom(ctx)

	record := &models.PaymentLog{
		ActorID:       models.ActorID(entry.Actor),
		Action:        entry.Action,
		StudentID:     entry.StudentID,
		CourseID:      entry.CourseID,
		TransactionID: entry.TransactionID,
		IPAddress:     info.IPAddress,
		UserAgent:     info.UserAgent,
		SessionID:     info.SessionID,
		Severity:      severity,
		Metadata:      models.JSON(metadata),
		CreatedAt:     now,
	}
	if entry.Amount != nil {
		record.Amount = decimal.NewNullDecimal(*entry.Amount)
	}

	if err := repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to write payment log: %w", err)
	}

	logger.Infof("Payment action: %s actor=%s student=%s amount=%s ip=%s",
		entry.Action, describeActor(entry.Actor), describeID(entry.StudentID), describeAmount(entry.Amount), orNA(info.IPAddress))
	return record, nil
}

func (s *Service) LogDeposit(ctx context.Context, actor *models.Actor, studentID uint, amount decimal.Decimal, txnID uint, reason string) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionDeposit,
		StudentID:     &studentID,
		Amount:        &amount,
		TransactionID: &txnID,
		Fields:        reasonField(reason),
	})
}

func (s *Service) LogWithdrawal(ctx context.Context, actor *models.Actor, studentID uint, amount decimal.Decimal, txnID uint, reason string) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionWithdrawal,
		StudentID:     &studentID,
		Amount:        &amount,
		TransactionID: &txnID,
		Fields:        reasonField(reason),
	})
}

func (s *Service) LogManualDeposit(ctx context.Context, actor *models.Actor, studentID uint, amount decimal.Decimal, txnID uint, reason string) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionManualDeposit,
		StudentID:     &studentID,
		Amount:        &amount,
		TransactionID: &txnID,
		Fields:        reasonField(reason),
	})
}

func (s *Service) LogPurchase(ctx context.Context, actor *models.Actor, studentID, courseID uint, amount decimal.Decimal, txnID uint) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionPurchase,
		StudentID:     &studentID,
		CourseID:      &courseID,
		Amount:        &amount,
		TransactionID: &txnID,
	})
}

func (s *Service) LogRefund(ctx context.Context, actor *models.Actor, studentID, courseID uint, amount decimal.Decimal, txnID uint, reason string) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionRefund,
		StudentID:     &studentID,
		CourseID:      &courseID,
		Amount:        &amount,
		TransactionID: &txnID,
		Fields:        reasonField(reason),
	})
}

func (s *Service) LogRecharge(ctx context.Context, actor *models.Actor, studentID uint, amount decimal.Decimal, code string, txnID uint) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:         actor,
		Action:        models.LogActionRechargeCodeUsed,
		StudentID:     &studentID,
		Amount:        &amount,
		TransactionID: &txnID,
		Metadata:      map[string]interface{}{"code": code},
	})
}

// LogPriceChange records a course price change. Amount is the difference
// between the new and the old price.
func (s *Service) LogPriceChange(ctx context.Context, actor *models.Actor, courseID uint, oldPrice, newPrice decimal.Decimal, reason string) (*models.PaymentLog, error) {
	diff := newPrice.Sub(oldPrice)
	metadata := map[string]interface{}{
		"old_price": oldPrice,
		"new_price": newPrice,
	}
	if reason != "" {
		metadata["reason"] = reason
	}
	return s.CreateLog(ctx, Entry{
		Actor:    actor,
		Action:   models.LogActionPriceChange,
		CourseID: &courseID,
		Amount:   &diff,
		Metadata: metadata,
	})
}

// LogBulkCodeGeneration records a generated batch with up to five sample
// codes.
func (s *Service) LogBulkCodeGeneration(ctx context.Context, actor *models.Actor, amount decimal.Decimal, codes []models.RechargeCode) (*models.PaymentLog, error) {
	count := len(codes)
	total := amount.Mul(decimal.NewFromInt(int64(count)))

	samples := make([]string, 0, 5)
	for i := 0; i < count && i < 5; i++ {
		samples = append(samples, codes[i].Code)
	}

	return s.CreateLog(ctx, Entry{
		Actor:  actor,
		Action: models.LogActionBulkCodeGeneration,
		Amount: &total,
		Metadata: map[string]interface{}{
			"count":           count,
			"amount_per_code": amount,
			"total_amount":    total,
			"sample_codes":    samples,
		},
	})
}

// LogSuspicious writes a high severity entry for a detected pattern.
func (s *Service) LogSuspicious(ctx context.Context, actor *models.Actor, action string, studentID uint, metadata map[string]interface{}) (*models.PaymentLog, error) {
	return s.CreateLog(ctx, Entry{
		Actor:     actor,
		Action:    action,
		StudentID: &studentID,
		Severity:  models.SeverityHigh,
		Metadata:  metadata,
	})
}

func reasonField(reason string) map[string]interface{} {
	if reason == "" {
		return nil
	}
	return map[string]interface{}{"reason": reason}
}

func describeActor(a *models.Actor) string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}

func describeID(id *uint) string {
	if id == nil {
		return "N/A"
	}
	return fmt.Sprint(*id)
}

func describeAmount(a *decimal.Decimal) string {
	if a == nil {
		return "N/A"
	}
	return a.StringFixed(2)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
