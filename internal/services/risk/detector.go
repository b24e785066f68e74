// Package risk flags unusual payment activity. Detection never blocks the
// operation being checked; it only writes high-severity audit entries.
package risk

import (
	"context"
	"fmt"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/logger"
	"coursepay/internal/metrics"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/services/paymentlog"
)

type Detector struct {
	store repositories.Store
	logs  *paymentlog.Service
	clock clock.Clock
	cfg   config.LedgerConfig
}

func NewDetector(store repositories.Store, logs *paymentlog.Service, clk clock.Clock, cfg config.LedgerConfig) *Detector {
	if store == nil {
		panic("store is required")
	}
	if logs == nil {
		panic("payment log service is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Detector{store: store, logs: logs, clock: clk, cfg: cfg.WithDefaults()}
}

// CheckRechargeCodeAttempt flags a student who redeemed more codes than the
// threshold within the trailing window. It reports whether the student was
// flagged.
func (d *Detector) CheckRechargeCodeAttempt(ctx context.Context, actor *models.Actor, studentID uint) (bool, error) {
	since := d.clock.Now().Add(-d.cfg.RechargeAttemptWindow)
	count, err := d.store.PaymentLogs().CountSince(ctx, models.LogActionRechargeCodeUsed, studentID, since)
	if err != nil {
		return false, fmt.Errorf("failed to count recharge attempts: %w", err)
	}
	if count <= int64(d.cfg.RechargeAttemptThreshold) {
		return false, nil
	}

	logger.Warnf("suspicious recharge activity: student %d redeemed %d codes in %s", studentID, count, d.cfg.RechargeAttemptWindow)
	return true, d.flag(ctx, actor, models.LogActionSuspiciousRecharge, studentID, count, d.cfg.RechargeAttemptThreshold, d.cfg.RechargeAttemptWindow.String())
}

// CheckPurchaseRate flags a student who bought more courses than the
// threshold within the trailing window.
func (d *Detector) CheckPurchaseRate(ctx context.Context, actor *models.Actor, studentID uint) (bool, error) {
	since := d.clock.Now().Add(-d.cfg.PurchaseRateWindow)
	count, err := d.store.Purchases().CountSince(ctx, studentID, since)
	if err != nil {
		return false, fmt.Errorf("failed to count purchases: %w", err)
	}
	if count <= int64(d.cfg.PurchaseRateThreshold) {
		return false, nil
	}

	logger.Warnf("suspicious purchase rate: student %d made %d purchases in %s", studentID, count, d.cfg.PurchaseRateWindow)
	return true, d.flag(ctx, actor, models.LogActionSuspiciousPurchases, studentID, count, d.cfg.PurchaseRateThreshold, d.cfg.PurchaseRateWindow.String())
}

func (d *Detector) flag(ctx context.Context, actor *models.Actor, action string, studentID uint, count int64, threshold int, window string) error {
	metrics.RecordSuspiciousActivity(action)
	_, err := d.logs.LogSuspicious(ctx, actor, action, studentID, map[string]interface{}{
		"count":     count,
		"threshold": threshold,
		"window":    window,
	})
	if err != nil {
		return fmt.Errorf("failed to log suspicious activity: %w", err)
	}
	return nil
}
