package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration)  {}
func (n *NoopMetricsCollector) RecordOperationResult(string, string)           {}
func (n *NoopMetricsCollector) RecordCacheHit(string)                          {}
func (n *NoopMetricsCollector) RecordCacheMiss(string)                         {}
func (n *NoopMetricsCollector) RecordError(string, string)                     {}
func (n *NoopMetricsCollector) RecordTransaction(string, decimal.Decimal)      {}
func (n *NoopMetricsCollector) RecordRetry(string)                             {}

// NoopBalanceCache never caches.
type NoopBalanceCache struct{}

func (NoopBalanceCache) GetBalance(context.Context, uint) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}
func (NoopBalanceCache) SetBalance(context.Context, uint, decimal.Decimal, time.Duration) error {
	return nil
}
func (NoopBalanceCache) InvalidateBalance(context.Context, uint) error { return nil }
