package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursepay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coursepay_ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_ledger_operations_total",
			Help: "Total number of ledger operations by result",
		},
		[]string{"operation", "result"},
	)

	OperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_ledger_errors_total",
			Help: "Total number of ledger operation errors",
		},
		[]string{"operation", "type"},
	)

	OperationRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_ledger_retries_total",
			Help: "Total number of retried ledger transactions",
		},
		[]string{"operation"},
	)

	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_transactions_total",
			Help: "Total number of posted wallet transactions",
		},
		[]string{"type"},
	)

	TransactionAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_transaction_amount_total",
			Help: "Absolute value of posted wallet transactions",
		},
		[]string{"type"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"key", "result"},
	)

	RechargeCodesGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coursepay_recharge_codes_generated_total",
			Help: "Total number of recharge codes generated",
		},
	)

	SuspiciousActivityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coursepay_suspicious_activity_total",
			Help: "Total number of suspicious activity detections",
		},
		[]string{"action"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordRechargeCodesGenerated(n int) {
	RechargeCodesGeneratedTotal.Add(float64(n))
}

func RecordSuspiciousActivity(action string) {
	SuspiciousActivityTotal.WithLabelValues(action).Inc()
}

// Collector records ledger service metrics into the package collectors.
type Collector struct{}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) RecordOperationDuration(operation string, duration time.Duration) {
	OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordOperationResult(operation, result string) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
}

func (c *Collector) RecordCacheHit(key string) {
	CacheRequestsTotal.WithLabelValues(key, "hit").Inc()
}

func (c *Collector) RecordCacheMiss(key string) {
	CacheRequestsTotal.WithLabelValues(key, "miss").Inc()
}

func (c *Collector) RecordError(operation, errType string) {
	OperationErrorsTotal.WithLabelValues(operation, errType).Inc()
}

func (c *Collector) RecordTransaction(txType string, amount decimal.Decimal) {
	TransactionsTotal.WithLabelValues(txType).Inc()
	f, _ := amount.Abs().Float64()
	TransactionAmountTotal.WithLabelValues(txType).Add(f)
}

func (c *Collector) RecordRetry(operation string) {
	OperationRetriesTotal.WithLabelValues(operation).Inc()
}
