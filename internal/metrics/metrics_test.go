package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/wallet/purchases", "200", 0.1)
	RecordHTTPRequest("POST", "/api/wallet/purchases", "200", 0.2)
	RecordHTTPRequest("POST", "/api/wallet/purchases", "409", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/purchases", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/purchases", "409")))
}

func TestCollector(t *testing.T) {
	OperationsTotal.Reset()
	OperationRetriesTotal.Reset()
	TransactionsTotal.Reset()
	TransactionAmountTotal.Reset()
	CacheRequestsTotal.Reset()
	OperationErrorsTotal.Reset()

	c := NewCollector()
	c.RecordOperationResult("purchase", "success")
	c.RecordRetry("purchase")
	c.RecordRetry("purchase")
	c.RecordTransaction("purchase", decimal.RequireFromString("-60.50"))
	c.RecordCacheHit("balance")
	c.RecordCacheMiss("balance")
	c.RecordError("purchase", "store")
	c.RecordOperationDuration("purchase", 20*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(OperationsTotal.WithLabelValues("purchase", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(OperationRetriesTotal.WithLabelValues("purchase")))
	assert.Equal(t, float64(1), testutil.ToFloat64(TransactionsTotal.WithLabelValues("purchase")))
	assert.InDelta(t, 60.5, testutil.ToFloat64(TransactionAmountTotal.WithLabelValues("purchase")), 0.001)
	assert.Equal(t, float64(1), testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("balance", "hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(CacheRequestsTotal.WithLabelValues("balance", "miss")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OperationErrorsTotal.WithLabelValues("purchase", "store")))
}

func TestRecordSuspiciousActivity(t *testing.T) {
	SuspiciousActivityTotal.Reset()

	RecordSuspiciousActivity("suspicious_recharge_attempts")
	RecordSuspiciousActivity("suspicious_recharge_attempts")

	assert.Equal(t, float64(2), testutil.ToFloat64(SuspiciousActivityTotal.WithLabelValues("suspicious_recharge_attempts")))
}

func TestRecordRechargeCodesGenerated(t *testing.T) {
	before := testutil.ToFloat64(RechargeCodesGeneratedTotal)
	RecordRechargeCodesGenerated(5)
	assert.Equal(t, before+5, testutil.ToFloat64(RechargeCodesGeneratedTotal))
}
