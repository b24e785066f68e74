package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ledger defaults.
const (
	DefaultMaxRetryAttempts          = 3
	DefaultRetryBackoff              = 100 * time.Millisecond
	DefaultLogDedupWindow            = 5 * time.Second
	DefaultRechargeAttemptWindow     = 5 * time.Minute
	DefaultRechargeAttemptThreshold  = 3
	DefaultPurchaseRateWindow        = 10 * time.Minute
	DefaultPurchaseRateThreshold     = 5
	DefaultCurrency                  = "EGP"
	DefaultCodeTokenBytes            = 10
	DefaultMaxCodeGenerationAttempts = 5
	DefaultBalanceCacheTTL           = 30 * time.Second
	MaxRechargeCodeLength            = 50
)

// LedgerConfig carries the limits shared by the wallet, purchase and
// recharge services. Zero values are replaced by defaults in WithDefaults.
type LedgerConfig struct {
	MaxRetryAttempts int
	RetryBackoff     time.Duration

	// Zero disables the limit.
	MaxWalletBalance  decimal.Decimal
	MaxDailyPurchases int

	LogDedupWindow time.Duration

	RechargeAttemptWindow    time.Duration
	RechargeAttemptThreshold int
	PurchaseRateWindow       time.Duration
	PurchaseRateThreshold    int

	Currency                  string
	CodeTokenBytes            int
	MaxCodeGenerationAttempts int
	BalanceCacheTTL           time.Duration
}

// WithDefaults returns a copy with every unset field filled in.
func (c LedgerConfig) WithDefaults() LedgerConfig {
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.LogDedupWindow <= 0 {
		c.LogDedupWindow = DefaultLogDedupWindow
	}
	if c.RechargeAttemptWindow <= 0 {
		c.RechargeAttemptWindow = DefaultRechargeAttemptWindow
	}
	if c.RechargeAttemptThreshold <= 0 {
		c.RechargeAttemptThreshold = DefaultRechargeAttemptThreshold
	}
	if c.PurchaseRateWindow <= 0 {
		c.PurchaseRateWindow = DefaultPurchaseRateWindow
	}
	if c.PurchaseRateThreshold <= 0 {
		c.PurchaseRateThreshold = DefaultPurchaseRateThreshold
	}
	if c.Currency == "" {
		c.Currency = DefaultCurrency
	}
	if c.CodeTokenBytes <= 0 {
		c.CodeTokenBytes = DefaultCodeTokenBytes
	}
	if c.MaxCodeGenerationAttempts <= 0 {
		c.MaxCodeGenerationAttempts = DefaultMaxCodeGenerationAttempts
	}
	if c.BalanceCacheTTL <= 0 {
		c.BalanceCacheTTL = DefaultBalanceCacheTTL
	}
	if c.MaxWalletBalance.IsNegative() {
		c.MaxWalletBalance = decimal.Zero
	}
	if c.MaxDailyPurchases < 0 {
		c.MaxDailyPurchases = 0
	}
	return c
}

// LoadLedgerConfig reads ledger limits from the environment.
func LoadLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxRetryAttempts:          GetIntEnv("LEDGER_MAX_RETRY_ATTEMPTS", DefaultMaxRetryAttempts),
		RetryBackoff:              GetDurationEnv("LEDGER_RETRY_BACKOFF", DefaultRetryBackoff),
		MaxWalletBalance:          GetDecimalEnv("LEDGER_MAX_WALLET_BALANCE", decimal.Zero),
		MaxDailyPurchases:         GetIntEnv("LEDGER_MAX_DAILY_PURCHASES", 0),
		LogDedupWindow:            GetDurationEnv("PAYMENT_LOG_DEDUP_WINDOW", DefaultLogDedupWindow),
		RechargeAttemptWindow:     GetDurationEnv("RISK_RECHARGE_WINDOW", DefaultRechargeAttemptWindow),
		RechargeAttemptThreshold:  GetIntEnv("RISK_RECHARGE_THRESHOLD", DefaultRechargeAttemptThreshold),
		PurchaseRateWindow:        GetDurationEnv("RISK_PURCHASE_WINDOW", DefaultPurchaseRateWindow),
		PurchaseRateThreshold:     GetIntEnv("RISK_PURCHASE_THRESHOLD", DefaultPurchaseRateThreshold),
		Currency:                  GetEnv("LEDGER_CURRENCY", DefaultCurrency),
		CodeTokenBytes:            GetIntEnv("RECHARGE_CODE_TOKEN_BYTES", DefaultCodeTokenBytes),
		MaxCodeGenerationAttempts: GetIntEnv("RECHARGE_CODE_MAX_ATTEMPTS", DefaultMaxCodeGenerationAttempts),
		BalanceCacheTTL:           GetDurationEnv("BALANCE_CACHE_TTL", DefaultBalanceCacheTTL),
	}.WithDefaults()
}
