package rechargecode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/models"
	"coursepay/internal/repositories/memory"
	"coursepay/internal/services/paymentlog"
	"coursepay/internal/services/risk"
	"coursepay/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc     *Service
	wallets wallet.Service
	store   *memory.Store
	clock   *clock.Fixed
}

var (
	admin   = models.Actor{ID: 1, Role: models.RoleAdmin}
	student = models.Actor{ID: 7, Role: models.RoleStudent}
)

func newTestEnv() *testEnv {
	store := memory.NewStore()
	clk := clock.NewFixed(time.Date(2026, 7, 20, 11, 30, 0, 0, time.UTC))
	cfg := config.LedgerConfig{}
	logs := paymentlog.NewService(store, clk, cfg)
	detector := risk.NewDetector(store, logs, clk, cfg)
	return &testEnv{
		svc:     NewService(store, logs, detector, nil, nil, clk, cfg, nil),
		wallets: wallet.NewService(store, nil, logs, clk, cfg, nil),
		store:   store,
		clock:   clk,
	}
}

func (e *testEnv) balance(t *testing.T, studentID uint) decimal.Decimal {
	t.Helper()
	b, err := e.wallets.GetBalance(context.Background(), studentID)
	require.NoError(t, err)
	return b
}

func TestGenerateCodes(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	expires := env.clock.Now().Add(30 * 24 * time.Hour)

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(50), 5, "EDU-", &expires, &admin)
	require.NoError(t, err)
	require.Len(t, codes, 5)

	seen := map[string]bool{}
	for _, c := range codes {
		assert.True(t, strings.HasPrefix(c.Code, "EDU-"))
		assert.Len(t, c.Code, 4+14)
		assert.LessOrEqual(t, len(c.Code), config.MaxRechargeCodeLength)
		assert.True(t, c.Amount.Equal(decimal.NewFromInt(50)))
		assert.False(t, c.IsUsed)
		require.NotNil(t, c.CreatedByID)
		assert.Equal(t, uint(1), *c.CreatedByID)
		assert.False(t, seen[c.Code])
		seen[c.Code] = true
	}

	entry, err := env.store.PaymentLogs().FindRecent(ctx, models.PaymentLogFilter{
		Action: models.LogActionBulkCodeGeneration,
	}, env.clock.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "250", entry.Amount.Decimal.String())
	assert.EqualValues(t, 5, entry.Metadata["count"])
}

func TestGenerateCodes_Validation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	past := env.clock.Now().Add(-time.Hour)

	_, err := env.svc.GenerateCodes(ctx, decimal.Zero, 1, "", nil, &admin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = env.svc.GenerateCodes(ctx, decimal.NewFromInt(10), 0, "", nil, &admin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCodeRequest)

	_, err = env.svc.GenerateCodes(ctx, decimal.NewFromInt(10), 1, strings.Repeat("X", 37), nil, &admin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCodeRequest)

	_, err = env.svc.GenerateCodes(ctx, decimal.NewFromInt(10), 1, "", &past, &admin)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCodeRequest)

	_, err = env.svc.GenerateCodes(ctx, decimal.NewFromInt(10), 1, "", nil, &student)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGenerateCodes_RegeneratesOnCollision(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	candidates := []string{"A", "A", "A", "B"}
	env.svc.generate = func(prefix string) (string, error) {
		next := candidates[0]
		candidates = candidates[1:]
		return prefix + next, nil
	}

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(20), 2, "P-", nil, nil)
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, "P-A", codes[0].Code)
	assert.Equal(t, "P-B", codes[1].Code)

	for _, c := range []string{"P-A", "P-B"} {
		_, err := env.store.RechargeCodes().GetByCodeForUpdate(ctx, c)
		assert.NoError(t, err)
	}
}

func TestGenerateCodes_GivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.svc.generate = func(prefix string) (string, error) {
		return prefix + "SAME", nil
	}

	_, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(20), 2, "", nil, nil)
	require.Error(t, err)

	_, err = env.store.RechargeCodes().GetByCodeForUpdate(ctx, "SAME")
	assert.Error(t, err, "batch must roll back as a whole")
}

func TestRedeemCodeScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(50), 1, "", nil, &admin)
	require.NoError(t, err)
	code := codes[0].Code

	txn, err := env.svc.RedeemCode(ctx, student, code)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeRechargeCode, txn.Type)
	assert.Equal(t, models.PaymentMethodRechargeCode, txn.PaymentMethod)
	require.NotNil(t, txn.RechargeCodeID)
	assert.Equal(t, codes[0].ID, *txn.RechargeCodeID)
	assert.True(t, env.balance(t, 7).Equal(decimal.NewFromInt(50)))

	rc, err := env.store.RechargeCodes().GetByCodeForUpdate(ctx, code)
	require.NoError(t, err)
	assert.True(t, rc.IsUsed)
	require.NotNil(t, rc.UsedByID)
	assert.Equal(t, uint(7), *rc.UsedByID)
	assert.False(t, env.svc.IsValid(rc))

	_, err = env.svc.RedeemCode(ctx, student, code)
	assert.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
	assert.True(t, env.balance(t, 7).Equal(decimal.NewFromInt(50)))
}

func TestRedeemCode_Rejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	expires := env.clock.Now().Add(time.Hour)

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(50), 1, "", &expires, &admin)
	require.NoError(t, err)

	_, err = env.svc.RedeemCode(ctx, student, "does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)

	_, err = env.svc.RedeemCode(ctx, student, "   ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)

	_, err = env.svc.RedeemCode(ctx, admin, codes[0].Code)
	assert.ErrorIs(t, err, apperrors.ErrNotStudent)

	env.clock.Advance(2 * time.Hour)
	_, err = env.svc.RedeemCode(ctx, student, codes[0].Code)
	assert.ErrorIs(t, err, apperrors.ErrCodeExpired)
	assert.True(t, env.balance(t, 7).IsZero())
}

func TestRedeemCode_ConcurrentRedeemSucceedsOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(50), 1, "", nil, &admin)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := env.svc.RedeemCode(ctx, models.Actor{ID: id, Role: models.RoleStudent}, codes[0].Code)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
		}(uint(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	total := decimal.Zero
	for i := 0; i < 8; i++ {
		total = total.Add(env.balance(t, uint(100+i)))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(50)))
}

func TestRedeemCode_FlagsRapidRedemptions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(5), 5, "", nil, &admin)
	require.NoError(t, err)

	for _, c := range codes {
		_, err := env.svc.RedeemCode(ctx, student, c.Code)
		require.NoError(t, err)
		env.clock.Advance(10 * time.Second)
	}

	count, err := env.store.PaymentLogs().CountSince(ctx, models.LogActionSuspiciousRecharge, 7, env.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, env.balance(t, 7).Equal(decimal.NewFromInt(25)))
}

func TestRedeemCode_SuspiciousFlagSurvivesFailedRedemption(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	codes, err := env.svc.GenerateCodes(ctx, decimal.NewFromInt(5), 5, "", nil, &admin)
	require.NoError(t, err)
	for _, c := range codes[:4] {
		_, err := env.svc.RedeemCode(ctx, student, c.Code)
		require.NoError(t, err)
	}

	env.store.FailNextCommits(1, errors.New("commit failed"))
	_, err = env.svc.RedeemCode(ctx, student, codes[4].Code)
	require.Error(t, err)

	count, err := env.store.PaymentLogs().CountSince(ctx, models.LogActionSuspiciousRecharge, 7, env.clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, env.balance(t, 7).Equal(decimal.NewFromInt(20)))

	stored, err := env.store.RechargeCodes().List(ctx)
	require.NoError(t, err)
	for _, rc := range stored {
		if rc.Code == codes[4].Code {
			assert.False(t, rc.IsUsed)
		}
	}
}

func TestExportCSV(t *testing.T) {
	created := time.Date(2026, 7, 20, 11, 30, 0, 0, time.UTC)
	expires := created.Add(48 * time.Hour)
	codes := []models.RechargeCode{
		{Code: "EDU-abc", Amount: decimal.NewFromInt(50), ExpiresAt: &expires, CreatedAt: created},
		{Code: "EDU-def", Amount: decimal.RequireFromString("12.5"), CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, codes))

	want := fmt.Sprintf("Code,Amount,Expires At,Created At\n"+
		"EDU-abc,50.00,2026-07-22 11:30:00,%[1]s\n"+
		"EDU-def,12.50,,%[1]s\n", "2026-07-20 11:30:00")
	assert.Equal(t, want, buf.String())
}
