package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	"coursepay/internal/models"
	"coursepay/internal/repositories/memory"
	"coursepay/internal/services/course"
	"coursepay/internal/services/paymentlog"
	"coursepay/internal/services/purchase"
	"coursepay/internal/services/rechargecode"
	"coursepay/internal/services/risk"
	"coursepay/internal/services/wallet"
	"coursepay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testApp struct {
	app     *fiber.App
	courses *course.Service
	store   *memory.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memory.NewStore()
	clk := clock.RealClock{}
	cfg := config.LedgerConfig{}

	logs := paymentlog.NewService(store, clk, cfg)
	detector := risk.NewDetector(store, logs, clk, cfg)
	courses := course.NewService(store, nil, logs, clk)

	app := fiber.New()
	SetupRoutes(app, Dependencies{
		JWTSecret:       testSecret,
		WalletService:   wallet.NewService(store, nil, logs, clk, cfg, nil),
		PurchaseService: purchase.NewService(store, courses, nil, logs, detector, nil, clk, cfg, nil),
		CodeService:     rechargecode.NewService(store, logs, detector, nil, nil, clk, cfg, nil),
		CourseService:   courses,
	})
	return &testApp{app: app, courses: courses, store: store}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	signed, err := utils.GenerateToken(testSecret, userID, "", role, time.Hour)
	require.NoError(t, err)
	return signed
}

func (a *testApp) do(t *testing.T, method, path, bearer string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out["raw"] = string(raw)
	}
	return resp, out
}

func TestHealthAndMetrics(t *testing.T) {
	a := newTestApp(t)

	resp, body := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body["raw"], "coursepay_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.do(t, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/wallet", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	student := token(t, 7, models.RoleStudent)
	resp, _ = a.do(t, http.MethodPost, "/api/admin/wallets/7/deposit", student, map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPurchaseFlow(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)
	student := token(t, 7, models.RoleStudent)

	c := &models.Course{Title: "Geometry", Price: decimal.NewFromInt(60), Status: models.CourseStatusPublished}
	require.NoError(t, a.courses.CreateCourse(context.Background(), c))

	resp, _ := a.do(t, http.MethodPost, "/api/admin/wallets/7/deposit", admin, map[string]string{"amount": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := a.do(t, http.MethodGet, "/api/wallet", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100.00", body["balance"])

	resp, _ = a.do(t, http.MethodPost, "/api/wallet/purchases", student, map[string]uint{"course_id": c.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = a.do(t, http.MethodPost, "/api/wallet/purchases", student, map[string]uint{"course_id": c.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ALREADY_PURCHASED", body["code"])

	resp, body = a.do(t, http.MethodGet, "/api/wallet", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "40.00", body["balance"])

	resp, _ = a.do(t, http.MethodPost, "/api/admin/purchases/refund", admin, map[string]interface{}{
		"student_id": 7, "course_id": c.ID, "reason": "duplicate enrollment",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = a.do(t, http.MethodGet, "/api/wallet", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "100.00", body["balance"])

	resp, body = a.do(t, http.MethodPost, "/api/admin/purchases/refund", admin, map[string]interface{}{
		"student_id": 7, "course_id": c.ID,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NO_ACTIVE_PURCHASE", body["code"])
}

func TestWalletErrors(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)

	resp, body := a.do(t, http.MethodPost, "/api/admin/wallets/7/withdraw", admin, map[string]string{"amount": "10"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_BALANCE", body["code"])

	resp, body = a.do(t, http.MethodPost, "/api/admin/wallets/7/deposit", admin, map[string]string{"amount": "-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_AMOUNT", body["code"])

	resp, body = a.do(t, http.MethodPost, "/api/admin/wallets/7/manual-deposit", admin, map[string]string{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "REASON_REQUIRED", body["code"])

	resp, _ = a.do(t, http.MethodPost, "/api/admin/wallets/abc/deposit", admin, map[string]string{"amount": "5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRechargeCodeFlow(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)
	student := token(t, 7, models.RoleStudent)

	resp, body := a.do(t, http.MethodPost, "/api/admin/recharge-codes", admin, map[string]interface{}{
		"amount": "50", "count": 2, "prefix": "EDU-",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	codes := body["codes"].([]interface{})
	require.Len(t, codes, 2)
	code := codes[0].(map[string]interface{})["code"].(string)

	resp, _ = a.do(t, http.MethodPost, "/api/wallet/redeem", student, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = a.do(t, http.MethodPost, "/api/wallet/redeem", student, map[string]string{"code": code})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "CODE_ALREADY_USED", body["code"])

	resp, body = a.do(t, http.MethodGet, "/api/wallet", student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "50.00", body["balance"])
}

func TestGenerateCodesCSV(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)

	resp, body := a.do(t, http.MethodPost, "/api/admin/recharge-codes", admin, map[string]interface{}{
		"amount": "25", "count": 3, "format": "csv", "expires_in_days": 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "recharge_codes.csv")

	lines := strings.Split(strings.TrimSpace(body["raw"].(string)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Code,Amount,Expires At,Created At", lines[0])
	assert.True(t, strings.Contains(lines[1], ",25.00,"), fmt.Sprintf("unexpected row %q", lines[1]))
}

func TestGenerateCodes_CountBounds(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)

	for _, count := range []int{0, 1001} {
		resp, _ := a.do(t, http.MethodPost, "/api/admin/recharge-codes", admin, map[string]interface{}{
			"amount": "25", "count": count,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, count)
	}
}

func TestCourseAdminFlow(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)
	student := token(t, 7, models.RoleStudent)

	resp, body := a.do(t, http.MethodPost, "/api/admin/courses", admin, map[string]string{
		"title": "Algebra", "price": "40", "status": models.CourseStatusPublished,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := body["course"].(map[string]interface{})
	courseID := uint(created["id"].(float64))

	path := fmt.Sprintf("/api/admin/courses/%d/price", courseID)
	resp, body = a.do(t, http.MethodPatch, path, admin, map[string]string{"price": "50", "reason": "new syllabus"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	price := body["course"].(map[string]interface{})["price"].(string)
	assert.True(t, decimal.RequireFromString(price).Equal(decimal.NewFromInt(50)))

	entry, err := a.store.PaymentLogs().FindRecent(context.Background(), models.PaymentLogFilter{
		Action:   models.LogActionPriceChange,
		CourseID: &courseID,
	}, time.Time{})
	require.NoError(t, err)
	assert.True(t, entry.Amount.Decimal.Equal(decimal.NewFromInt(10)))

	resp, _ = a.do(t, http.MethodGet, "/api/courses", student, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/api/admin/wallets/7/deposit", admin, map[string]string{"amount": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = a.do(t, http.MethodPost, "/api/wallet/purchases", student, map[string]uint{"course_id": courseID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = a.do(t, http.MethodPatch, path, admin, map[string]string{"price": "55"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "COURSE_PRICE_LOCKED", body["code"])

	resp, body = a.do(t, http.MethodPost, "/api/admin/courses/stats/refresh", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["refreshed"])

	resp, body = a.do(t, http.MethodGet, fmt.Sprintf("/api/admin/courses/%d/stats", courseID), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["total_purchases"])
	assert.True(t, decimal.RequireFromString(stats["total_revenue"].(string)).Equal(decimal.NewFromInt(50)))
}

func TestCourseAdminValidation(t *testing.T) {
	a := newTestApp(t)
	admin := token(t, 1, models.RoleAdmin)
	student := token(t, 7, models.RoleStudent)

	resp, body := a.do(t, http.MethodPost, "/api/admin/courses", admin, map[string]string{"price": "10", "status": "live"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "status")

	resp, _ = a.do(t, http.MethodPost, "/api/admin/courses", admin, map[string]string{"title": "Bad", "price": "10.005"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/api/admin/courses", student, map[string]string{"title": "Nope", "price": "10"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/admin/courses/999/stats", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
