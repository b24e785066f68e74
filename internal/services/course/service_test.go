package course

import (
	"context"
	"sync"
	"testing"
	"time"

	"coursepay/internal/clock"
	"coursepay/internal/config"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/repositories/memory"
	"coursepay/internal/services/paymentlog"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statsCache struct {
	mu    sync.Mutex
	stats map[uint]models.CourseStats
	sets  int
}

func (c *statsCache) GetCourseStats(_ context.Context, courseID uint) (*models.CourseStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[courseID]
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (c *statsCache) SetCourseStats(_ context.Context, stats *models.CourseStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats[stats.CourseID] = *stats
	c.sets++
	return nil
}

func newTestService() (*Service, *memory.Store, *statsCache) {
	store := memory.NewStore()
	cache := &statsCache{stats: make(map[uint]models.CourseStats)}
	clk := clock.NewFixed(time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC))
	logs := paymentlog.NewService(store, clk, config.LedgerConfig{})
	return NewService(store, cache, logs, clk), store, cache
}

func TestGetCourse(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c := &models.Course{Title: "Algebra", Price: decimal.NewFromInt(60), Status: models.CourseStatusPublished}
	require.NoError(t, svc.CreateCourse(ctx, c))

	got, err := svc.GetCourse(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got.Title)

	_, err = svc.GetCourse(ctx, nil, 999)
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)
}

func TestLockCoursePrice_Idempotent(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	c := &models.Course{Title: "Physics", Price: decimal.NewFromInt(80), Status: models.CourseStatusPublished}
	require.NoError(t, svc.CreateCourse(ctx, c))

	err := store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		if err := svc.LockCoursePrice(ctx, tx, c); err != nil {
			return err
		}
		return svc.LockCoursePrice(ctx, tx, c)
	})
	require.NoError(t, err)

	got, err := svc.GetCourse(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.True(t, got.PriceLocked)
}

func TestEnrollment_Tolerant(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.EnrollStudent(ctx, store, 4, 9))
	require.NoError(t, svc.EnrollStudent(ctx, store, 4, 9))

	enrolled, err := svc.IsEnrolled(ctx, 4, 9)
	require.NoError(t, err)
	assert.True(t, enrolled)

	require.NoError(t, svc.UnenrollStudent(ctx, store, 4, 9))
	require.NoError(t, svc.UnenrollStudent(ctx, store, 4, 9))

	enrolled, err = svc.IsEnrolled(ctx, 4, 9)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestRefreshCourseStats(t *testing.T) {
	svc, store, cache := newTestService()
	ctx := context.Background()

	purchases := []models.Purchase{
		{StudentID: 1, CourseID: 3, Amount: decimal.NewFromInt(60), TransactionID: 11},
		{StudentID: 2, CourseID: 3, Amount: decimal.NewFromInt(60), TransactionID: 12},
		{StudentID: 3, CourseID: 4, Amount: decimal.NewFromInt(90), TransactionID: 13},
	}
	for i := range purchases {
		require.NoError(t, store.Purchases().Create(ctx, &purchases[i]))
	}

	stats, err := svc.RefreshCourseStats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalPurchases)
	assert.Equal(t, int64(2), stats.ActiveStudents)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 1, cache.sets)

	cached, err := svc.GetCourseStats(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cached.TotalPurchases)
	assert.Equal(t, 1, cache.sets)
}

func TestGetCourseStats_MissRefreshes(t *testing.T) {
	svc, _, cache := newTestService()

	stats, err := svc.GetCourseStats(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalPurchases)
	assert.Equal(t, 1, cache.sets)
}

func TestUpdateCoursePrice(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}

	c := &models.Course{Title: "Algebra", Price: decimal.NewFromInt(60), Status: models.CourseStatusPublished}
	require.NoError(t, svc.CreateCourse(ctx, c))

	updated, err := svc.UpdateCoursePrice(ctx, admin, c.ID, decimal.NewFromInt(75), "new syllabus")
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(75)))

	stored, err := svc.GetCourse(ctx, nil, c.ID)
	require.NoError(t, err)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(75)))

	entry, err := store.PaymentLogs().FindRecent(ctx, models.PaymentLogFilter{
		Action:   models.LogActionPriceChange,
		CourseID: &c.ID,
	}, time.Time{})
	require.NoError(t, err)
	assert.True(t, entry.Amount.Decimal.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "60", entry.Metadata["old_price"])
	assert.Equal(t, "75", entry.Metadata["new_price"])
	assert.Equal(t, "new syllabus", entry.Metadata["reason"])
}

func TestUpdateCoursePrice_Rejections(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}

	c := &models.Course{Title: "Physics", Price: decimal.NewFromInt(80), Status: models.CourseStatusPublished}
	require.NoError(t, svc.CreateCourse(ctx, c))

	_, err := svc.UpdateCoursePrice(ctx, models.Actor{ID: 7, Role: models.RoleStudent}, c.ID, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.UpdateCoursePrice(ctx, admin, c.ID, decimal.RequireFromString("10.005"), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = svc.UpdateCoursePrice(ctx, admin, 999, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, apperrors.ErrCourseNotFound)

	require.NoError(t, svc.LockCoursePrice(ctx, store, c))
	_, err = svc.UpdateCoursePrice(ctx, admin, c.ID, decimal.NewFromInt(10), "")
	assert.ErrorIs(t, err, apperrors.ErrCoursePriceLocked)

	_, err = store.PaymentLogs().FindRecent(ctx, models.PaymentLogFilter{Action: models.LogActionPriceChange}, time.Time{})
	assert.ErrorIs(t, err, repositories.ErrPaymentLogNotFound)
}

func TestUpdateCoursePrice_UnchangedIsNotLogged(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	c := &models.Course{Title: "Chemistry", Price: decimal.NewFromInt(40), Status: models.CourseStatusPublished}
	require.NoError(t, svc.CreateCourse(ctx, c))

	_, err := svc.UpdateCoursePrice(ctx, models.Actor{ID: 2, Role: models.RoleInstructor}, c.ID, decimal.NewFromInt(40), "")
	require.NoError(t, err)

	_, err = store.PaymentLogs().FindRecent(ctx, models.PaymentLogFilter{Action: models.LogActionPriceChange}, time.Time{})
	assert.ErrorIs(t, err, repositories.ErrPaymentLogNotFound)
}

func TestRefreshAllCourseStats(t *testing.T) {
	svc, store, cache := newTestService()
	ctx := context.Background()

	for _, title := range []string{"A", "B", "C"} {
		require.NoError(t, svc.CreateCourse(ctx, &models.Course{Title: title, Price: decimal.NewFromInt(10)}))
	}
	courses, err := svc.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 3)

	p := models.Purchase{StudentID: 5, CourseID: courses[1].ID, Amount: decimal.NewFromInt(10), TransactionID: 21}
	require.NoError(t, store.Purchases().Create(ctx, &p))

	n, err := svc.RefreshAllCourseStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, cache.sets)
	assert.Equal(t, int64(1), cache.stats[courses[1].ID].TotalPurchases)
}
