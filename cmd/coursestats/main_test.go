package main

import (
	"context"
	"testing"
	"time"

	"coursepay/internal/clock"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/models"
	"coursepay/internal/repositories/memory"
	"coursepay/internal/services/course"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsValidate(t *testing.T) {
	assert.Error(t, options{}.validate())
	assert.Error(t, options{CourseID: 3, All: true}.validate())
	assert.NoError(t, options{CourseID: 3}.validate())
	assert.NoError(t, options{All: true}.validate())
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := course.NewService(store, nil, nil, clock.NewFixed(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)))

	for _, title := range []string{"Physics", "Chemistry"} {
		require.NoError(t, svc.CreateCourse(ctx, &models.Course{Title: title, Price: decimal.NewFromInt(30)}))
	}

	require.NoError(t, refresh(ctx, svc, options{All: true}))
	stats, err := store.Courses().ListStats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 2)

	require.NoError(t, refresh(ctx, svc, options{CourseID: 1}))
	assert.ErrorIs(t, refresh(ctx, svc, options{CourseID: 99}), apperrors.ErrCourseNotFound)
}
