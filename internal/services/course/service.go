// Package course is the ledger's view of the course catalog: price locks,
// enrollments and purchase statistics.
package course

import (
	"context"
	"errors"
	"fmt"

	"coursepay/internal/clock"
	apperrors "coursepay/internal/errors"
	"coursepay/internal/logger"
	"coursepay/internal/models"
	"coursepay/internal/repositories"
	"coursepay/internal/services/paymentlog"

	"github.com/shopspring/decimal"
)

// StatsCache holds course statistics between refreshes.
type StatsCache interface {
	GetCourseStats(ctx context.Context, courseID uint) (*models.CourseStats, bool, error)
	SetCourseStats(ctx context.Context, stats *models.CourseStats) error
}

type Service struct {
	store repositories.Store
	cache StatsCache
	logs  *paymentlog.Service
	clock clock.Clock
}

// NewService wires the course collaborator. cache and logs are optional.
func NewService(store repositories.Store, cache StatsCache, logs *paymentlog.Service, clk clock.Clock) *Service {
	if store == nil {
		panic("store is required")
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Service{store: store, cache: cache, logs: logs, clock: clk}
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() || !price.Equal(price.Round(2)) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

// CreateCourse adds a course to the catalog.
func (s *Service) CreateCourse(ctx context.Context, c *models.Course) error {
	if c.Status == "" {
		c.Status = models.CourseStatusDraft
	}
	if err := validatePrice(c.Price); err != nil {
		return err
	}
	if err := s.store.Courses().Create(ctx, c); err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

// GetCourse reads a course through tx, or the service store when tx is nil.
func (s *Service) GetCourse(ctx context.Context, tx repositories.Store, courseID uint) (*models.Course, error) {
	if tx == nil {
		tx = s.store
	}
	c, err := tx.Courses().GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repositories.ErrCourseNotFound) {
			return nil, apperrors.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course %d: %w", courseID, err)
	}
	return c, nil
}

// LockCoursePrice freezes the price after the first sale. Repeated calls
// are no-ops.
func (s *Service) LockCoursePrice(ctx context.Context, tx repositories.Store, c *models.Course) error {
	if c.PriceLocked {
		return nil
	}
	changed, err := tx.Courses().LockPrice(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("failed to lock price of course %d: %w", c.ID, err)
	}
	if changed {
		logger.Infof("price of course %d locked at %s", c.ID, c.Price)
	}
	c.PriceLocked = true
	return nil
}

// UpdateCoursePrice changes the price of a course that has not been sold
// yet and records the change in the payment log.
func (s *Service) UpdateCoursePrice(ctx context.Context, actor models.Actor, courseID uint, newPrice decimal.Decimal, reason string) (*models.Course, error) {
	if !actor.IsAdmin() && actor.Role != models.RoleInstructor {
		return nil, apperrors.ErrForbidden
	}
	if err := validatePrice(newPrice); err != nil {
		return nil, err
	}

	var (
		c        *models.Course
		oldPrice decimal.Decimal
		changed  bool
	)
	err := s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		c, err = s.GetCourse(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if c.PriceLocked {
			return apperrors.ErrCoursePriceLocked
		}
		oldPrice = c.Price
		if oldPrice.Equal(newPrice) {
			return nil
		}

		updated, err := tx.Courses().UpdatePrice(ctx, courseID, newPrice)
		if err != nil {
			return fmt.Errorf("failed to update price of course %d: %w", courseID, err)
		}
		if !updated {
			// locked by a purchase between the read and the update
			return apperrors.ErrCoursePriceLocked
		}
		c.Price = newPrice
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed && s.logs != nil {
		if _, err := s.logs.LogPriceChange(ctx, &actor, courseID, oldPrice, newPrice, reason); err != nil {
			logger.Errorf("failed to log price change for course %d: %v", courseID, err)
		}
	}
	return c, nil
}

// ListCourses returns every course that is not soft-deleted.
func (s *Service) ListCourses(ctx context.Context) ([]models.Course, error) {
	courses, err := s.store.Courses().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *Service) EnrollStudent(ctx context.Context, tx repositories.Store, studentID, courseID uint) error {
	created, err := tx.Courses().CreateEnrollment(ctx, &models.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: s.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to enroll student %d in course %d: %w", studentID, courseID, err)
	}
	if !created {
		logger.Debugf("student %d already enrolled in course %d", studentID, courseID)
	}
	return nil
}

func (s *Service) UnenrollStudent(ctx context.Context, tx repositories.Store, studentID, courseID uint) error {
	removed, err := tx.Courses().DeleteEnrollment(ctx, studentID, courseID)
	if err != nil {
		return fmt.Errorf("failed to unenroll student %d from course %d: %w", studentID, courseID, err)
	}
	if !removed {
		logger.Debugf("student %d was not enrolled in course %d", studentID, courseID)
	}
	return nil
}

func (s *Service) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	return s.store.Courses().IsEnrolled(ctx, studentID, courseID)
}

// RefreshCourseStats recomputes the statistics from non-refunded purchases
// and stores them.
func (s *Service) RefreshCourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error) {
	stats, err := s.store.Purchases().CourseStats(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats for course %d: %w", courseID, err)
	}
	stats.UpdatedAt = s.clock.Now()
	if err := s.store.Courses().SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to save stats for course %d: %w", courseID, err)
	}
	if s.cache != nil {
		if err := s.cache.SetCourseStats(ctx, stats); err != nil {
			logger.Warnf("failed to cache stats for course %d: %v", courseID, err)
		}
	}
	logger.Debugf("course %d stats refreshed: %d purchases, revenue %s", courseID, stats.TotalPurchases, stats.TotalRevenue)
	return stats, nil
}

// GetCourseStats serves cached statistics and refreshes them on a miss.
func (s *Service) GetCourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error) {
	if s.cache != nil {
		stats, ok, err := s.cache.GetCourseStats(ctx, courseID)
		if err != nil {
			logger.Warnf("course stats cache read failed for course %d: %v", courseID, err)
		} else if ok {
			return stats, nil
		}
	}
	return s.RefreshCourseStats(ctx, courseID)
}

// RefreshAllCourseStats recomputes the statistics of every course. A
// failing course does not stop the others; their errors are joined.
func (s *Service) RefreshAllCourseStats(ctx context.Context) (int, error) {
	courses, err := s.ListCourses(ctx)
	if err != nil {
		return 0, err
	}

	var (
		refreshed int
		errs      []error
	)
	for _, c := range courses {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.RefreshCourseStats(ctx, c.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}
