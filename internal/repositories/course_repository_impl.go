package repositories

import (
	"context"
	"errors"
	"fmt"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type courseRepository struct {
	db *gorm.DB
}

// GetByID also returns soft-deleted courses so callers can tell "deleted"
// apart from "missing".
func (r *courseRepository) GetByID(ctx context.Context, id uint) (*models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Unscoped().First(&course, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	if err := r.db.WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *courseRepository) LockPrice(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND price_locked = ?", id, false).
		Update("price_locked", true)
	if result.Error != nil {
		return false, fmt.Errorf("failed to lock course price: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *courseRepository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(enrollment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to create enrollment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *courseRepository) DeleteEnrollment(ctx context.Context, studentID, courseID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete enrollment: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *courseRepository) IsEnrolled(ctx context.Context, studentID, courseID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (r *courseRepository) SaveStats(ctx context.Context, stats *models.CourseStats) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_purchases", "total_revenue", "active_students", "updated_at"}),
		}).
		Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to save course stats: %w", err)
	}
	return nil
}

func (r *courseRepository) UpdatePrice(ctx context.Context, id uint, price decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND price_locked = ?", id, false).
		Update("price", price)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update course price: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("id").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (r *courseRepository) ListStats(ctx context.Context) ([]models.CourseStats, error) {
	var stats []models.CourseStats
	if err := r.db.WithContext(ctx).Order("course_id").Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to list course stats: %w", err)
	}
	return stats, nil
}
