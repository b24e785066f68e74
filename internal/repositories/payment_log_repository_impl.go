package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/models"

	"gorm.io/gorm"
)

type paymentLogRepository struct {
	db *gorm.DB
}

func (r *paymentLogRepository) Create(ctx context.Context, entry *models.PaymentLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create payment log: %w", err)
	}
	return nil
}

func (r *paymentLogRepository) FindRecent(ctx context.Context, filter models.PaymentLogFilter, since time.Time) (*models.PaymentLog, error) {
	query := r.db.WithContext(ctx).Where("action = ? AND created_at >= ?", filter.Action, since)
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}
	if filter.TransactionID != nil {
		query = query.Where("transaction_id = ?", *filter.TransactionID)
	}
	if filter.Amount != nil {
		query = query.Where("amount = ?", *filter.Amount)
	}

	var entry models.PaymentLog
	if err := query.Order("created_at DESC").First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentLogNotFound
		}
		return nil, fmt.Errorf("failed to find payment log: %w", err)
	}
	return &entry, nil
}

func (r *paymentLogRepository) CountSince(ctx context.Context, action string, studentID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentLog{}).
		Where("action = ? AND student_id = ? AND created_at >= ?", action, studentID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count payment logs: %w", err)
	}
	return count, nil
}
