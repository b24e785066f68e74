package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursepay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseRepository struct {
	db *gorm.DB
}

func (r *purchaseRepository) GetActive(ctx context.Context, studentID, courseID uint, forUpdate bool) (*models.Purchase, error) {
	query := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND refunded = ?", studentID, courseID, false)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var purchase models.Purchase
	if err := query.First(&purchase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

func (r *purchaseRepository) MarkRefunded(ctx context.Context, purchase *models.Purchase) error {
	result := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND refunded = ?", purchase.ID, false).
		Updates(map[string]interface{}{
			"refunded":              true,
			"refunded_at":           purchase.RefundedAt,
			"refund_reason":         purchase.RefundReason,
			"refund_transaction_id": purchase.RefundTransactionID,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark purchase refunded: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("purchase %d already refunded: %w", purchase.ID, ErrConflict)
	}
	purchase.Refunded = true
	return nil
}

func (r *purchaseRepository) CountSince(ctx context.Context, studentID uint, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("student_id = ? AND purchased_at >= ?", studentID, since).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	return count, nil
}

func (r *purchaseRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("purchased_at DESC").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

func (r *purchaseRepository) CourseStats(ctx context.Context, courseID uint) (*models.CourseStats, error) {
	var row struct {
		TotalPurchases int64
		TotalRevenue   decimal.Decimal
		ActiveStudents int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("COUNT(*) AS total_purchases, COALESCE(SUM(amount), 0) AS total_revenue, COUNT(DISTINCT student_id) AS active_students").
		Where("course_id = ? AND refunded = ?", courseID, false).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate course stats: %w", err)
	}
	return &models.CourseStats{
		CourseID:       courseID,
		TotalPurchases: row.TotalPurchases,
		TotalRevenue:   row.TotalRevenue,
		ActiveStudents: row.ActiveStudents,
	}, nil
}

func (r *purchaseRepository) List(ctx context.Context) ([]models.Purchase, error) {
	var purchases []models.Purchase
	if err := r.db.WithContext(ctx).Order("id").Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
