package repositories

import (
	"context"
	"errors"
	"fmt"

	"coursepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rechargeCodeRepository struct {
	db *gorm.DB
}

func (r *rechargeCodeRepository) Create(ctx context.Context, code *models.RechargeCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to create recharge code: %w", err)
	}
	return nil
}

func (r *rechargeCodeRepository) GetByCodeForUpdate(ctx context.Context, code string) (*models.RechargeCode, error) {
	var rc models.RechargeCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&rc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRechargeCodeNotFound
		}
		return nil, fmt.Errorf("failed to lock recharge code: %w", err)
	}
	return &rc, nil
}

func (r *rechargeCodeRepository) MarkUsed(ctx context.Context, code *models.RechargeCode) error {
	result := r.db.WithContext(ctx).
		Model(&models.RechargeCode{}).
		Where("id = ? AND is_used = ?", code.ID, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_by_id": code.UsedByID,
			"used_at":    code.UsedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark recharge code used: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("recharge code %d already used: %w", code.ID, ErrConflict)
	}
	code.IsUsed = true
	return nil
}

func (r *rechargeCodeRepository) List(ctx context.Context) ([]models.RechargeCode, error) {
	var codes []models.RechargeCode
	if err := r.db.WithContext(ctx).Order("id").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list recharge codes: %w", err)
	}
	return codes, nil
}
