package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

type gormPriceAlertRepository struct {
	db *gorm.DB
}

func NewGormPriceAlertRepository(db *gorm.DB) repository.PriceAlertRepository {
	return &gormPriceAlertRepository{db: db}
}

func (r *gormPriceAlertRepository) FindActive(ctx context.Context, userID string, listingID uint64) (*entity.PriceAlert, error) {
	var alert entity.PriceAlert
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ? AND is_active = ?", userID, listingID, true).
		Order("id DESC").
		First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Price alert", err)
		}
		return nil, apperrors.Internal("Failed to get price alert", err)
	}
	return &alert, nil
}

func (r *gormPriceAlertRepository) Create(ctx context.Context, alert *entity.PriceAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return apperrors.Internal("Failed to create price alert", err)
	}
	return nil
}

func (r *gormPriceAlertRepository) Update(ctx context.Context, alert *entity.PriceAlert) error {
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return apperrors.Internal("Failed to update price alert", err)
	}
	return nil
}

func (r *gormPriceAlertRepository) ListByUser(ctx context.Context, userID string) ([]*entity.PriceAlert, error) {
	var alerts []*entity.PriceAlert
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&alerts).Error; err != nil {
		return nil, apperrors.Internal("Failed to list price alerts", err)
	}
	return alerts, nil
}

func (r *gormPriceAlertRepository) Delete(ctx context.Context, userID string, id uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entity.PriceAlert{})
	if res.Error != nil {
		return apperrors.Internal("Failed to delete price alert", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Price alert", nil)
	}
	return nil
}

func (r *gormPriceAlertRepository) ListPending(ctx context.Context) ([]*entity.PriceAlert, error) {
	var alerts []*entity.PriceAlert
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND notified = ?", true, false).
		Order("id ASC").
		Find(&alerts).Error; err != nil {
		return nil, apperrors.Internal("Failed to list pending price alerts", err)
	}
	return alerts, nil
}
