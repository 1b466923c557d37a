package repository

import (
	"context"

	"gorm.io/gorm"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

type gormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) owned(ctx context.Context, userID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.Notification{}).Where("user_id = ?", userID)
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Internal("Failed to create notification", err)
	}
	return nil
}

func (r *gormNotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	var list []*entity.Notification
	if err := r.owned(ctx, userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, apperrors.Internal("Failed to list notifications", err)
	}
	return list, nil
}

func (r *gormNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var cnt int64
	if err := r.owned(ctx, userID).
		Where("is_read = ?", false).
		Count(&cnt).Error; err != nil {
		return 0, apperrors.Internal("Failed to count notifications", err)
	}
	return cnt, nil
}

func (r *gormNotificationRepository) MarkRead(ctx context.Context, userID string, id uint64) error {
	res := r.owned(ctx, userID).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return apperrors.Internal("Failed to mark notification read", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	// some drivers report zero rows when the value did not change
	var cnt int64
	if err := r.owned(ctx, userID).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return apperrors.Internal("Failed to mark notification read", err)
	}
	if cnt == 0 {
		return apperrors.NotFound("Notification", nil)
	}
	return nil
}

func (r *gormNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.owned(ctx, userID).Where("is_read = ?", false).Update("is_read", true)
	if res.Error != nil {
		return 0, apperrors.Internal("Failed to mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *gormNotificationRepository) Delete(ctx context.Context, userID string, id uint64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&entity.Notification{})
	if res.Error != nil {
		return apperrors.Internal("Failed to delete notification", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification", nil)
	}
	return nil
}
