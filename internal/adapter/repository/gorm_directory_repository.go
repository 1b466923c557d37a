package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

type gormListingRepository struct {
	db *gorm.DB
}

func NewGormListingRepository(db *gorm.DB) repository.ListingRepository {
	return &gormListingRepository{db: db}
}

func (r *gormListingRepository) GetByID(ctx context.Context, id uint64) (*entity.Listing, error) {
	var listing entity.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Listing", err)
		}
		return nil, apperrors.Internal("Failed to get listing", err)
	}
	return &listing, nil
}

func (r *gormListingRepository) GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Listing, error) {
	result := make(map[uint64]*entity.Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var listings []*entity.Listing
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, apperrors.Internal("Failed to get listings", err)
	}
	for _, l := range listings {
		result[l.ID] = l
	}
	return result, nil
}

type gormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) repository.UserRepository {
	return &gormUserRepository{db: db}
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User", err)
		}
		return nil, apperrors.Internal("Failed to get user", err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	result := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []*entity.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperrors.Internal("Failed to get users", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
