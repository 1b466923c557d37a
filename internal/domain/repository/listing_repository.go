//go:generate go run go.uber.org/mock/mockgen -source=listing_repository.go -destination=mocks/mock_listing_repository.go -package=mocks
package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type ListingRepository interface {
	GetByID(ctx context.Context, id uint64) (*entity.Listing, error)
	GetByIDs(ctx context.Context, ids []uint64) (map[uint64]*entity.Listing, error)
}
