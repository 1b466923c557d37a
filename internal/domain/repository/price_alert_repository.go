//go:generate go run go.uber.org/mock/mockgen -source=price_alert_repository.go -destination=mocks/mock_price_alert_repository.go -package=mocks
package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type PriceAlertRepository interface {
	// FindActive returns the active alert of userID on listingID, or a NotFound error.
	FindActive(ctx context.Context, userID string, listingID uint64) (*entity.PriceAlert, error)
	Create(ctx context.Context, alert *entity.PriceAlert) error
	Update(ctx context.Context, alert *entity.PriceAlert) error
	ListByUser(ctx context.Context, userID string) ([]*entity.PriceAlert, error)
	Delete(ctx context.Context, userID string, id uint64) error
	// ListPending returns active alerts that have not fired yet.
	ListPending(ctx context.Context) ([]*entity.PriceAlert, error)
}
