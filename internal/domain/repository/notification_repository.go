//go:generate go run go.uber.org/mock/mockgen -source=notification_repository.go -destination=mocks/mock_notification_repository.go -package=mocks
package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

// NotificationRepository methods that take a userID only touch rows owned by
// that user.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID string, id uint64) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID string, id uint64) error
}
