package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/metrics"
	ws "carmarket/internal/infrastructure/websocket"
	apperrors "carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

const DefaultNotificationLimit = 50

// NotificationUseCase creates durable notifications and pushes them to the
// recipient's live connections. It performs no dedup of its own.
type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	wsManager        ws.Deliverer
	listLimit        int
}

func NewNotificationUseCase(notificationRepo repository.NotificationRepository, wsManager ws.Deliverer, listLimit int) *NotificationUseCase {
	if listLimit <= 0 {
		listLimit = DefaultNotificationLimit
	}
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		wsManager:        wsManager,
		listLimit:        listLimit,
	}
}

// NotifyNewMessage records that sender wrote to recipientID in chat.
func (uc *NotificationUseCase) NotifyNewMessage(ctx context.Context, recipientID string, sender entity.Actor, chat *entity.Chat) (*entity.Notification, error) {
	text := "New message"
	if sender.DisplayName != "" {
		text = "New message from " + sender.DisplayName
	}
	listingID := chat.ListingID
	chatID := chat.ID
	senderID := sender.ID

	return uc.dispatch(ctx, &entity.Notification{
		UserID:           recipientID,
		Text:             text,
		Kind:             entity.NotificationNewMessage,
		RelatedListingID: &listingID,
		RelatedUserID:    &senderID,
		RelatedChatID:    &chatID,
	})
}

// NotifyPriceDrop records that listing is now offered at newPrice.
func (uc *NotificationUseCase) NotifyPriceDrop(ctx context.Context, recipientID string, listing *entity.ListingSummary, newPrice float64) (*entity.Notification, error) {
	listingID := listing.ID
	return uc.dispatch(ctx, &entity.Notification{
		UserID:           recipientID,
		Text:             fmt.Sprintf("Price of %s %s dropped to %s ₸", listing.Brand, listing.Model, humanize.Commaf(newPrice)),
		Kind:             entity.NotificationPriceDrop,
		RelatedListingID: &listingID,
	})
}

// dispatch stores n and then pushes it live. Only the store can fail.
func (uc *NotificationUseCase) dispatch(ctx context.Context, n *entity.Notification) (*entity.Notification, error) {
	if n.UserID == "" {
		return nil, apperrors.Validation("Notification recipient is required")
	}
	if err := uc.notificationRepo.Create(ctx, n); err != nil {
		logger.Error("Notification: failed to store %s notification for %s: %v", n.Kind, n.UserID, err)
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(string(n.Kind)).Inc()

	uc.wsManager.SendToUser(n.UserID, ws.NewEvent(ws.EventNotification, toNotificationPayload(n)))
	return n, nil
}

func toNotificationPayload(n *entity.Notification) ws.NotificationPayload {
	return ws.NotificationPayload{
		ID:        n.ID,
		Text:      n.Text,
		Kind:      string(n.Kind),
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		ListingID: n.RelatedListingID,
		ChatID:    n.RelatedChatID,
	}
}

// List returns the newest notifications of userID. limit is clamped to the
// configured maximum.
func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > uc.listLimit {
		limit = uc.listLimit
	}
	notifications, err := uc.notificationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*entity.Notification{}
	}
	return notifications, nil
}

func (uc *NotificationUseCase) CountUnread(ctx context.Context, userID string) (int64, error) {
	return uc.notificationRepo.CountUnread(ctx, userID)
}

func (uc *NotificationUseCase) MarkRead(ctx context.Context, userID string, id uint64) error {
	return uc.notificationRepo.MarkRead(ctx, userID, id)
}

func (uc *NotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return uc.notificationRepo.MarkAllRead(ctx, userID)
}

func (uc *NotificationUseCase) Delete(ctx context.Context, userID string, id uint64) error {
	return uc.notificationRepo.Delete(ctx, userID, id)
}
