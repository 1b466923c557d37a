//go:generate go run go.uber.org/mock/mockgen -source=chat_repository.go -destination=mocks/mock_chat_repository.go -package=mocks
package repository

import (
	"context"
	"time"

	"carmarket/internal/domain/entity"
)

type ChatRepository interface {
	// FindOrCreate returns the chat for the (listing, buyer, seller) triple,
	// creating it when absent. created reports whether a row was inserted.
	// Concurrent callers with the same triple observe the same chat.
	FindOrCreate(ctx context.Context, listingID uint64, buyerID, sellerID string) (chat *entity.Chat, created bool, err error)
	GetByID(ctx context.Context, id uint64) (*entity.Chat, error)
	// ListByParticipant orders by last activity, newest first.
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error)

	// Message methods
	// CreateMessage assigns the id and creation time, persists the message and
	// moves the chat's last activity forward in one unit.
	// LastMessages and ListMessages agree on (createdAt, id) order.
	CreateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, chatID uint64) ([]*entity.Message, error)
	LastMessages(ctx context.Context, chatIDs []uint64) (map[uint64]*entity.Message, error)
	// CountUnread counts messages in each chat that were not sent by readerID
	// and are not yet read.
	CountUnread(ctx context.Context, chatIDs []uint64, readerID string) (map[uint64]int, error)
	// MarkRead flips the read flag on messages not sent by readerID and
	// returns the ids that changed.
	MarkRead(ctx context.Context, chatID uint64, readerID string, at time.Time) ([]uint64, error)
}
