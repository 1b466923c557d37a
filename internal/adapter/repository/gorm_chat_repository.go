package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	apperrors "carmarket/pkg/errors"
)

type gormChatRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormChatRepository(db *gorm.DB) repository.ChatRepository {
	return &gormChatRepository{db: db, now: db.NowFunc}
}

func (r *gormChatRepository) findByParticipants(ctx context.Context, listingID uint64, buyerID, sellerID string) (*entity.Chat, error) {
	var chat entity.Chat
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND seller_id = ?", listingID, buyerID, sellerID).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *gormChatRepository) FindOrCreate(ctx context.Context, listingID uint64, buyerID, sellerID string) (*entity.Chat, bool, error) {
	chat, err := r.findByParticipants(ctx, listingID, buyerID, sellerID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.Internal("Failed to look up chat", err)
	}

	chat = &entity.Chat{ListingID: listingID, BuyerID: buyerID, SellerID: sellerID}
	err = r.db.WithContext(ctx).Create(chat).Error
	if err == nil {
		return chat, true, nil
	}
	// a concurrent open won the unique index
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, findErr := r.findByParticipants(ctx, listingID, buyerID, sellerID)
		if findErr == nil {
			return existing, false, nil
		}
		err = findErr
	}
	return nil, false, apperrors.Internal("Failed to create chat", err)
}

func (r *gormChatRepository) GetByID(ctx context.Context, id uint64) (*entity.Chat, error) {
	var chat entity.Chat
	if err := r.db.WithContext(ctx).First(&chat, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Chat", err)
		}
		return nil, apperrors.Internal("Failed to get chat", err)
	}
	return &chat, nil
}

func (r *gormChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error) {
	var chats []*entity.Chat
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Order("id DESC").
		Find(&chats).Error; err != nil {
		return nil, apperrors.Internal("Failed to list chats", err)
	}
	return chats, nil
}

// CreateMessage assigns the creation time inside the transaction. It never
// goes below the chat's last activity, so creation order and id order agree
// within a chat and last_message_at only moves forward.
func (r *gormChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat entity.Chat
		if err := tx.Select("id", "last_message_at").First(&chat, message.ChatID).Error; err != nil {
			return err
		}

		createdAt := r.now().UTC()
		if chat.LastMessageAt != nil && chat.LastMessageAt.After(createdAt) {
			createdAt = *chat.LastMessageAt
		}
		message.CreatedAt = createdAt

		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&entity.Chat{}).
			Where("id = ? AND (last_message_at IS NULL OR last_message_at <= ?)", message.ChatID, createdAt).
			Updates(map[string]interface{}{
				"last_message_at": createdAt,
				"updated_at":      createdAt,
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrForeignKeyViolated) {
			return apperrors.NotFound("Chat", err)
		}
		return apperrors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *gormChatRepository) ListMessages(ctx context.Context, chatID uint64) ([]*entity.Message, error) {
	var messages []*entity.Message
	if err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, apperrors.Internal("Failed to list messages", err)
	}
	return messages, nil
}

func (r *gormChatRepository) LastMessages(ctx context.Context, chatIDs []uint64) (map[uint64]*entity.Message, error) {
	result := make(map[uint64]*entity.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return result, nil
	}

	// newest by (created_at, id), the order ListMessages uses
	var messages []*entity.Message
	if err := r.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.*").
		Where("m.chat_id IN ?", chatIDs).
		Where(`NOT EXISTS (SELECT 1 FROM messages n WHERE n.chat_id = m.chat_id
			AND (n.created_at > m.created_at OR (n.created_at = m.created_at AND n.id > m.id)))`).
		Find(&messages).Error; err != nil {
		return nil, apperrors.Internal("Failed to load last messages", err)
	}
	for _, m := range messages {
		result[m.ChatID] = m
	}
	return result, nil
}

func (r *gormChatRepository) CountUnread(ctx context.Context, chatIDs []uint64, readerID string) (map[uint64]int, error) {
	result := make(map[uint64]int, len(chatIDs))
	if len(chatIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		ChatID uint64
		Unread int
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Select("chat_id, COUNT(*) AS unread").
		Where("chat_id IN ? AND sender_id <> ? AND is_read = ?", chatIDs, readerID, false).
		Group("chat_id").
		Scan(&rows).Error; err != nil {
		return nil, apperrors.Internal("Failed to count unread messages", err)
	}
	for _, row := range rows {
		result[row.ChatID] = row.Unread
	}
	return result, nil
}

func (r *gormChatRepository) MarkRead(ctx context.Context, chatID uint64, readerID string, at time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Message{}).
			Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
			Order("id ASC").
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Model(&entity.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"is_read": true,
				"read_at": at,
			}).Error
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to mark messages read", err)
	}
	return ids, nil
}
