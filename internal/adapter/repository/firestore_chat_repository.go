package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(collectionChats)
}

func (r *firestoreChatRepository) messages(chatID uint64) *firestore.CollectionRef {
	return r.chats().Doc(docID(chatID)).Collection(collectionMessages)
}

// chatKey is the document id that enforces one chat per participant triple.
func chatKey(listingID uint64, buyerID, sellerID string) string {
	return fmt.Sprintf("%d_%s_%s", listingID, buyerID, sellerID)
}

func (r *firestoreChatRepository) FindOrCreate(ctx context.Context, listingID uint64, buyerID, sellerID string) (*entity.Chat, bool, error) {
	keyRef := r.client.Collection(collectionChatKeys).Doc(chatKey(listingID, buyerID, sellerID))

	var chat *entity.Chat
	var created bool
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		chat, created = nil, false

		keySnap, err := tx.Get(keyRef)
		if err == nil {
			v, err := keySnap.DataAt("chatId")
			if err != nil {
				return err
			}
			id, _ := v.(int64)
			snap, err := tx.Get(r.chats().Doc(docID(uint64(id))))
			if err != nil {
				return err
			}
			var doc chatDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			chat = doc.entity()
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		id, err := allocateID(r.client, tx, collectionChats)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		chat = &entity.Chat{
			ID:        id,
			ListingID: listingID,
			BuyerID:   buyerID,
			SellerID:  sellerID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(r.chats().Doc(docID(id)), newChatDoc(chat)); err != nil {
			return err
		}
		created = true
		return tx.Create(keyRef, map[string]interface{}{"chatId": int64(id)})
	})
	if err != nil {
		return nil, false, errors.Internal("Failed to find or create chat", err)
	}
	return chat, created, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id uint64) (*entity.Chat, error) {
	snap, err := r.chats().Doc(docID(id)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var doc chatDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	return doc.entity(), nil
}

func (r *firestoreChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error) {
	seen := make(map[uint64]bool)
	var chats []*entity.Chat

	for _, field := range []string{"buyerId", "sellerId"} {
		iter := r.chats().Where(field, "==", userID).Documents(ctx)
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, errors.Internal("Failed to list chats", err)
			}
			var doc chatDoc
			if err := snap.DataTo(&doc); err != nil {
				iter.Stop()
				return nil, errors.Internal("Failed to parse chat data", err)
			}
			c := doc.entity()
			if !seen[c.ID] {
				seen[c.ID] = true
				chats = append(chats, c)
			}
		}
		iter.Stop()
	}

	sort.Slice(chats, func(i, j int) bool {
		ai, aj := chats[i].LastActivity(), chats[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return chats[i].ID > chats[j].ID
	})
	return chats, nil
}

// CreateMessage takes the id from the chat's own sequence and stamps the
// message no earlier than the chat's last activity, all in the transaction
// that already reads the chat.
func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	chatRef := r.chats().Doc(docID(message.ChatID))

	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(chatRef)
		if err != nil {
			return err
		}
		var chat chatDoc
		if err := snap.DataTo(&chat); err != nil {
			return err
		}

		seq := chat.MessageSeq + 1
		id, err := messageID(message.ChatID, seq)
		if err != nil {
			return err
		}
		message.ID = id
		message.CreatedAt = nextMessageTime(time.Now().UTC(), chat.LastMessageAt)

		if err := tx.Create(r.messages(message.ChatID).Doc(docID(id)), newMessageDoc(message)); err != nil {
			return err
		}
		return tx.Update(chatRef, []firestore.Update{
			{Path: "messageSeq", Value: seq},
			{Path: "lastMessageAt", Value: message.CreatedAt},
			{Path: "updatedAt", Value: message.CreatedAt},
		})
	})
	if err != nil {
		if isNotFound(err) {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

func (r *firestoreChatRepository) readMessages(iter *firestore.DocumentIterator) ([]*entity.Message, error) {
	defer iter.Stop()
	var messages []*entity.Message
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return messages, nil
		}
		if err != nil {
			return nil, err
		}
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, err
		}
		messages = append(messages, doc.entity())
	}
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID uint64) ([]*entity.Message, error) {
	// ids follow the chat sequence and createdAt never decreases along it
	messages, err := r.readMessages(r.messages(chatID).OrderBy("id", firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	return messages, nil
}

func (r *firestoreChatRepository) LastMessages(ctx context.Context, chatIDs []uint64) (map[uint64]*entity.Message, error) {
	result := make(map[uint64]*entity.Message, len(chatIDs))
	for _, chatID := range chatIDs {
		messages, err := r.readMessages(r.messages(chatID).OrderBy("id", firestore.Desc).Limit(1).Documents(ctx))
		if err != nil {
			return nil, errors.Internal("Failed to load last messages", err)
		}
		if len(messages) > 0 {
			result[chatID] = messages[0]
		}
	}
	return result, nil
}

func (r *firestoreChatRepository) CountUnread(ctx context.Context, chatIDs []uint64, readerID string) (map[uint64]int, error) {
	result := make(map[uint64]int, len(chatIDs))
	for _, chatID := range chatIDs {
		unread, err := r.readMessages(r.messages(chatID).Where("read", "==", false).Documents(ctx))
		if err != nil {
			return nil, errors.Internal("Failed to count unread messages", err)
		}
		for _, m := range unread {
			if m.SenderID != readerID {
				result[chatID]++
			}
		}
	}
	return result, nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID uint64, readerID string, at time.Time) ([]uint64, error) {
	var ids []uint64
	err := runTx(ctx, r.client, func(ctx context.Context, tx *firestore.Transaction) error {
		ids = nil
		snaps, err := tx.Documents(r.messages(chatID).Where("read", "==", false)).GetAll()
		if err != nil {
			return err
		}
		var refs []*firestore.DocumentRef
		for _, snap := range snaps {
			var doc messageDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			if doc.SenderID == readerID {
				continue
			}
			ids = append(ids, uint64(doc.ID))
			refs = append(refs, snap.Ref)
		}
		for _, ref := range refs {
			if err := tx.Update(ref, []firestore.Update{
				{Path: "read", Value: true},
				{Path: "readAt", Value: at},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Internal("Failed to mark messages read", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
