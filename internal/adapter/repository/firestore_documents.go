package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"carmarket/internal/domain/entity"
)

// Firestore has no unsigned integers, so documents carry int64 ids and are
// mapped to entities at the repository boundary.

const (
	collectionChats         = "chats"
	collectionMessages      = "messages"
	collectionChatKeys      = "chat_keys"
	collectionNotifications = "notifications"
	collectionPriceAlerts   = "price_alerts"
	collectionListings      = "listings"
	collectionUsers         = "users"
	collectionCounters      = "counters"
)

func docID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// allocateID increments the named counter inside tx. It performs a read, so
// it must run before any write in the same transaction.
func allocateID(client *firestore.Client, tx *firestore.Transaction, counter string) (uint64, error) {
	ref := client.Collection(collectionCounters).Doc(counter)
	var current int64
	snap, err := tx.Get(ref)
	if err != nil && !isNotFound(err) {
		return 0, err
	}
	if err == nil {
		if v, dataErr := snap.DataAt("value"); dataErr == nil {
			if n, ok := v.(int64); ok {
				current = n
			}
		}
	}
	next := current + 1
	if err := tx.Set(ref, map[string]interface{}{"value": next}); err != nil {
		return 0, err
	}
	return uint64(next), nil
}

// Message ids are scoped by chat: the chat id in the high bits and the chat's
// own sequence in the low messageSeqBits. Sends in different chats never
// touch the same document.
const messageSeqBits = 24

var errMessageSeqExhausted = errors.New("chat message sequence exhausted")

func messageID(chatID uint64, seq int64) (uint64, error) {
	if seq <= 0 || seq >= 1<<messageSeqBits || chatID >= 1<<(63-messageSeqBits) {
		return 0, errMessageSeqExhausted
	}
	return chatID<<messageSeqBits | uint64(seq), nil
}

// nextMessageTime is now, raised to the chat's last activity if that is later.
func nextMessageTime(now time.Time, lastMessageAt *time.Time) time.Time {
	if lastMessageAt != nil && lastMessageAt.After(now) {
		return *lastMessageAt
	}
	return now
}

func runTx(ctx context.Context, client *firestore.Client, fn func(ctx context.Context, tx *firestore.Transaction) error) error {
	return client.RunTransaction(ctx, fn)
}

type chatDoc struct {
	ID            int64      `firestore:"id"`
	ListingID     int64      `firestore:"listingId"`
	BuyerID       string     `firestore:"buyerId"`
	SellerID      string     `firestore:"sellerId"`
	LastMessageAt *time.Time `firestore:"lastMessageAt"`
	CreatedAt     time.Time  `firestore:"createdAt"`
	UpdatedAt     time.Time  `firestore:"updatedAt"`
	MessageSeq    int64      `firestore:"messageSeq"`
}

func newChatDoc(c *entity.Chat) chatDoc {
	return chatDoc{
		ID:            int64(c.ID),
		ListingID:     int64(c.ListingID),
		BuyerID:       c.BuyerID,
		SellerID:      c.SellerID,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func (d chatDoc) entity() *entity.Chat {
	return &entity.Chat{
		ID:            uint64(d.ID),
		ListingID:     uint64(d.ListingID),
		BuyerID:       d.BuyerID,
		SellerID:      d.SellerID,
		LastMessageAt: d.LastMessageAt,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

type messageDoc struct {
	ID        int64      `firestore:"id"`
	ChatID    int64      `firestore:"chatId"`
	SenderID  string     `firestore:"senderId"`
	Text      string     `firestore:"text"`
	Read      bool       `firestore:"read"`
	ReadAt    *time.Time `firestore:"readAt"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

func newMessageDoc(m *entity.Message) messageDoc {
	return messageDoc{
		ID:        int64(m.ID),
		ChatID:    int64(m.ChatID),
		SenderID:  m.SenderID,
		Text:      m.Text,
		Read:      m.Read,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}

func (d messageDoc) entity() *entity.Message {
	return &entity.Message{
		ID:        uint64(d.ID),
		ChatID:    uint64(d.ChatID),
		SenderID:  d.SenderID,
		Text:      d.Text,
		Read:      d.Read,
		ReadAt:    d.ReadAt,
		CreatedAt: d.CreatedAt,
	}
}

type notificationDoc struct {
	ID               int64     `firestore:"id"`
	UserID           string    `firestore:"userId"`
	Text             string    `firestore:"text"`
	Kind             string    `firestore:"kind"`
	Read             bool      `firestore:"read"`
	RelatedListingID *int64    `firestore:"relatedListingId,omitempty"`
	RelatedUserID    *string   `firestore:"relatedUserId,omitempty"`
	RelatedChatID    *int64    `firestore:"relatedChatId,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt"`
}

func toInt64Ptr(v *uint64) *int64 {
	if v == nil {
		return nil
	}
	n := int64(*v)
	return &n
}

func toUint64Ptr(v *int64) *uint64 {
	if v == nil {
		return nil
	}
	n := uint64(*v)
	return &n
}

func newNotificationDoc(n *entity.Notification) notificationDoc {
	return notificationDoc{
		ID:               int64(n.ID),
		UserID:           n.UserID,
		Text:             n.Text,
		Kind:             string(n.Kind),
		Read:             n.Read,
		RelatedListingID: toInt64Ptr(n.RelatedListingID),
		RelatedUserID:    n.RelatedUserID,
		RelatedChatID:    toInt64Ptr(n.RelatedChatID),
		CreatedAt:        n.CreatedAt,
	}
}

func (d notificationDoc) entity() *entity.Notification {
	return &entity.Notification{
		ID:               uint64(d.ID),
		UserID:           d.UserID,
		Text:             d.Text,
		Kind:             entity.NotificationKind(d.Kind),
		Read:             d.Read,
		RelatedListingID: toUint64Ptr(d.RelatedListingID),
		RelatedUserID:    d.RelatedUserID,
		RelatedChatID:    toUint64Ptr(d.RelatedChatID),
		CreatedAt:        d.CreatedAt,
	}
}

type priceAlertDoc struct {
	ID           int64     `firestore:"id"`
	UserID       string    `firestore:"userId"`
	ListingID    int64     `firestore:"listingId"`
	TargetPrice  float64   `firestore:"targetPrice"`
	CurrentPrice float64   `firestore:"currentPrice"`
	IsActive     bool      `firestore:"isActive"`
	Notified     bool      `firestore:"notified"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func newPriceAlertDoc(a *entity.PriceAlert) priceAlertDoc {
	return priceAlertDoc{
		ID:           int64(a.ID),
		UserID:       a.UserID,
		ListingID:    int64(a.ListingID),
		TargetPrice:  a.TargetPrice,
		CurrentPrice: a.CurrentPrice,
		IsActive:     a.IsActive,
		Notified:     a.Notified,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (d priceAlertDoc) entity() *entity.PriceAlert {
	return &entity.PriceAlert{
		ID:           uint64(d.ID),
		UserID:       d.UserID,
		ListingID:    uint64(d.ListingID),
		TargetPrice:  d.TargetPrice,
		CurrentPrice: d.CurrentPrice,
		IsActive:     d.IsActive,
		Notified:     d.Notified,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type listingDoc struct {
	ID       int64    `firestore:"id"`
	SellerID string   `firestore:"sellerId"`
	IsActive bool     `firestore:"isActive"`
	Brand    string   `firestore:"brand"`
	Model    string   `firestore:"model"`
	Year     int      `firestore:"year"`
	Price    float64  `firestore:"price"`
	Photos   []string `firestore:"photos"`
}

func (d listingDoc) entity() *entity.Listing {
	return &entity.Listing{
		ID:       uint64(d.ID),
		SellerID: d.SellerID,
		IsActive: d.IsActive,
		Brand:    d.Brand,
		Model:    d.Model,
		Year:     d.Year,
		Price:    d.Price,
		Photos:   d.Photos,
	}
}
