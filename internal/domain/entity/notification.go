package entity

import "time"

type NotificationKind string

const (
	NotificationNewMessage NotificationKind = "new-message"
	NotificationPriceDrop  NotificationKind = "price-drop"
	NotificationOther      NotificationKind = "other"
)

// Notification is the durable record created by a domain event for one recipient.
type Notification struct {
	ID               uint64           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           string           `json:"userId" gorm:"column:user_id;size:128;not null;index:idx_notification_user_read"`
	Text             string           `json:"text" gorm:"column:text;type:text;not null"`
	Kind             NotificationKind `json:"kind" gorm:"column:kind;size:32;not null;default:other"`
	Read             bool             `json:"read" gorm:"column:is_read;not null;default:false;index:idx_notification_user_read"`
	RelatedListingID *uint64          `json:"relatedListingId,omitempty" gorm:"column:related_listing_id"`
	RelatedUserID    *string          `json:"relatedUserId,omitempty" gorm:"column:related_user_id;size:128"`
	RelatedChatID    *uint64          `json:"relatedChatId,omitempty" gorm:"column:related_chat_id"`
	CreatedAt        time.Time        `json:"createdAt" gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
