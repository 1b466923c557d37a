package entity

import "time"

// Chat is the negotiation thread between one buyer and one seller about one
// listing. (ListingID, BuyerID, SellerID) is unique.
type Chat struct {
	ID            uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ListingID     uint64     `json:"listingId" gorm:"column:listing_id;not null;uniqueIndex:idx_chat_participants"`
	BuyerID       string     `json:"buyerId" gorm:"column:buyer_id;size:128;not null;uniqueIndex:idx_chat_participants;index"`
	SellerID      string     `json:"sellerId" gorm:"column:seller_id;size:128;not null;uniqueIndex:idx_chat_participants;index"`
	LastMessageAt *time.Time `json:"lastMessageAt" gorm:"column:last_message_at"`
	CreatedAt     time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (c.BuyerID == userID || c.SellerID == userID)
}

// Counterpart returns the other participant. It assumes userID is a participant.
func (c *Chat) Counterpart(userID string) string {
	if c.BuyerID == userID {
		return c.SellerID
	}
	return c.BuyerID
}

// LastActivity is the last message time, or the creation time for a chat
// without messages.
func (c *Chat) LastActivity() time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}
