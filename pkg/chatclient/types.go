package chatclient

import (
	"encoding/json"
	"time"
)

// Live event types sent by the server.
const (
	EventNewMessage   = "new-message"
	EventTyping       = "typing"
	EventNotification = "notification"
	EventMessagesRead = "messages-read"
	EventJoined       = "joined"
	EventMessageSent  = "message-sent"
	EventPong         = "pong"
	EventError        = "error"
)

type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Listing struct {
	ID     uint64   `json:"id"`
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Price  float64  `json:"price"`
	Photos []string `json:"photos"`
}

type Message struct {
	ID        uint64       `json:"id"`
	ChatID    uint64       `json:"chatId"`
	SenderID  string       `json:"senderId"`
	Text      string       `json:"text"`
	Read      bool         `json:"read"`
	ReadAt    *time.Time   `json:"readAt"`
	CreatedAt time.Time    `json:"createdAt"`
	Sender    *Participant `json:"sender,omitempty"`

	// TempID is set on optimistic entries that have no server id yet.
	TempID string `json:"-"`
}

// Pending reports whether the message is still waiting for the server.
func (m Message) Pending() bool {
	return m.TempID != ""
}

type Chat struct {
	ID            uint64       `json:"id"`
	ListingID     uint64       `json:"listingId"`
	BuyerID       string       `json:"buyerId"`
	SellerID      string       `json:"sellerId"`
	LastMessageAt *time.Time   `json:"lastMessageAt"`
	CreatedAt     time.Time    `json:"createdAt"`
	Listing       *Listing     `json:"listing,omitempty"`
	Buyer         *Participant `json:"buyer,omitempty"`
	Seller        *Participant `json:"seller,omitempty"`
	LastMessage   *Message     `json:"lastMessage,omitempty"`
	UnreadCount   int          `json:"unreadCount"`
}

type Thread struct {
	Chat     *Chat      `json:"chat"`
	Messages []*Message `json:"messages"`
}

type Notification struct {
	ID               uint64    `json:"id"`
	Text             string    `json:"text"`
	Kind             string    `json:"kind"`
	Read             bool      `json:"read"`
	RelatedListingID *uint64   `json:"relatedListingId,omitempty"`
	RelatedChatID    *uint64   `json:"relatedChatId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Event is one live frame.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

type TypingEvent struct {
	ChatID    uint64 `json:"chatId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	IsTyping  bool   `json:"isTyping"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type LiveNotification struct {
	ID        uint64  `json:"id"`
	Text      string  `json:"text"`
	Kind      string  `json:"kind"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
	ListingID *uint64 `json:"listingId,omitempty"`
	ChatID    *uint64 `json:"chatId,omitempty"`
}

type MessagesRead struct {
	ChatID   uint64 `json:"chatId"`
	ReaderID string `json:"readerId"`
	Count    int    `json:"count"`
}

type MessageSent struct {
	TempID  string   `json:"tempId,omitempty"`
	Message *Message `json:"message"`
}

type StreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}

func (e *StreamError) Error() string {
	return e.Code + ": " + e.Message
}
