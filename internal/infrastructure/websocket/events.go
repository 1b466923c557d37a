package websocket

import (
	"encoding/json"
	"strconv"
	"time"
)

// Client to server event types
const (
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventTyping      = "typing"
	EventSendMessage = "send-message"
	EventPing        = "ping"
)

// Server to client event types
const (
	EventNewMessage   = "new-message"
	EventUserTyping   = "typing"
	EventNotification = "notification"
	EventMessagesRead = "messages-read"
	EventJoined       = "joined"
	EventMessageSent  = "message-sent"
	EventPong         = "pong"
	EventError        = "error"
)

// Event is the frame exchanged in both directions over a live connection.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type ChatRef struct {
	ChatID uint64 `json:"chatId"`
}

type TypingInput struct {
	ChatID   uint64 `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

type SendMessageInput struct {
	ChatID uint64 `json:"chatId"`
	Text   string `json:"text"`
	TempID string `json:"tempId,omitempty"`
}

type TypingPayload struct {
	ChatID    uint64 `json:"chatId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	IsTyping  bool   `json:"isTyping"`
	ExpiresAt string `json:"expiresAt,omitempty"`
}

type NotificationPayload struct {
	ID        uint64  `json:"id"`
	Text      string  `json:"text"`
	Kind      string  `json:"kind"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
	ListingID *uint64 `json:"listingId,omitempty"`
	ChatID    *uint64 `json:"chatId,omitempty"`
}

type MessagesReadPayload struct {
	ChatID   uint64 `json:"chatId"`
	ReaderID string `json:"readerId"`
	Count    int    `json:"count"`
}

type MessageSentPayload struct {
	TempID  string      `json:"tempId,omitempty"`
	Message interface{} `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}

// NewEvent builds an outbound frame. Payloads are plain structs so encoding
// only fails on programmer error, in which case the frame carries no data.
func NewEvent(eventType string, data interface{}) Event {
	ev := Event{Type: eventType, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
	if data == nil {
		return ev
	}
	raw, err := json.Marshal(data)
	if err == nil {
		ev.Data = raw
	}
	return ev
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// RoomName is the room key for a chat.
func RoomName(chatID uint64) string {
	return "chat-" + strconv.FormatUint(chatID, 10)
}
