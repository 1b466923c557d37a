package entity

import "time"

const MaxMessageLength = 1000

type Message struct {
	ID        uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ChatID    uint64     `json:"chatId" gorm:"column:chat_id;not null;index:idx_message_chat_created"`
	SenderID  string     `json:"senderId" gorm:"column:sender_id;size:128;not null"`
	Text      string     `json:"text" gorm:"column:text;type:text;not null"`
	Read      bool       `json:"read" gorm:"column:is_read;not null;default:false"`
	ReadAt    *time.Time `json:"readAt" gorm:"column:read_at"`
	CreatedAt time.Time  `json:"createdAt" gorm:"column:created_at;index:idx_message_chat_created"`

	Sender *Participant `json:"sender,omitempty" gorm:"-"`
}

func (Message) TableName() string {
	return "messages"
}
