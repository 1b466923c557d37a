package chatclient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxMessageLength mirrors the server bound so obviously invalid drafts are
// rejected without a round trip.
const MaxMessageLength = 1000

var (
	ErrEmptyDraft   = errors.New("message text is empty")
	ErrDraftTooLong = errors.New("message text is too long")
)

// MessageSender is the persistence call a Composer sends through. *Client
// implements it.
type MessageSender interface {
	SendMessage(ctx context.Context, chatID uint64, text string) (*Message, error)
}

// TypingNotifier is optional. *Stream implements it.
type TypingNotifier interface {
	Typing(chatID uint64, isTyping bool) error
}

// Composer owns the draft of one chat. Sending is optimistic: the text shows
// up in the store at once and the draft is cleared; a failed send removes
// the optimistic entry and puts the text back into the draft.
type Composer struct {
	mu     sync.Mutex
	draft  string
	selfID string
	sender MessageSender
	typing TypingNotifier
	store  *MessageStore
}

func NewComposer(selfID string, sender MessageSender, store *MessageStore, typing TypingNotifier) *Composer {
	return &Composer{
		selfID: selfID,
		sender: sender,
		typing: typing,
		store:  store,
	}
}

// SetDraft updates the draft and signals typing state for it.
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()

	if c.typing != nil {
		_ = c.typing.Typing(c.store.ChatID(), strings.TrimSpace(text) != "")
	}
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Send submits the current draft.
func (c *Composer) Send(ctx context.Context) (*Message, error) {
	c.mu.Lock()
	text := strings.TrimSpace(c.draft)
	if text == "" {
		c.mu.Unlock()
		return nil, ErrEmptyDraft
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		c.mu.Unlock()
		return nil, ErrDraftTooLong
	}
	original := c.draft
	c.draft = ""
	c.mu.Unlock()

	if c.typing != nil {
		_ = c.typing.Typing(c.store.ChatID(), false)
	}

	tempID := c.store.AddPending(c.selfID, text)
	msg, err := c.sender.SendMessage(ctx, c.store.ChatID(), text)
	if err != nil {
		c.store.Discard(tempID)
		c.mu.Lock()
		// text typed while the send was in flight follows the restored draft
		if c.draft == "" {
			c.draft = original
		} else {
			c.draft = original + " " + c.draft
		}
		c.mu.Unlock()
		return nil, err
	}

	c.store.Confirm(tempID, msg)
	return msg, nil
}
