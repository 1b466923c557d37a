package chatclient

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MessageStore holds the visible messages of one chat. The same message can
// arrive from the send response and again from the room broadcast, so
// entries are keyed by server id. Optimistic entries are keyed by a
// temporary id until the server id is known.
type MessageStore struct {
	mu       sync.RWMutex
	chatID   uint64
	messages []*Message
	byID     map[uint64]*Message
	byTemp   map[string]*Message
}

func NewMessageStore(chatID uint64) *MessageStore {
	return &MessageStore{
		chatID: chatID,
		byID:   make(map[uint64]*Message),
		byTemp: make(map[string]*Message),
	}
}

func (s *MessageStore) ChatID() uint64 {
	return s.chatID
}

// Seed replaces the contents with a freshly loaded thread. Pending entries
// survive.
func (s *MessageStore) Seed(messages []*Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := lo.Filter(s.messages, func(m *Message, _ int) bool { return m.Pending() })
	s.messages = nil
	s.byID = make(map[uint64]*Message, len(messages))
	for _, m := range messages {
		s.insert(m)
	}
	for _, m := range pending {
		s.messages = append(s.messages, m)
	}
	s.sortLocked()
}

// Upsert adds a server message unless its id is already present. It reports
// whether the message was new.
func (s *MessageStore) Upsert(m *Message) bool {
	if m == nil || m.ChatID != s.chatID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[m.ID]; ok {
		// a later copy may carry the read flag
		existing.Read = existing.Read || m.Read
		if m.ReadAt != nil {
			existing.ReadAt = m.ReadAt
		}
		return false
	}
	s.insert(m)
	s.sortLocked()
	return true
}

// AddPending appends an optimistic message and returns its temporary id.
func (s *MessageStore) AddPending(senderID, text string) string {
	tempID := uuid.NewString()
	m := &Message{
		ChatID:    s.chatID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
		TempID:    tempID,
	}

	s.mu.Lock()
	s.byTemp[tempID] = m
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	return tempID
}

// Confirm swaps the optimistic entry for the stored message. If the
// broadcast copy already arrived the optimistic entry is just dropped.
func (s *MessageStore) Confirm(tempID string, m *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.byTemp[tempID]
	if ok {
		delete(s.byTemp, tempID)
		s.messages = lo.Without(s.messages, pending)
	}
	if m == nil {
		return
	}
	if _, exists := s.byID[m.ID]; !exists {
		s.insert(m)
	}
	s.sortLocked()
}

// Discard removes an optimistic entry after a failed send.
func (s *MessageStore) Discard(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.byTemp[tempID]; ok {
		delete(s.byTemp, tempID)
		s.messages = lo.Without(s.messages, pending)
	}
}

// MarkReadBy flags every message not sent by readerID as read. It applies a
// messages-read receipt from the counterpart.
func (s *MessageStore) MarkReadBy(readerID string, at time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.messages {
		if m.Pending() || m.Read || m.SenderID == readerID {
			continue
		}
		m.Read = true
		readAt := at
		m.ReadAt = &readAt
		n++
	}
	return n
}

// Messages returns copies in display order.
func (s *MessageStore) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Map(s.messages, func(m *Message, _ int) Message { return *m })
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *MessageStore) insert(m *Message) {
	cp := *m
	s.byID[cp.ID] = &cp
	s.messages = append(s.messages, &cp)
}

// sortLocked orders confirmed messages by creation time then id. Pending
// entries stay at the tail.
func (s *MessageStore) sortLocked() {
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := s.messages[i], s.messages[j]
		if a.Pending() != b.Pending() {
			return !a.Pending()
		}
		if a.Pending() {
			return false
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
