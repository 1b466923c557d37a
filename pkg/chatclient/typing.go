package chatclient

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing indicator stays up without a
// refresh. The relay does not guarantee the stop event, so indicators expire
// on their own.
const DefaultTypingTTL = 4 * time.Second

type typingKey struct {
	chatID uint64
	userID string
}

// TypingTracker keeps who is typing in which chat. Expiry is evaluated on
// read so no timers are involved.
type TypingTracker struct {
	mu      sync.Mutex
	selfID  string
	ttl     time.Duration
	now     func() time.Time
	entries map[typingKey]time.Time
}

func NewTypingTracker(selfID string, ttl time.Duration) *TypingTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &TypingTracker{
		selfID:  selfID,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[typingKey]time.Time),
	}
}

// Apply records a typing event. Events about the local user are ignored.
func (t *TypingTracker) Apply(ev TypingEvent) {
	if ev.UserID == "" || ev.UserID == t.selfID {
		return
	}
	key := typingKey{chatID: ev.ChatID, userID: ev.UserID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !ev.IsTyping {
		delete(t.entries, key)
		return
	}
	// the server expiresAt hint is not trusted across clock skew
	t.entries[key] = t.now().Add(t.ttl)
}

// Typing lists the users currently typing in a chat, sorted by id.
func (t *TypingTracker) Typing(chatID uint64) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	var users []string
	for key, until := range t.entries {
		if !now.Before(until) {
			delete(t.entries, key)
			continue
		}
		if key.chatID == chatID {
			users = append(users, key.userID)
		}
	}
	sort.Strings(users)
	return users
}

func (t *TypingTracker) IsTyping(chatID uint64, userID string) bool {
	for _, id := range t.Typing(chatID) {
		if id == userID {
			return true
		}
	}
	return false
}

// Clear drops the indicator for a user, used when their message arrives.
func (t *TypingTracker) Clear(chatID uint64, userID string) {
	t.mu.Lock()
	delete(t.entries, typingKey{chatID: chatID, userID: userID})
	t.mu.Unlock()
}
