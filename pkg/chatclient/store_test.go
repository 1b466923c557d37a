package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func msg(id uint64, sender, text string, offset time.Duration) *Message {
	return &Message{ID: id, ChatID: 7, SenderID: sender, Text: text, CreatedAt: t0.Add(offset)}
}

func TestStoreDeduplicatesByID(t *testing.T) {
	store := NewMessageStore(7)

	assert.True(t, store.Upsert(msg(1, "a", "hi", 0)))
	assert.False(t, store.Upsert(msg(1, "a", "hi", 0)))
	assert.True(t, store.Upsert(msg(2, "b", "hello", time.Second)))

	assert.Equal(t, 2, store.Len())
}

func TestStoreIgnoresOtherChats(t *testing.T) {
	store := NewMessageStore(7)
	other := msg(1, "a", "hi", 0)
	other.ChatID = 8

	assert.False(t, store.Upsert(other))
	assert.Zero(t, store.Len())
}

func TestStoreOrdersByCreation(t *testing.T) {
	store := NewMessageStore(7)
	store.Upsert(msg(3, "a", "third", 2*time.Second))
	store.Upsert(msg(1, "a", "first", 0))
	store.Upsert(msg(2, "b", "second", time.Second))

	texts := []string{}
	for _, m := range store.Messages() {
		texts = append(texts, m.Text)
	}
	assert.Equal(t, []string{"first", "second", "third"}, texts)
}

func TestStoreConfirmReplacesTempEntry(t *testing.T) {
	store := NewMessageStore(7)
	tempID := store.AddPending("a", "hello")

	pending := store.Messages()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending())

	store.Confirm(tempID, msg(500, "a", "hello", 0))

	got := store.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(500), got[0].ID)
	assert.False(t, got[0].Pending())

	// the room broadcast of the same message is a duplicate
	assert.False(t, store.Upsert(msg(500, "a", "hello", 0)))
	assert.Equal(t, 1, store.Len())
}

func TestStoreConfirmAfterBroadcast(t *testing.T) {
	store := NewMessageStore(7)
	tempID := store.AddPending("a", "hello")

	assert.True(t, store.Upsert(msg(500, "a", "hello", 0)))
	assert.Equal(t, 2, store.Len())

	store.Confirm(tempID, msg(500, "a", "hello", 0))
	got := store.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(500), got[0].ID)
}

func TestStoreDiscardAndSeedKeepPending(t *testing.T) {
	store := NewMessageStore(7)
	keep := store.AddPending("a", "in flight")
	drop := store.AddPending("a", "failed")

	store.Discard(drop)
	store.Seed([]*Message{msg(1, "b", "old", 0), msg(2, "a", "older reply", time.Second)})

	got := store.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "old", got[0].Text)
	assert.Equal(t, "in flight", got[2].Text)
	assert.Equal(t, keep, got[2].TempID)
}

func TestStoreMarkReadBy(t *testing.T) {
	store := NewMessageStore(7)
	store.Upsert(msg(1, "a", "from a", 0))
	store.Upsert(msg(2, "b", "from b", time.Second))
	store.AddPending("a", "pending")

	n := store.MarkReadBy("b", t0)
	assert.Equal(t, 1, n)

	got := store.Messages()
	assert.True(t, got[0].Read)
	require.NotNil(t, got[0].ReadAt)
	assert.False(t, got[1].Read)
	assert.False(t, got[2].Read)
}
