package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain/entity"
	ws "carmarket/internal/infrastructure/websocket"
	apperrors "carmarket/pkg/errors"
)

func summaryFor(t *testing.T, summaries []*ChatSummary, chatID uint64) *ChatSummary {
	t.Helper()
	for _, s := range summaries {
		if s.ID == chatID {
			return s
		}
	}
	t.Fatalf("chat %d not listed", chatID)
	return nil
}

func TestOpenChatIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)
	second, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "1", first.BuyerID)
	assert.Equal(t, "2", first.SellerID)
	assert.Equal(t, "Bob", first.Seller.Name)
	assert.Equal(t, "Toyota", first.Listing.Brand)
	assert.EqualValues(t, 1, env.count(t, &entity.Chat{}))

	other, err := env.chats.OpenChat(ctx, carol, 10)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestOpenChatConcurrentCallersShareOneChat(t *testing.T) {
	env := newTestEnv(t)

	var wg sync.WaitGroup
	ids := make([]uint64, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat, err := env.chats.OpenChat(context.Background(), alice, 10)
			if assert.NoError(t, err) {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.EqualValues(t, 1, env.count(t, &entity.Chat{}))
}

func TestOpenChatRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		actor     entity.Actor
		listingID uint64
		code      string
	}{
		{"self dealing", bob, 10, apperrors.CodeSelfDealing},
		{"missing listing", alice, 999, apperrors.CodeInvalidReference},
		{"inactive listing", alice, 11, apperrors.CodeInvalidReference},
		{"listing without seller", alice, 12, apperrors.CodeInvalidReference},
		{"no listing id", alice, 0, apperrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.chats.OpenChat(ctx, tt.actor, tt.listingID)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, env.count(t, &entity.Chat{}))
}

func TestSendMessageUpdatesUnreadForRecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	before := time.Now().UTC().Add(-time.Second)
	msg, err := env.chats.SendMessage(ctx, alice, chat.ID, "  hi  ")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Text)
	assert.False(t, msg.Read)
	assert.Equal(t, "Alice", msg.Sender.Name)

	aliceChats, err := env.chats.ListChats(ctx, alice.ID)
	require.NoError(t, err)
	bobChats, err := env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)

	a := summaryFor(t, aliceChats, chat.ID)
	b := summaryFor(t, bobChats, chat.ID)
	require.NotNil(t, a.LastMessageAt)
	require.NotNil(t, b.LastMessageAt)
	assert.True(t, a.LastMessageAt.After(before))
	assert.Equal(t, 0, a.UnreadCount)
	assert.Equal(t, 1, b.UnreadCount)
	require.NotNil(t, b.LastMessage)
	assert.Equal(t, msg.ID, b.LastMessage.ID)
}

func TestOpenThreadMarksOnlyIncomingRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "first")
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, bob, chat.ID, "reply")
	require.NoError(t, err)

	thread, err := env.chats.OpenThread(ctx, alice.ID, chat.ID)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 2)
	assert.Equal(t, "first", thread.Messages[0].Text)
	assert.Equal(t, "reply", thread.Messages[1].Text)
	assert.Equal(t, "Bob", thread.Messages[1].Sender.Name)

	var own entity.Message
	require.NoError(t, env.db.Where("sender_id = ?", alice.ID).First(&own).Error)
	assert.False(t, own.Read, "opening a thread must not mark the caller's own messages")

	bobChats, err := env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summaryFor(t, bobChats, chat.ID).UnreadCount)

	_, err = env.chats.OpenThread(ctx, bob.ID, chat.ID)
	require.NoError(t, err)
	bobChats, err = env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summaryFor(t, bobChats, chat.ID).UnreadCount)

	require.NoError(t, env.db.Where("sender_id = ?", alice.ID).First(&own).Error)
	assert.True(t, own.Read)
	assert.NotNil(t, own.ReadAt)
}

func TestNonParticipantIsToldChatDoesNotExist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	_, errForeign := env.chats.OpenThread(ctx, carol.ID, chat.ID)
	_, errMissing := env.chats.OpenThread(ctx, carol.ID, chat.ID+100)
	require.Error(t, errForeign)
	require.Error(t, errMissing)
	assert.True(t, apperrors.Is(errForeign, apperrors.CodeNotFound))
	assert.True(t, apperrors.Is(errMissing, apperrors.CodeNotFound))

	_, err = env.chats.SendMessage(ctx, carol, chat.ID, "let me in")
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.EqualValues(t, 0, env.count(t, &entity.Message{}))
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	bobConn := env.connect(bob.ID)

	for _, text := range []string{"", "   ", "\n\t", strings.Repeat("я", entity.MaxMessageLength+1)} {
		_, err := env.chats.SendMessage(ctx, alice, chat.ID, text)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "text %q", text)
	}
	assert.EqualValues(t, 0, env.count(t, &entity.Message{}))
	assert.EqualValues(t, 0, env.count(t, &entity.Notification{}))
	assert.Empty(t, events(t, bobConn))

	_, err = env.chats.SendMessage(ctx, alice, chat.ID, strings.Repeat("я", entity.MaxMessageLength))
	assert.NoError(t, err)
}

func TestNotificationReachesUnjoinedConnectionButBroadcastDoesNot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	bobConn := env.connect(bob.ID)

	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{ws.EventNotification}, eventTypes(events(t, bobConn)))

	env.manager.JoinRoom(bobConn, chat.ID)
	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "still there?")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ws.EventNewMessage, ws.EventNotification}, eventTypes(events(t, bobConn)))
}

func TestNotificationFansOutToEveryConnection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	laptop := env.connect(bob.ID)
	phone := env.connect(bob.ID)

	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{ws.EventNotification}, eventTypes(events(t, laptop)))
	assert.Equal(t, []string{ws.EventNotification}, eventTypes(events(t, phone)))
}

func TestTypingSkipsSenderConnections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)

	aliceConn := env.connect(alice.ID)
	bobConn := env.connect(bob.ID)
	env.manager.JoinRoom(aliceConn, chat.ID)
	env.manager.JoinRoom(bobConn, chat.ID)

	require.NoError(t, env.chats.SetTyping(ctx, alice, chat.ID, true))
	assert.Empty(t, events(t, aliceConn))

	got := events(t, bobConn)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventUserTyping, got[0].Type)
	var payload ws.TypingPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, alice.ID, payload.UserID)
	assert.True(t, payload.IsTyping)
	assert.NotEmpty(t, payload.ExpiresAt)

	err = env.chats.SetTyping(ctx, carol, chat.ID, true)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	assert.Empty(t, events(t, bobConn))
}

func TestOpenThreadBroadcastsReadReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "one")
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, alice, chat.ID, "two")
	require.NoError(t, err)

	aliceConn := env.connect(alice.ID)
	env.manager.JoinRoom(aliceConn, chat.ID)

	_, err = env.chats.OpenThread(ctx, bob.ID, chat.ID)
	require.NoError(t, err)

	got := events(t, aliceConn)
	require.Len(t, got, 1)
	assert.Equal(t, ws.EventMessagesRead, got[0].Type)
	var payload ws.MessagesReadPayload
	require.NoError(t, json.Unmarshal(got[0].Data, &payload))
	assert.Equal(t, 2, payload.Count)
	assert.Equal(t, bob.ID, payload.ReaderID)

	// nothing left to mark, nothing to announce
	_, err = env.chats.OpenThread(ctx, bob.ID, chat.ID)
	require.NoError(t, err)
	assert.Empty(t, events(t, aliceConn))
}

func TestListChatsOrderedByLastActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.db.Create(&entity.Listing{ID: 20, SellerID: "2", IsActive: true, Brand: "BMW", Model: "X5", Price: 30000000}).Error)

	older, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)
	newer, err := env.chats.OpenChat(ctx, alice, 20)
	require.NoError(t, err)

	chats, err := env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, newer.ID, chats[0].ID)

	_, err = env.chats.SendMessage(ctx, alice, older.ID, "bump")
	require.NoError(t, err)

	chats, err = env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, older.ID, chats[0].ID)
	assert.Equal(t, "BMW", chats[1].Listing.Brand)
}

func TestAliceAndBobScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// move the id sequences so the scenario ids line up
	require.NoError(t, env.db.Create(&entity.Chat{ID: 99, ListingID: 10, BuyerID: "3", SellerID: "2"}).Error)
	require.NoError(t, env.db.Create(&entity.Message{ID: 499, ChatID: 99, SenderID: "3", Text: "older", Read: true, CreatedAt: time.Now().UTC().Add(-time.Hour)}).Error)

	bobInRoom := env.connect(bob.ID)
	bobElsewhere := env.connect(bob.ID)

	chat, err := env.chats.OpenChat(ctx, alice, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 100, chat.ID)
	assert.Equal(t, "1", chat.BuyerID)
	assert.Equal(t, "2", chat.SellerID)
	env.manager.JoinRoom(bobInRoom, chat.ID)

	msg, err := env.chats.SendMessage(ctx, alice, chat.ID, "Is this still available?")
	require.NoError(t, err)
	assert.EqualValues(t, 500, msg.ID)

	bobChats, err := env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	s := summaryFor(t, bobChats, 100)
	assert.Equal(t, 1, s.UnreadCount)
	require.NotNil(t, s.LastMessageAt)
	assert.Equal(t, uint64(100), bobChats[0].ID)

	assert.ElementsMatch(t, []string{ws.EventNewMessage, ws.EventNotification}, eventTypes(events(t, bobInRoom)))
	assert.Equal(t, []string{ws.EventNotification}, eventTypes(events(t, bobElsewhere)))

	thread, err := env.chats.OpenThread(ctx, bob.ID, 100)
	require.NoError(t, err)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, "Is this still available?", thread.Messages[0].Text)

	bobChats, err = env.chats.ListChats(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summaryFor(t, bobChats, 100).UnreadCount)

	unread, err := env.notifications.CountUnread(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
}
