package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain/entity"
	apperrors "carmarket/pkg/errors"
)

type fakeGateway struct {
	participants map[uint64][]string
	typing       []TypingInput
	sent         []string
	typingErr    error
}

func (g *fakeGateway) AuthorizeRoom(_ context.Context, actor entity.Actor, chatID uint64) error {
	for _, id := range g.participants[chatID] {
		if id == actor.ID {
			return nil
		}
	}
	return apperrors.NotFound("Chat", nil)
}

func (g *fakeGateway) SendMessage(ctx context.Context, actor entity.Actor, chatID uint64, text string) (*entity.Message, error) {
	if err := g.AuthorizeRoom(ctx, actor, chatID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("Message text is required")
	}
	g.sent = append(g.sent, text)
	return &entity.Message{ID: uint64(len(g.sent)), ChatID: chatID, SenderID: actor.ID, Text: text, CreatedAt: time.Now()}, nil
}

func (g *fakeGateway) SetTyping(_ context.Context, actor entity.Actor, chatID uint64, isTyping bool) error {
	if g.typingErr != nil {
		return g.typingErr
	}
	g.typing = append(g.typing, TypingInput{ChatID: chatID, IsTyping: isTyping})
	return nil
}

func frame(t *testing.T, eventType string, data interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(NewEvent(eventType, data))
	require.NoError(t, err)
	return b
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	default:
		t.Fatal("expected a queued event")
		return Event{}
	}
}

func TestDispatcherJoinChecksParticipancy(t *testing.T) {
	m := NewManager()
	gw := &fakeGateway{participants: map[uint64][]string{100: {"alice", "bob"}}}
	d := NewDispatcher(m, gw)

	bob := newTestClient("bob", 8)
	eve := newTestClient("eve", 8)
	m.Register(bob)
	m.Register(eve)

	d.HandleClientMessage(context.Background(), bob, frame(t, EventJoinChat, ChatRef{ChatID: 100}))
	assert.Equal(t, EventJoined, nextEvent(t, bob).Type)
	assert.True(t, bob.inRoom("chat-100"))

	d.HandleClientMessage(context.Background(), eve, frame(t, EventJoinChat, ChatRef{ChatID: 100}))
	ev := nextEvent(t, eve)
	assert.Equal(t, EventError, ev.Type)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, apperrors.CodeNotFound, payload.Code)
	assert.False(t, eve.inRoom("chat-100"))
}

func TestDispatcherLeaveAndPing(t *testing.T) {
	m := NewManager()
	d := NewDispatcher(m, &fakeGateway{participants: map[uint64][]string{5: {"alice"}}})
	c := newTestClient("alice", 8)
	m.Register(c)
	m.JoinRoom(c, 5)

	d.HandleClientMessage(context.Background(), c, frame(t, EventLeaveChat, ChatRef{ChatID: 5}))
	assert.False(t, c.inRoom("chat-5"))

	d.HandleClientMessage(context.Background(), c, frame(t, EventPing, nil))
	assert.Equal(t, EventPong, nextEvent(t, c).Type)
}

func TestDispatcherSendMessageAcksWithTempID(t *testing.T) {
	m := NewManager()
	gw := &fakeGateway{participants: map[uint64][]string{100: {"alice", "bob"}}}
	d := NewDispatcher(m, gw)
	c := newTestClient("alice", 8)
	m.Register(c)

	d.HandleClientMessage(context.Background(), c, frame(t, EventSendMessage, SendMessageInput{ChatID: 100, Text: "hello", TempID: "tmp-1"}))
	ev := nextEvent(t, c)
	require.Equal(t, EventMessageSent, ev.Type)
	var ack struct {
		TempID  string         `json:"tempId"`
		Message entity.Message `json:"message"`
	}
	require.NoError(t, json.Unmarshal(ev.Data, &ack))
	assert.Equal(t, "tmp-1", ack.TempID)
	assert.Equal(t, uint64(1), ack.Message.ID)

	d.HandleClientMessage(context.Background(), c, frame(t, EventSendMessage, SendMessageInput{ChatID: 100, Text: "  ", TempID: "tmp-2"}))
	ev = nextEvent(t, c)
	require.Equal(t, EventError, ev.Type)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &payload))
	assert.Equal(t, apperrors.CodeValidation, payload.Code)
	assert.Equal(t, "tmp-2", payload.TempID)
	assert.Equal(t, []string{"hello"}, gw.sent)
}

func TestDispatcherTypingRateLimitIsSilent(t *testing.T) {
	m := NewManager()
	gw := &fakeGateway{typingErr: apperrors.TooManyRequests("slow down", time.Second)}
	d := NewDispatcher(m, gw)
	c := newTestClient("alice", 8)
	m.Register(c)

	d.HandleClientMessage(context.Background(), c, frame(t, EventTyping, TypingInput{ChatID: 1, IsTyping: true}))
	assert.Empty(t, drain(t, c))

	gw.typingErr = nil
	d.HandleClientMessage(context.Background(), c, frame(t, EventTyping, TypingInput{ChatID: 1, IsTyping: true}))
	assert.Equal(t, []TypingInput{{ChatID: 1, IsTyping: true}}, gw.typing)
}

func TestDispatcherRejectsMalformedFrames(t *testing.T) {
	m := NewManager()
	d := NewDispatcher(m, &fakeGateway{})
	c := newTestClient("alice", 8)
	m.Register(c)

	d.HandleClientMessage(context.Background(), c, []byte("not json"))
	assert.Equal(t, EventError, nextEvent(t, c).Type)

	d.HandleClientMessage(context.Background(), c, frame(t, "dance", nil))
	assert.Equal(t, EventError, nextEvent(t, c).Type)

	d.HandleClientMessage(context.Background(), c, frame(t, EventJoinChat, nil))
	assert.Equal(t, EventError, nextEvent(t, c).Type)
}
