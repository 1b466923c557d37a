package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer answers join-chat with joined and closes on anything else.
func echoServer(t *testing.T, token string) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil || ev.Type != "join-chat" {
				return
			}
			reply, _ := json.Marshal(Event{Type: EventJoined, Data: ev.Data})
			if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestStreamJoinRoundTrip(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	stream, err := Dial(context.Background(), wsURL(srv), "tok")
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Join(7))

	select {
	case ev := <-stream.Events():
		assert.Equal(t, EventJoined, ev.Type)
		var ref struct {
			ChatID uint64 `json:"chatId"`
		}
		require.NoError(t, ev.Decode(&ref))
		assert.Equal(t, uint64(7), ref.ChatID)
	case <-time.After(2 * time.Second):
		t.Fatal("no joined event")
	}
	assert.True(t, stream.Connected())
}

func TestStreamRejectedHandshake(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv), "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestStreamClosesEventsWhenServerHangsUp(t *testing.T) {
	srv := echoServer(t, "tok")
	defer srv.Close()

	stream, err := Dial(context.Background(), wsURL(srv), "tok")
	require.NoError(t, err)
	defer stream.Close()

	require.NoError(t, stream.Ping())

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream.Events():
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, stream.Connected())
	assert.ErrorIs(t, stream.Typing(7, true), ErrStreamClosed)
}
