package chatclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	streamBuffer = 64
)

// ErrStreamClosed is returned when writing to a closed stream.
var ErrStreamClosed = errors.New("chat stream closed")

// Stream is a live connection. Inbound frames are delivered on Events in
// arrival order; the channel is closed when the connection ends.
type Stream struct {
	conn      *websocket.Conn
	events    chan Event
	writeMu   sync.Mutex
	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial opens a live connection. wsURL is the full /ws endpoint, for example
// ws://localhost:8080/ws.
func Dial(ctx context.Context, wsURL, token string) (*Stream, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Status: resp.StatusCode, Message: err.Error()}
		}
		return nil, err
	}

	s := &Stream{
		conn:   conn,
		events: make(chan Event, streamBuffer),
		done:   make(chan struct{}),
	}
	s.connected.Store(true)
	go s.readLoop()
	return s, nil
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Connected reports whether the read loop is still running.
func (s *Stream) Connected() bool {
	return s.connected.Load()
}

// Err is the error that ended the stream, valid once Events is closed.
func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) readLoop() {
	defer func() {
		s.connected.Store(false)
		close(s.events)
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				select {
				case <-s.done:
				default:
					s.err = err
				}
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			continue
		}
		select {
		case s.events <- ev:
		case <-s.done:
			return
		}
	}
}

func (s *Stream) emit(eventType string, data interface{}) error {
	if !s.Connected() {
		return ErrStreamClosed
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Event{Type: eventType, Data: raw})
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

// Join subscribes the connection to a chat room. The server answers with a
// joined event, or an error event for a chat the caller is not part of.
func (s *Stream) Join(chatID uint64) error {
	return s.emit("join-chat", map[string]uint64{"chatId": chatID})
}

func (s *Stream) Leave(chatID uint64) error {
	return s.emit("leave-chat", map[string]uint64{"chatId": chatID})
}

func (s *Stream) Typing(chatID uint64, isTyping bool) error {
	return s.emit("typing", map[string]interface{}{"chatId": chatID, "isTyping": isTyping})
}

// Send posts a message over the live connection. The outcome arrives as a
// message-sent or error event carrying tempID.
func (s *Stream) Send(chatID uint64, text, tempID string) error {
	return s.emit("send-message", map[string]interface{}{"chatId": chatID, "text": text, "tempId": tempID})
}

func (s *Stream) Ping() error {
	return s.emit("ping", struct{}{})
}

func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
