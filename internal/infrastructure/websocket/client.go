package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"carmarket/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Client is one live connection. Its identity is fixed at connect time.
type Client struct {
	ID          string
	UserID      string
	DisplayName string
	Conn        *websocket.Conn
	Send        chan []byte

	roomsMu sync.Mutex
	rooms   map[string]struct{}

	sendMu sync.Mutex
	closed bool
}

// NewClient creates a client with a buffered outbound queue. conn may be nil
// for connections that are drained directly from Send.
func NewClient(userID, displayName string, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		Conn:        conn,
		Send:        make(chan []byte, buffer),
		rooms:       make(map[string]struct{}),
	}
}

// Rooms returns a snapshot of the rooms this connection has joined.
func (c *Client) Rooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (c *Client) inRoom(room string) bool {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

func (c *Client) addRoom(room string) bool {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	if _, ok := c.rooms[room]; ok {
		return false
	}
	c.rooms[room] = struct{}{}
	return true
}

func (c *Client) removeRoom(room string) bool {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	if _, ok := c.rooms[room]; !ok {
		return false
	}
	delete(c.rooms, room)
	return true
}

func (c *Client) clearRooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.rooms = make(map[string]struct{})
	return rooms
}

// trySend queues a frame without blocking. It returns false if the queue is
// full or the client is closed.
func (c *Client) trySend(frame []byte) (ok bool, closed bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, true
	}
	select {
	case c.Send <- frame:
		return true, false
	default:
		return false, false
	}
}

func (c *Client) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

// close is safe to call more than once.
func (c *Client) close() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}

// MessageHandler processes inbound frames for a connection.
type MessageHandler interface {
	HandleClientMessage(ctx context.Context, client *Client, message []byte)
}

// ReadPump reads frames until the connection fails, handling each one in
// order. It unregisters the client on exit.
func (c *Client) ReadPump(ctx context.Context, m *Manager, handler MessageHandler) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for client %s (%s): %v", c.ID, c.UserID, err)
			}
			return
		}
		handler.HandleClientMessage(ctx, c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for client %s (%s): %v", c.ID, c.UserID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
