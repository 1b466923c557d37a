package websocket

import (
	"sync"

	"carmarket/internal/infrastructure/metrics"
	"carmarket/pkg/logger"
)

// Deliverer is the live push surface used by the use cases. Delivery is
// fire-and-forget: failures are logged and never reported to the caller.
type Deliverer interface {
	BroadcastToRoom(chatID uint64, event Event)
	BroadcastToRoomExcept(chatID uint64, exceptUserID string, event Event)
	SendToUser(userID string, event Event)
}

// clientSet is an individually locked set of connections. A set that has been
// detached from its parent map is marked removed and must not be reused.
type clientSet struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	removed bool
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[*Client]struct{})}
}

func (s *clientSet) snapshot() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *clientSet) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// setIndex maps keys to client sets. Its lock only guards the map itself;
// membership changes lock the individual set.
type setIndex struct {
	mu   sync.RWMutex
	sets map[string]*clientSet
}

func newSetIndex() *setIndex {
	return &setIndex{sets: make(map[string]*clientSet)}
}

func (idx *setIndex) get(key string) *clientSet {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.sets[key]
}

func (idx *setIndex) getOrCreate(key string) *clientSet {
	if s := idx.get(key); s != nil {
		return s
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	s, ok := idx.sets[key]
	if !ok {
		s = newClientSet()
		idx.sets[key] = s
	}
	return s
}

// add inserts c under key and reports whether it was newly added.
func (idx *setIndex) add(key string, c *Client) bool {
	for {
		s := idx.getOrCreate(key)
		s.mu.Lock()
		if s.removed {
			s.mu.Unlock()
			continue
		}
		_, exists := s.clients[c]
		s.clients[c] = struct{}{}
		s.mu.Unlock()
		return !exists
	}
}

// remove deletes c from key, dropping the set once it is empty.
func (idx *setIndex) remove(key string, c *Client) (removed bool, remaining int) {
	s := idx.get(key)
	if s == nil {
		return false, 0
	}
	s.mu.Lock()
	_, removed = s.clients[c]
	delete(s.clients, c)
	remaining = len(s.clients)
	empty := remaining == 0 && !s.removed
	s.mu.Unlock()

	if empty {
		idx.mu.Lock()
		s.mu.Lock()
		if len(s.clients) == 0 && idx.sets[key] == s {
			s.removed = true
			delete(idx.sets, key)
		}
		s.mu.Unlock()
		idx.mu.Unlock()
	}
	return removed, remaining
}

func (idx *setIndex) members(key string) []*Client {
	s := idx.get(key)
	if s == nil {
		return nil
	}
	return s.snapshot()
}

func (idx *setIndex) count(key string) int {
	s := idx.get(key)
	if s == nil {
		return 0
	}
	return s.size()
}

func (idx *setIndex) len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.sets)
}

// Manager is the connection registry and room membership manager for one
// process. It is safe for concurrent use.
type Manager struct {
	users *setIndex
	rooms *setIndex
}

func NewManager() *Manager {
	return &Manager{
		users: newSetIndex(),
		rooms: newSetIndex(),
	}
}

// Register adds a connection under its user. A user may hold many connections.
func (m *Manager) Register(client *Client) {
	if m.users.add(client.UserID, client) {
		metrics.LiveConnections.Inc()
		logger.Info("WebSocket: client %s registered for user %s", client.ID, client.UserID)
	}
}

// Unregister removes the connection from its user and every room it joined,
// then closes its outbound queue. Calling it twice is harmless.
func (m *Manager) Unregister(client *Client) {
	if !client.close() {
		return
	}
	for _, room := range client.clearRooms() {
		m.rooms.remove(room, client)
	}
	removed, remaining := m.users.remove(client.UserID, client)
	if removed {
		metrics.LiveConnections.Dec()
	}
	if remaining == 0 {
		logger.Info("WebSocket: client %s unregistered, user %s is offline", client.ID, client.UserID)
		return
	}
	logger.Info("WebSocket: client %s unregistered, user %s has %d connection(s)", client.ID, client.UserID, remaining)
}

// JoinRoom is idempotent. It returns false when the connection was already a
// member or is closed.
func (m *Manager) JoinRoom(client *Client, chatID uint64) bool {
	room := RoomName(chatID)
	if !client.addRoom(room) {
		return false
	}
	m.rooms.add(room, client)
	// a concurrent Unregister may have cleared rooms before the add landed
	if client.isClosed() {
		m.rooms.remove(room, client)
		return false
	}
	logger.Debug("WebSocket: client %s joined %s", client.ID, room)
	return true
}

// LeaveRoom is idempotent. It returns false when the connection was not a member.
func (m *Manager) LeaveRoom(client *Client, chatID uint64) bool {
	room := RoomName(chatID)
	if !client.removeRoom(room) {
		return false
	}
	m.rooms.remove(room, client)
	logger.Debug("WebSocket: client %s left %s", client.ID, room)
	return true
}

func (m *Manager) BroadcastToRoom(chatID uint64, event Event) {
	m.BroadcastToRoomExcept(chatID, "", event)
}

// BroadcastToRoomExcept skips every connection owned by exceptUserID.
func (m *Manager) BroadcastToRoomExcept(chatID uint64, exceptUserID string, event Event) {
	frame, err := event.Encode()
	if err != nil {
		logger.Error("WebSocket: failed to encode %s event: %v", event.Type, err)
		return
	}
	m.BroadcastFrame(RoomName(chatID), exceptUserID, event.Type, frame)
}

func (m *Manager) SendToUser(userID string, event Event) {
	frame, err := event.Encode()
	if err != nil {
		logger.Error("WebSocket: failed to encode %s event: %v", event.Type, err)
		return
	}
	m.SendFrameToUser(userID, event.Type, frame)
}

// BroadcastFrame delivers an encoded frame to a room. It returns the number of
// connections the frame was queued to.
func (m *Manager) BroadcastFrame(room, exceptUserID, eventType string, frame []byte) int {
	delivered := 0
	for _, c := range m.rooms.members(room) {
		if exceptUserID != "" && c.UserID == exceptUserID {
			continue
		}
		if m.deliver(c, eventType, frame) {
			delivered++
		}
	}
	return delivered
}

// SendFrameToUser delivers an encoded frame to every connection of a user.
func (m *Manager) SendFrameToUser(userID, eventType string, frame []byte) int {
	delivered := 0
	for _, c := range m.users.members(userID) {
		if m.deliver(c, eventType, frame) {
			delivered++
		}
	}
	return delivered
}

// SendToClient queues an event for a single connection.
func (m *Manager) SendToClient(client *Client, event Event) bool {
	frame, err := event.Encode()
	if err != nil {
		logger.Error("WebSocket: failed to encode %s event: %v", event.Type, err)
		return false
	}
	return m.deliver(client, event.Type, frame)
}

// deliver never blocks. A connection whose queue is full is a slow consumer
// and is disconnected; it will reconcile from durable state on reconnect.
func (m *Manager) deliver(c *Client, eventType string, frame []byte) bool {
	ok, closed := c.trySend(frame)
	if ok {
		metrics.EventsDelivered.WithLabelValues(eventType).Inc()
		return true
	}
	if closed {
		metrics.EventsDropped.WithLabelValues("closed").Inc()
		return false
	}
	metrics.EventsDropped.WithLabelValues("slow_consumer").Inc()
	logger.Warn("WebSocket: dropping slow client %s (%s), %s event discarded", c.ID, c.UserID, eventType)
	m.Unregister(c)
	return false
}

func (m *Manager) isOnline(userID string) bool {
	return m.users.count(userID) > 0
}

func (m *Manager) connectionCount(userID string) int {
	return m.users.count(userID)
}

func (m *Manager) roomSize(chatID uint64) int {
	return m.rooms.count(RoomName(chatID))
}

// Stats reports the number of online users and non-empty rooms.
func (m *Manager) Stats() (onlineUsers, activeRooms int) {
	return m.users.len(), m.rooms.len()
}

// Shutdown disconnects every registered connection.
func (m *Manager) Shutdown() {
	m.users.mu.RLock()
	keys := make([]string, 0, len(m.users.sets))
	for k := range m.users.sets {
		keys = append(keys, k)
	}
	m.users.mu.RUnlock()

	for _, k := range keys {
		for _, c := range m.users.members(k) {
			m.Unregister(c)
		}
	}
}
