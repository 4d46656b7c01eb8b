package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Client represents a single authenticated WebSocket connection.
//
// Send is never closed: broadcasts race disconnects, and a send on a
// closed channel would panic the broadcasting goroutine. Delivery goes
// through Deliver, which checks the closed flag under the client's lock;
// the write pump learns about shutdown from Done instead.
type Client struct {
	UserID uint
	Send   chan []byte

	hub    *Hub
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// Deliver enqueues data for the write pump. Closed clients and slow
// consumers are dropped rather than blocking or panicking the caller.
func (c *Client) Deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Done is closed when the client leaves the hub.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.done)
}

// Event is the wire shape for everything the gateway emits.
type Event struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Hub tracks all connections with a userID → socket-set index so
// per-user delivery is O(sockets-for-user), and owns presence: the first
// socket of a user emits user-online, the last emits user-offline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[uint]map[*Client]struct{}),
	}
}

// Register adds the connection and returns it; emits user-online when this
// is the user's first socket.
func (h *Hub) Register(userID uint) *Client {
	c := &Client{UserID: userID, Send: make(chan []byte, 256), done: make(chan struct{}), hub: h}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	first := h.byUser[userID] == nil || len(h.byUser[userID]) == 0
	if h.byUser[userID] == nil {
		h.byUser[userID] = make(map[*Client]struct{})
	}
	h.byUser[userID][c] = struct{}{}
	h.mu.Unlock()
	if first {
		h.BroadcastAll(Event{Type: "user-online", Payload: map[string]interface{}{"userId": userID}})
	}
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	last := false
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
			last = true
		}
	}
	h.mu.Unlock()
	if last {
		h.BroadcastAll(Event{Type: "user-offline", Payload: map[string]interface{}{
			"userId":   c.UserID,
			"lastSeen": time.Now().UTC(),
		}})
	}
}

// IsOnline reports whether the user has at least one live socket.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}

// BroadcastToUser delivers to every socket of one user. Slow consumers
// are skipped rather than blocking the caller.
func (h *Hub) BroadcastToUser(userID uint, event Event) {
	data, _ := json.Marshal(event)
	h.mu.RLock()
	m := h.byUser[userID]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Deliver(data)
	}
}

func (h *Hub) BroadcastAll(event Event) {
	data, _ := json.Marshal(event)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.Deliver(data)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
