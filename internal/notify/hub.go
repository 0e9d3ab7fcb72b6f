// Package notify pushes advisory events to connected browser sessions
// over WebSocket. Delivery is best-effort: a missed push only means the
// client refreshes on its next poll.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

// Hub tracks the open connections of each user and fans events out to
// them. A user may hold several connections (two tabs, phone + laptop).
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]bool
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*client]bool)}
}

// Attach registers a connection for the user and blocks until the peer
// goes away. The hub owns the connection from this point on.
func (h *Hub) Attach(ctx context.Context, userID string, conn *websocket.Conn) {
	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 8),
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]bool)
	}
	h.clients[userID][c] = true
	h.mu.Unlock()

	slog.InfoContext(ctx, "WebSocket attached", "user_id", userID)

	go c.writeLoop()
	c.readLoop() // returns when the peer disconnects

	h.detach(c)
	slog.InfoContext(ctx, "WebSocket detached", "user_id", userID)
}

// Publish marshals v and sends it to every connection of the user.
// Slow or gone connections are dropped, never waited on.
func (h *Hub) Publish(userID string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal notification", "error", err, "user_id", userID)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- body:
		default:
			// Client is not keeping up; it will refetch on reconnect.
		}
	}
}

// ConnectedUsers returns how many distinct users hold open connections.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close shuts every connection down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for c := range conns {
			c.stop()
		}
	}
	h.clients = make(map[string]map[*client]bool)
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
	c.stop()
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case body, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readLoop() {
	// Inbound messages are ignored; reading only surfaces disconnects.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
