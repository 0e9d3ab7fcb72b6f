package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newHubServer(t *testing.T, hub *Hub, userID string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Attach(r.Context(), userID, conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForUsers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedUsers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connected users, got %d", n, hub.ConnectedUsers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishReachesClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := newHubServer(t, hub, "user-1")
	conn := dial(t, srv)
	waitForUsers(t, hub, 1)

	hub.Publish("user-1", map[string]string{"type": "request.created"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, body, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var msg map[string]string
	if err := json.Unmarshal(body, &msg); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if msg["type"] != "request.created" {
		t.Errorf("unexpected message: %v", msg)
	}
}

func TestPublishToUnknownUserIsNoop(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Must not panic or block.
	hub.Publish("nobody", map[string]string{"type": "request.created"})
}

func TestMultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := newHubServer(t, hub, "user-1")
	conn1 := dial(t, srv)
	conn2 := dial(t, srv)

	deadline := time.Now().Add(2 * time.Second)
	for {
		hub.mu.RLock()
		n := len(hub.clients["user-1"])
		hub.mu.RUnlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 connections, got %d", n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish("user-1", map[string]string{"type": "attendance.marked"})

	for i, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("connection %d did not receive the message: %v", i, err)
		}
	}
}

func TestDetachOnDisconnect(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := newHubServer(t, hub, "user-1")
	conn := dial(t, srv)
	waitForUsers(t, hub, 1)

	conn.Close()
	waitForUsers(t, hub, 0)
}
