package notification

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nyayasetu/platform/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub tracks one live websocket connection per user and implements
// Pusher. A fresh connection replaces the previous one.
type Hub struct {
	mu      sync.Mutex
	clients map[types.ID]*websocket.Conn
}

func NewHub() *Hub {
	return &Hub{clients: make(map[types.ID]*websocket.Conn)}
}

// Serve upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID types.ID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok {
		prev.Close()
	}
	h.clients[userID] = conn
	h.mu.Unlock()
	zap.S().Debugw("notification session connected", "user_id", userID)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	conn.Close()
	h.mu.Lock()
	if h.clients[userID] == conn {
		delete(h.clients, userID)
	}
	h.mu.Unlock()
	zap.S().Debugw("notification session disconnected", "user_id", userID)
}

// Push writes the notification to the user's live session, if any. No
// session is not an error: live push is a convenience on top of the
// durable store.
func (h *Hub) Push(userID types.ID, n *Notification) error {
	h.mu.Lock()
	conn, ok := h.clients[userID]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	err := conn.WriteJSON(map[string]any{
		"event": "new_notification",
		"data":  n,
	})
	if err != nil {
		h.mu.Lock()
		if h.clients[userID] == conn {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
		conn.Close()
		return err
	}
	return nil
}
