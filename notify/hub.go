package notify

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Pusher delivers a real-time event to a connected user, if any
type Pusher interface {
	Push(userID string, payload interface{})
}

// Hub tracks the websocket connection per user (userId -> *websocket.Conn).
// A new connection for the same user replaces the old one.
type Hub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

// NewHub returns an empty connection hub
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*websocket.Conn)}
}

// Serve upgrades the request and keeps the connection registered for the user
// until it drops.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade error", "error", err)
		return
	}

	h.mutex.Lock()
	if old, ok := h.clients[userID]; ok {
		old.Close()
	}
	h.clients[userID] = conn
	h.mutex.Unlock()
	zap.S().Debugw("user connected to notifications socket", "userId", userID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.mutex.Lock()
		if h.clients[userID] == conn {
			delete(h.clients, userID)
		}
		h.mutex.Unlock()
		zap.S().Debugw("user disconnected from notifications socket", "userId", userID)
		return nil
	})

	// Drain reads to keep the connection alive and notice drops
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.mutex.Lock()
			if h.clients[userID] == conn {
				delete(h.clients, userID)
			}
			h.mutex.Unlock()
			conn.Close()
			break
		}
	}
}

// Push sends a new_notification event to the user's connection. A write
// failure evicts the stale connection.
func (h *Hub) Push(userID string, payload interface{}) {
	h.mutex.Lock()
	conn, exists := h.clients[userID]
	h.mutex.Unlock()

	if !exists {
		return
	}
	err := conn.WriteJSON(map[string]interface{}{
		"event": "new_notification",
		"data":  payload,
	})
	if err != nil {
		zap.S().Errorw("error pushing notification", "userId", userID, "error", err)
		h.mutex.Lock()
		if h.clients[userID] == conn {
			delete(h.clients, userID)
		}
		h.mutex.Unlock()
		conn.Close()
	}
}
