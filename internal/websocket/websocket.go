package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

// Event is the payload broadcast to all connected WebSocket clients.
// Dashboards listen for these to refresh ledger and progress views after a
// write completes.
type Event struct {
	Type      string `json:"type"`
	ProcessID string `json:"process_id,omitempty"`
	ID        any    `json:"id"`
	Action    string `json:"action"`
}

// Well-known event types.
const (
	EventOrderSaved       = "order_saved"
	EventDeliverySaved    = "delivery_saved"
	EventQuotationDeleted = "quotation_deleted"
	EventProgressDirty    = "progress_dirty"
)

// client wraps a WebSocket connection with a mutex for thread-safe writes.
type client struct {
	conn *ws.Conn
	mu   sync.Mutex
}

// Hub maintains connected WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	if c.conn != nil {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("ws: close panic: %v", r)
			}
		}()
		_ = c.conn.Close()
	}
}

// Broadcast sends an event to all connected clients.
func (h *Hub) Broadcast(evt Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.mu.Lock()
		writeErr := func() (writeErr error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("ws: write panic: %v", r)
					writeErr = fmt.Errorf("ws: write panic: %v", r)
				}
			}()
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			return c.conn.WriteMessage(ws.TextMessage, data)
		}()
		c.mu.Unlock()

		if writeErr != nil {
			h.unregister(c)
		}
	}
}

// BroadcastChange is a convenience helper for broadcasting resource changes.
// A progress_dirty event follows every order/delivery change so dashboards
// re-read the reconciled progress after refreshing the ledger view.
func (h *Hub) BroadcastChange(eventType, processID, action string, id any) {
	h.Broadcast(Event{Type: eventType, ProcessID: processID, ID: id, Action: action})
	if eventType == EventOrderSaved || eventType == EventDeliverySaved {
		h.Broadcast(Event{Type: EventProgressDirty, ProcessID: processID, ID: id, Action: "refresh"})
	}
}

// Upgrader is the default WebSocket upgrader.
var Upgrader = ws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the connection and keeps it alive with pings.
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}

	c := &client{conn: conn}
	hub.register(c)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			c.mu.Lock()
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			err := c.conn.WriteMessage(ws.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				hub.unregister(c)
				return
			}
		}
	}()

	go func() {
		for {
			if _, _, err := c.conn.ReadMessage(); err != nil {
				hub.unregister(c)
				return
			}
		}
	}()
}
