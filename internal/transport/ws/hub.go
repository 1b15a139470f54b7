package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/danielladerman/speakflow/internal/model"
)

// Hub fans session status events out to the WebSocket clients watching
// each session.
type Hub struct {
	// sessionID -> connections
	watchers map[string]map[*Connection]bool

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan model.StatusEvent

	log *logrus.Entry
}

// Connection represents one WebSocket client watching a session.
type Connection struct {
	SessionID string
	Send      chan []byte
	Hub       *Hub
}

// NewHub creates and starts a hub.
func NewHub() *Hub {
	h := &Hub{
		watchers:   make(map[string]map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan model.StatusEvent, 256),
		log:        logrus.WithField("component", "ws.hub"),
	}
	go h.run()
	return h
}

// Broadcast queues a status event for delivery to that session's watchers.
func (h *Hub) Broadcast(event model.StatusEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.log.WithField("session_id", event.SessionID).Warn("broadcast buffer full, dropping event")
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if h.watchers[conn.SessionID] == nil {
				h.watchers[conn.SessionID] = make(map[*Connection]bool)
			}
			h.watchers[conn.SessionID][conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.watchers[conn.SessionID]; ok {
				if conns[conn] {
					delete(conns, conn)
					close(conn.Send)
					if len(conns) == 0 {
						delete(h.watchers, conn.SessionID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.WithError(err).Warn("failed to encode status event")
				continue
			}
			h.mu.RLock()
			for conn := range h.watchers[event.SessionID] {
				select {
				case conn.Send <- data:
				default:
					// Slow client; it will be dropped by its write pump.
				}
			}
			h.mu.RUnlock()
		}
	}
}
