package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"spothire/internal/logging"
)

var (
	ErrHubClosed   = errors.New("hub closed")
	ErrBacklogFull = errors.New("broadcast backlog full")
)

// Message is the WebSocket envelope format
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans every event out to every connected observer. There is no topic
// partitioning; observers drop events they do not care about.
type Hub struct {
	conns map[*Connection]struct{}
	mu    sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	log logging.Logger
}

// Connection is one observer. Send is closed by the hub.
type Connection struct {
	ID   string
	Send chan []byte
}

// NewHub creates a hub and starts its loop.
func NewHub(log logging.Logger) *Hub {
	h := &Hub{
		conns:      make(map[*Connection]struct{}),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	ctx := context.Background()
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.conns {
				delete(h.conns, conn)
				close(conn.Send)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.conns[conn] = struct{}{}
			h.mu.Unlock()
			h.log.Info(ctx, "observer connected", "conn", conn.ID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.conns[conn]; ok {
				delete(h.conns, conn)
				close(conn.Send)
				h.log.Info(ctx, "observer disconnected", "conn", conn.ID)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.conns {
				select {
				case conn.Send <- data:
				default:
					// slow observer, drop
					h.log.Debug(ctx, "dropped event for slow observer", "conn", conn.ID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Emit queues an event for every observer without blocking
// (implements service.Notifier).
func (h *Hub) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(&Message{Type: event, Payload: data})
	if err != nil {
		return err
	}

	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	default:
		return ErrBacklogFull
	}
}

// Count returns the number of connected observers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every observer and stops the loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}
