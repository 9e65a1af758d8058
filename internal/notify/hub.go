package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event is the envelope pushed over a user's live connection.
type Event struct {
	Event string    `json:"event"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

// Hub fans events out to each user's open connections. Delivery is
// fire and forget: a user with no connection, or one whose send buffer
// is full, just misses the push. All durable state lives in storage;
// the hub is purely a latency optimization for the app UI.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
	log     *slog.Logger
	clock   func() time.Time
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		log:     log,
		clock:   time.Now,
	}
}

// Notify pushes one event to every connection the user has open.
func (h *Hub) Notify(userID, event string, payload any) {
	raw, err := json.Marshal(Event{Event: event, Data: payload, At: h.clock().UTC()})
	if err != nil {
		h.log.Error("notify marshal failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- raw:
		default:
			// Slow consumer; skip rather than block the caller.
			h.log.Warn("notify dropped: send buffer full", "user_id", userID, "event", event)
		}
	}
}

// Connections reports how many live connections a user has. Used by
// tests and the health surface.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}
