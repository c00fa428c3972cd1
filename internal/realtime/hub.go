// Package realtime streams dashboard events (applications received,
// registrations completed) to connected admin clients over WebSocket, with
// Redis pub/sub fan-out across instances.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub maintains event_id -> set of connections and broadcasts messages.
type Hub struct {
	rooms  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per event
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// Publisher publishes to Redis for cross-instance broadcast.
type Publisher interface {
	PublishEvent(eventID uuid.UUID, event string, payload []byte) error
}

// Subscriber subscribes to an event's channel and invokes handler for
// incoming messages.
type Subscriber interface {
	SubscribeEvent(eventID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a WebSocket hub. Publisher and subscriber may be nil when
// Redis is unavailable; the hub then broadcasts locally only.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to an event room, starting the Redis subscription
// when it is the room's first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.EventID] == nil {
		h.rooms[c.EventID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeEvent(c.EventID, func(event string, payload []byte) {
				h.broadcastLocal(c.EventID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.EventID] = cancel
			}
		}
	}
	h.rooms[c.EventID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("dashboard client joined",
		zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

// Unregister removes a client, cancelling the Redis subscription when the
// last client leaves the room.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.EventID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.EventID)
			if cancel, ok := h.subs[c.EventID]; ok {
				cancel()
				delete(h.subs, c.EventID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("dashboard client left",
		zap.String("client_id", c.ID), zap.String("event_id", c.EventID.String()))
}

func (h *Hub) broadcastLocal(eventID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := Message{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[eventID]
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastToEvent sends to local clients and publishes to Redis for other
// instances.
func (h *Hub) BroadcastToEvent(eventID uuid.UUID, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(eventID, event, json.RawMessage(data))
	if h.pub != nil {
		_ = h.pub.PublishEvent(eventID, event, data)
	}
}

// AudienceCount returns the number of connected clients for an event.
func (h *Hub) AudienceCount(eventID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[eventID])
}
