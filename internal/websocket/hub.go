package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Entity names a kind of record clients keep in sync.
type Entity string

const (
	EntityMember       Entity = "member"
	EntityCycle        Entity = "cycle"
	EntityTask         Entity = "task"
	EntityLogbook      Entity = "logbook"
	EntityAvailability Entity = "availability"
	EntityStandings    Entity = "standings"
	EntityBackup       Entity = "backup"
)

// Action says what happened to the entity.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionDeleted     Action = "deleted"
	ActionModeChanged Action = "mode_changed"
	ActionSlotUpdated Action = "slot_updated"
	ActionDayUpdated  Action = "day_updated"
	ActionLogged      Action = "logged"
	ActionCalculated  Action = "calculated"
	ActionStatus      Action = "status"
)

// Message represents a real-time sync notification broadcast to all clients.
type Message struct {
	Type   string         `json:"type"`
	Entity Entity         `json:"entity"`
	Action Action         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity Entity, action Action, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// A client that keeps a full send buffer across this many consecutive
// broadcasts is evicted rather than left to rot.
const maxSendDrops = 8

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("client connected", "clients", n)
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()
}

// remove must be called with h.mu held.
func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends a message to all connected clients. A client whose
// buffer is full misses the message; one that stays full long enough
// is disconnected.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
			c.drops = 0
		default:
			c.drops++
			if c.drops >= maxSendDrops {
				h.logger.Warn("evicting stalled client", "missed", c.drops)
				h.remove(c)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
