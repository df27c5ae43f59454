// Package websocket pushes ledger change notifications to the members of a
// group who are watching it.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Message is a change notification broadcast to a group's subscribers.
// Clients refetch balances on receipt; the message itself is a hint.
type Message struct {
	Type    string         `json:"type"`
	Entity  string         `json:"entity"`
	Action  string         `json:"action"`
	GroupID string         `json:"group_id"`
	ID      string         `json:"id,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action, groupID, id string, extra map[string]any) Message {
	return Message{
		Type:    fmt.Sprintf("%s_%s", entity, action),
		Entity:  entity,
		Action:  action,
		GroupID: groupID,
		ID:      id,
		Extra:   extra,
	}
}

// Hub tracks active clients by the group they subscribed to.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
	gauge  prometheus.Gauge
	logger *slog.Logger
}

// NewHub creates a new Hub. gauge, if non-nil, tracks the connected client count.
func NewHub(logger *slog.Logger, gauge prometheus.Gauge) *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
		gauge:  gauge,
		logger: logger,
	}
}

// Register adds a client to its group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	clients, ok := h.groups[c.groupID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.groups[c.groupID] = clients
	}
	clients[c] = struct{}{}
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.Inc()
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := false
	if clients, ok := h.groups[c.groupID]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			close(c.send)
			removed = true
		}
		if len(clients) == 0 {
			delete(h.groups, c.groupID)
		}
	}
	h.mu.Unlock()

	if removed && h.gauge != nil {
		h.gauge.Dec()
	}
}

// Broadcast sends a message to every client subscribed to msg.GroupID.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[msg.GroupID] {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop message to avoid blocking the writer
			h.logger.Warn("Dropping websocket message", "group_id", msg.GroupID, "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients across all groups.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, clients := range h.groups {
		n += len(clients)
	}
	return n
}

// GroupClientCount returns the number of clients watching one group.
func (h *Hub) GroupClientCount(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupID])
}
