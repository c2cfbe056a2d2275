package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event types broadcast by the auction engine.
const (
	EventAuctionCreated       = "auction_created"
	EventBidRecorded          = "bid_recorded"
	EventAuctionCompleted     = "auction_completed"
	EventAuctionExtended      = "auction_extended"
	EventAssignmentsGenerated = "assignments_generated"
)

// Event is a real-time notification about auction or assignment activity,
// pushed to every connected client so open bidding screens stay current.
type Event struct {
	Type      string         `json:"type"`
	AuctionID int64          `json:"auction_id,omitempty"`
	ChoreID   int64          `json:"chore_id,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Hub maintains the set of active WebSocket clients and broadcasts events.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

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
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends an event to all connected clients. Clients with full
// buffers miss the event rather than block the sender.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
