// Package ws pushes run-completed notifications to dashboard clients over
// WebSocket, so the frontend refreshes without polling.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/contracts"
)

// Client is one connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages connected clients and broadcasts messages to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	siteID  string
	log     zerolog.Logger
}

// NewHub creates a hub for one site.
func NewHub(siteID string, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		siteID:  siteID,
		log:     log.With().Str("component", "ws.hub").Logger(),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends a message to every connected client. Clients with a full
// buffer are skipped rather than blocking the broadcaster.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Msg("client buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RunCompleted announces a finished analysis run to all clients.
func (h *Hub) RunCompleted(runID int64, result *contracts.AnalysisResult) {
	payload := RunCompletedPayload{
		RunID:        runID,
		SiteID:       h.siteID,
		WindowStart:  result.Filter.Window.Start,
		WindowEnd:    result.Filter.Window.End,
		StringCount:  len(result.StringRatios),
		AnomalyCount: len(result.Anomalies),
		GeneratedAt:  result.GeneratedAt,
	}

	msg, err := NewEnvelope(TypeRunCompleted, payload)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build run:completed message")
		return
	}
	h.Broadcast(msg)
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
