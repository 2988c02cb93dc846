package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nea-energy/stringsight/backend/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections and attaches clients to the hub.
// Clients are subscribe-only; inbound messages are read and discarded so
// the connection's close frames are still processed.
type Handler struct {
	hub    *Hub
	runner *engine.Runner
	log    zerolog.Logger
}

// NewHandler creates a WebSocket handler.
func NewHandler(hub *Hub, runner *engine.Runner, log zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		runner: runner,
		log:    log.With().Str("component", "ws.handler").Logger(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendHello(client)
	h.readPump(client)
}

func (h *Handler) sendHello(c *Client) {
	_, lastRunID := h.runner.LastResult()
	msg, err := NewEnvelope(TypeHello, HelloPayload{
		ConfigHash: h.runner.ConfigHash(),
		LastRunID:  lastRunID,
	})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}
