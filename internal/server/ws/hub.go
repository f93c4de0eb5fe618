// Package ws hosts the WebSocket hub that pushes live race-card updates to
// connected clients. The hub is a plain in-process fan-out: the push
// refresher hands it a payload and it delivers that payload to every
// connected client as a JSON text frame.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message. Clients
	// only ever send control frames and tiny acks.
	maxMessageSize = 1024

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by the HTTP middleware in front of this.
		return true
	},
}

// client represents a single WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub manages the set of connected WebSocket clients and fans broadcast
// payloads out to all of them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	logger     *slog.Logger
	startedAt  time.Time
}

// NewHub creates a WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "ws")),
		startedAt:  time.Now().UTC(),
	}
}

// Broadcast marshals an envelope {type, payload} and queues it for delivery
// to every connected client. Safe to call from any goroutine; drops the
// message when the hub's queue is full rather than blocking the caller.
func (h *Hub) Broadcast(msgType string, payload any) {
	data, err := json.Marshal(map[string]any{
		"type":    msgType,
		"payload": payload,
	})
	if err != nil {
		h.logger.Error("marshal broadcast failed",
			slog.String("type", msgType),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			slog.String("type", msgType),
		)
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run starts the hub's main event loop. It handles client registration,
// unregistration, and message fan-out, and exits when the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			// Unblock any client goroutine still trying to register or
			// unregister, then drop everyone.
			h.closeOnce.Do(func() { close(h.done) })
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected",
				slog.Int("total_clients", h.ClientCount()),
			)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected",
				slog.Int("total_clients", h.ClientCount()),
			)

		case data := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow client; drop rather than stall the card.
					h.logger.Warn("dropping message for slow client")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleWS upgrades an HTTP request to a WebSocket connection and registers
// the client with the hub.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	if !h.addClient(c) {
		conn.Close()
		return
	}
	c.sendHello()

	go c.writePump()
	go c.readPump()
}

// addClient hands the client to the run loop. It reports false when the hub
// has shut down instead of blocking on the register channel.
func (h *Hub) addClient(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// removeClient hands the client back to the run loop, giving up once the hub
// has shut down (the run loop already dropped its clients).
func (h *Hub) removeClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// sendHello pushes a small envelope so clients can immediately mark the
// connection as healthy before the first card refresh arrives.
func (c *client) sendHello() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	msg, err := json.Marshal(map[string]any{
		"type": "connected",
		"payload": map[string]any{
			"uptime_seconds": uptime,
			"server_time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

// readPump drains the WebSocket connection. Clients do not send data
// messages; the pump exists to process control frames and detect closes.
func (c *client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection, sending
// JSON text frames for data and periodic ping frames for keepalive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
