package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"dietly/internal/events"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Hub pushes badge unlock notifications to connected clients over
// websockets. It subscribes to the in-process event bus, so awarding
// and delivery stay decoupled: a user with no open socket simply sees
// the badge on their next catalog fetch.
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]bool
	logger  *zap.Logger

	upgrader websocket.Upgrader
}

// Client is one websocket connection belonging to one user. The send
// channel is never closed; done signals writePump to exit, so a bus
// worker holding a stale client reference can still send safely.
type Client struct {
	hub    *Hub
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
}

// NewHub creates a new notification hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Hub{
		clients: make(map[int64]map[*Client]bool),
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Cross-origin policy is enforced by the CORS
				// middleware in front of the upgrade.
				return true
			},
		},
	}
}

// SubscribeTo registers the hub on the event bus for badge awards.
func (h *Hub) SubscribeTo(bus events.Bus) {
	bus.Subscribe(events.TypeBadgeAwarded, h)
}

// GetHandlerID implements events.Handler
func (h *Hub) GetHandlerID() string { return "notify.hub" }

// Handle implements events.Handler: it forwards a BadgeAwarded event
// to every open socket of the awarded user.
func (h *Hub) Handle(ctx context.Context, event events.BusEvent) error {
	awarded, ok := event.(events.BadgeAwarded)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	message, err := json.Marshal(map[string]interface{}{
		"type":  "badge_awarded",
		"badge": awarded,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[awarded.UserID]))
	for client := range h.clients[awarded.UserID] {
		conns = append(conns, client)
	}
	h.mu.RUnlock()

	for _, client := range conns {
		select {
		case client.send <- message:
		case <-client.done:
			// Disconnected between the snapshot and the send.
		default:
			// Slow consumer; drop the socket rather than block the bus.
			h.unregister(client)
		}
	}

	h.logger.Debug("Badge notification dispatched",
		zap.Int64("user_id", awarded.UserID),
		zap.Int64("badge_id", awarded.BadgeID),
		zap.Int("connections", len(conns)),
	)

	return nil
}

// ServeWS upgrades an HTTP request to a websocket connection for the
// given user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID int64) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return
	}

	client := &Client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 16),
		done:   make(chan struct{}),
	}

	h.register(client)

	go client.writePump()
	go client.readPump()
}

// ConnectionCount returns the number of open sockets for a user.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	h.logger.Debug("Notification client connected",
		zap.Int64("user_id", client.userID),
	)
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	conns, ok := h.clients[client.userID]
	if ok {
		if _, present := conns[client]; present {
			delete(conns, client)
			// Only done is ever closed. Closing send here would race
			// with Handle, which sends outside the lock.
			close(client.done)
		}
		if len(conns) == 0 {
			delete(h.clients, client.userID)
		}
	}
	h.mu.Unlock()
}

// readPump discards inbound frames and keeps the connection alive.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
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
				c.hub.logger.Debug("Websocket closed unexpectedly",
					zap.Int64("user_id", c.userID),
					zap.Error(err),
				)
			}
			return
		}
	}
}

// writePump forwards queued messages to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
