package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/dialdeskhq/dialdesk-platform/internal/notify"
	"github.com/dialdeskhq/dialdesk-platform/internal/tenancy"
	"github.com/dialdeskhq/dialdesk-platform/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 16
)

// Hub bridges the Redis tenant event channels onto websocket connections so
// open dashboards refresh live. It is the consuming side of the publisher in
// the notify package; the webhook engine itself never touches it.
type Hub struct {
	rdb      *redis.Client
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub over the given Redis client.
func NewHub(rdb *redis.Client, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		rdb:    rdb,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browsers enforce same-origin for the dashboard; CORS already
			// gates the rest of the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]map[*client]struct{}),
	}
}

// Run subscribes to all tenant event channels and fans messages out until
// the context is canceled.
func (h *Hub) Run(ctx context.Context) error {
	if h.rdb == nil {
		<-ctx.Done()
		return nil
	}
	pubsub := h.rdb.PSubscribe(ctx, notify.UserChannel("*"))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID := userIDFromChannel(msg.Channel)
			if userID == "" {
				continue
			}
			h.broadcast(userID, []byte(msg.Payload))
		}
	}
}

func userIDFromChannel(channel string) string {
	// user:{id}:events
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != "user" || parts[2] != "events" {
		return ""
	}
	return parts[1]
}

func (h *Hub) broadcast(userID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop the frame rather than block the hub.
		}
	}
}

// HandleWS upgrades an authenticated request into a subscription for the
// tenant in context.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	h.register(userID, c)
	go h.writePump(c)
	go h.readPump(userID, c)
}

func (h *Hub) register(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
}

func (h *Hub) unregister(userID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[userID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
			if len(conns) == 0 {
				delete(h.clients, userID)
			}
		}
	}
}

// readPump discards client frames; the socket is push-only. Its real job is
// detecting disconnects.
func (h *Hub) readPump(userID string, c *client) {
	defer func() {
		h.unregister(userID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
