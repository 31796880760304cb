package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/eventhub/backend/internal/events"
	"github.com/eventhub/backend/internal/verify"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const wsWriteTimeout = 5 * time.Second

// WSHub relays lifecycle notifications to websocket clients. A client that
// connects with ?wallet= only receives events owned by that wallet.
type WSHub struct {
	subscriber  events.Subscriber
	log         *zap.Logger
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
}

func NewWSHub(subscriber events.Subscriber, log *zap.Logger) *WSHub {
	return &WSHub{
		subscriber:  subscriber,
		log:         log,
		connections: make(map[string][]*websocket.Conn),
	}
}

func (h *WSHub) Start(ctx context.Context) error {
	return h.subscriber.Subscribe(ctx, events.StreamLifecycle, h.broadcast)
}

func (h *WSHub) broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("ws: marshal event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	owner := strings.ToLower(event.Wallet())

	h.mu.RLock()
	defer h.mu.RUnlock()

	for key, conns := range h.connections {
		if key != "" && key != owner {
			continue
		}
		for _, conn := range conns {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Debug("ws: write failed", zap.Error(err))
			}
		}
	}
}

// Clients reports the number of open connections.
func (h *WSHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, conns := range h.connections {
		n += len(conns)
	}
	return n
}

// WSUpgradeMiddleware checks for websocket upgrade
func WSUpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

func (h *WSHub) HandleWS(conn *websocket.Conn) {
	wallet := conn.Query("wallet")
	if wallet != "" && !verify.IsValidAddress(wallet) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid wallet"}`))
		conn.Close()
		return
	}
	key := strings.ToLower(wallet)

	h.register(key, conn)
	h.log.Debug("ws client connected", zap.String("wallet", key), zap.Int("clients", h.Clients()))
	defer func() {
		h.unregister(key, conn)
		conn.Close()
		h.log.Debug("ws client disconnected", zap.String("wallet", key), zap.Int("clients", h.Clients()))
	}()

	// Read loop (keep alive / pings)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *WSHub) register(key string, conn *websocket.Conn) {
	h.mu.Lock()
	h.connections[key] = append(h.connections[key], conn)
	h.mu.Unlock()
}

func (h *WSHub) unregister(key string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := h.connections[key]
	for i, c := range conns {
		if c == conn {
			h.connections[key] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[key]) == 0 {
		delete(h.connections, key)
	}
}
