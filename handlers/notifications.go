// handlers/notifications.go - Live notification stream over websockets
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"degentalk/logger"
	"degentalk/middleware"
	"degentalk/models"
	"degentalk/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	clientSendBuffer = 16
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

type wsClient struct {
	userID uint
	send   chan []byte
}

// NotificationHub fans delivered notifications out to a user's open sockets.
// It is registered with the dispatcher as a publisher.
type NotificationHub struct {
	mu      sync.RWMutex
	clients map[uint]map[*wsClient]struct{}
	log     *logger.Logger
}

func NewNotificationHub(log *logger.Logger) *NotificationHub {
	return &NotificationHub{
		clients: make(map[uint]map[*wsClient]struct{}),
		log:     log.With("component", "NotificationHub"),
	}
}

func (h *NotificationHub) Name() string { return "websocket" }

// Publish never blocks on a slow client; a full buffer drops the message for
// that socket. The notification row stays readable through the REST endpoint.
func (h *NotificationHub) Publish(_ context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients[n.UserID] {
		select {
		case cl.send <- payload:
		default:
			h.log.Warn("dropping notification for slow client", "user_id", n.UserID, "notification_id", n.ID)
		}
	}
	return nil
}

// Connections returns how many sockets userID has open.
func (h *NotificationHub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *NotificationHub) register(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cl.userID] == nil {
		h.clients[cl.userID] = make(map[*wsClient]struct{})
	}
	h.clients[cl.userID][cl] = struct{}{}
}

func (h *NotificationHub) unregister(cl *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[cl.userID]; ok {
		if _, ok := set[cl]; ok {
			delete(set, cl)
			close(cl.send)
		}
		if len(set) == 0 {
			delete(h.clients, cl.userID)
		}
	}
}

// Upgrade rejects plain HTTP requests on the websocket route.
func (h *NotificationHub) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Stream is the websocket handler. Auth middleware must run first.
// GET /ws/notifications
func (h *NotificationHub) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userId").(uint)
		if !ok || userID == 0 {
			_ = conn.Close()
			return
		}

		cl := &wsClient{userID: userID, send: make(chan []byte, clientSendBuffer)}
		h.register(cl)
		h.log.Debug("notification stream opened", "user_id", userID)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingPeriod)
		defer func() {
			ticker.Stop()
			h.unregister(cl)
			_ = conn.Close()
			h.log.Debug("notification stream closed", "user_id", userID)
		}()

		for {
			select {
			case <-done:
				return
			case msg, ok := <-cl.send:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	})
}

// GetNotifications lists the caller's most recent notifications.
// GET /api/notifications?limit=20
func (h *Handler) GetNotifications(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return RespondError(c, h.log, err)
	}

	items, err := h.engine.Notifier.Recent(c.UserContext(), userID, utils.QueryInt(c, "limit", 20))
	if err != nil {
		return RespondError(c, h.log, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"notifications": items})
}
