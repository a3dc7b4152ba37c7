package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/middleware/auth"
	"github.com/shopline-labs/payment-reconciliation/internal/notify"
)

const (
	pongWait       = 60 * time.Second
	maxMessageSize = 512
)

// WSHandler upgrades authenticated clients onto the notification hub.
// Buyers get their own channel; admins additionally ride the admin channel.
type WSHandler struct {
	logger   *zap.Logger
	hub      *notify.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler instance
func NewWSHandler(logger *zap.Logger, hub *notify.Hub) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin is enforced by the CORS layer in front of the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe handles GET /ws/notifications
func (h *WSHandler) Subscribe(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "Authentication required",
			"code":  "AUTH_REQUIRED",
		})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed",
			zap.String("user_id", user.UserID),
			zap.Error(err))
		return nil
	}

	session := notify.NewSession(uuid.New().String())
	h.hub.Subscribe(notify.UserChannel(user.UserID), session)
	if user.IsAdmin() {
		h.hub.Subscribe(notify.AdminChannel, session)
	}

	h.logger.Info("Websocket client connected",
		zap.String("user_id", user.UserID),
		zap.String("session_id", session.ID()),
		zap.Bool("admin", user.IsAdmin()))

	go session.WritePump(conn, h.logger)
	h.readPump(conn, session, user.UserID)
	return nil
}

// readPump consumes control frames until the peer goes away. Clients send no
// application messages; the read side only keeps the connection liveness
// deadline fresh.
func (h *WSHandler) readPump(conn *websocket.Conn, session *notify.Session, userID string) {
	defer func() {
		h.hub.Drop(session)
		session.Close()
		conn.Close()
		h.logger.Info("Websocket client disconnected",
			zap.String("user_id", userID),
			zap.String("session_id", session.ID()))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket read error",
					zap.String("session_id", session.ID()),
					zap.Error(err))
			}
			return
		}
	}
}
