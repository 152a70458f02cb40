package handler

import (
	"campusmatch/backend/internal/models"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// incomingFrame is what a client sends over the room socket.
type incomingFrame struct {
	Content string `json:"content"`
}

// errorFrame is sent back when an outgoing message is rejected.
type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// upgrader is configured per handler so the origin check follows CORS_ORIGINS.
func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.Config.CORSOrigins) == 0 {
				return true
			}
			for _, allowed := range h.Config.CORSOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
// The socket streams every new message of the room and accepts
// {"content": "..."} frames that are sent as the authenticated user.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := currentUser(c)
	roomID := c.Param("room_id")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	messages, unsubscribe, err := h.Rooms.Subscribe(ctx, roomID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Warn("ServeWebSocket: upgrade failed")
		return
	}

	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})
	logCtx.Info("ServeWebSocket: client connected")

	replies := make(chan errorFrame, 8)
	go h.writePump(ctx, conn, messages, replies)
	h.readPump(ctx, conn, roomID, userID, replies)

	logCtx.Info("ServeWebSocket: client disconnected")
}

// readPump runs until the client goes away.
func (h *Handler) readPump(ctx context.Context, conn *websocket.Conn, roomID, userID string, replies chan<- errorFrame) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).WithField("user_id", userID).Warn("readPump: unexpected close")
			}
			return
		}

		var frame incomingFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Debug("readPump: invalid frame")
			continue
		}

		// The stored message comes back through the subscription.
		if _, err := h.Rooms.SendMessage(ctx, roomID, userID, frame.Content); err != nil {
			select {
			case replies <- errorFrame{Type: "error", Message: err.Error()}:
			default:
			}
		}
	}
}

// writePump forwards room messages and keeps the connection alive with pings.
func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, messages <-chan models.Message, replies <-chan errorFrame) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		var payload any
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload = msg
		case reply := <-replies:
			payload = reply
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(payload); err != nil {
			return
		}
	}
}
