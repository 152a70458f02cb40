package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.Rooms.ListRoomsFor(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", rooms)
}

func (h *Handler) EnterRoom(c *gin.Context) {
	res, err := h.Rooms.EnterRoom(c.Request.Context(), c.Param("room_id"), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "room.entered", res)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	res, err := h.Rooms.LeaveRoom(c.Request.Context(), c.Param("room_id"), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "room.left", res)
}

func (h *Handler) GetMessages(c *gin.Context) {
	msgs, err := h.Rooms.GetMessages(c.Request.Context(), c.Param("room_id"), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.failure(c, http.StatusBadRequest, "request.invalid", nil)
		return
	}
	msg, err := h.Rooms.SendMessage(c.Request.Context(), c.Param("room_id"), currentUser(c), req.Content)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "message.sent", msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	last, err := h.Rooms.MarkRead(c.Request.Context(), c.Param("room_id"), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "message.read", gin.H{"last_read_message_id": last})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.Rooms.UnreadCount(c.Request.Context(), c.Param("room_id"), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", gin.H{"unread_count": n})
}
