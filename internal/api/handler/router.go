package handler

import (
	"github.com/gin-gonic/gin"
)

// Routes registers every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/anonid", h.GetAnonID) // Отримання JWT для AnonID

	api := r.Group("/api", h.Auth())
	{
		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.SaveProfile)

		api.POST("/matching", h.StartMatching)
		api.DELETE("/matching", h.CancelMatching)
		api.GET("/matching", h.GetMatchingStatus)

		api.POST("/group-matching", h.StartGroupMatching)
		api.DELETE("/group-matching", h.CancelGroupMatching)
		api.GET("/group-matching", h.GetGroupMatchingStatus)

		api.GET("/rooms", h.ListRooms)
		api.POST("/rooms/:room_id/enter", h.EnterRoom)
		api.POST("/rooms/:room_id/leave", h.LeaveRoom)
		api.GET("/rooms/:room_id/messages", h.GetMessages)
		api.POST("/rooms/:room_id/messages", h.SendMessage)
		api.POST("/rooms/:room_id/read", h.MarkRead)
		api.GET("/rooms/:room_id/unread", h.UnreadCount)
	}

	r.GET("/ws/rooms/:room_id", h.Auth(), h.ServeWebSocket) // WebSocket Upgrade
}
