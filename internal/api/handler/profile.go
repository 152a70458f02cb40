package handler

import (
	"campusmatch/backend/internal/chathub"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.Profiles.GetProfile(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", profile)
}

func (h *Handler) SaveProfile(c *gin.Context) {
	var in chathub.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.failure(c, http.StatusBadRequest, "request.invalid", nil)
		return
	}
	profile, err := h.Profiles.SaveProfile(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "profile.saved", profile)
}
