package handler

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) StartMatching(c *gin.Context) {
	res, err := h.Matcher.StartMatching(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	key := "matching.waiting"
	if res.Matched {
		key = "matching.matched"
	}
	h.success(c, key, res)
}

func (h *Handler) CancelMatching(c *gin.Context) {
	removed, err := h.Matcher.CancelMatching(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "matching.cancelled", gin.H{"removed": removed})
}

func (h *Handler) GetMatchingStatus(c *gin.Context) {
	status, err := h.Matcher.GetMatchingStatus(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", status)
}

func (h *Handler) StartGroupMatching(c *gin.Context) {
	res, err := h.Groups.StartGroupMatching(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	key := "group.waiting"
	if res.Formed {
		key = "group.formed"
	}
	h.success(c, key, res)
}

func (h *Handler) CancelGroupMatching(c *gin.Context) {
	removed, err := h.Groups.CancelGroupMatching(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "group.cancelled", gin.H{"removed": removed})
}

func (h *Handler) GetGroupMatchingStatus(c *gin.Context) {
	status, err := h.Groups.GetGroupMatchingStatus(c.Request.Context(), currentUser(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.success(c, "ok", status)
}
