package handler

import (
	"campusmatch/backend/internal/chathub"
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/localization"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler містить посилання на сервіси чату
type Handler struct {
	Profiles  *chathub.ProfileService
	Matcher   *chathub.MatcherService
	Groups    *chathub.GroupMatcherService
	Rooms     *chathub.ManagerService
	Localizer *localization.Localizer
	Config    *config.Config
}

func NewHandler(
	cfg *config.Config,
	loc *localization.Localizer,
	profiles *chathub.ProfileService,
	matcher *chathub.MatcherService,
	groups *chathub.GroupMatcherService,
	rooms *chathub.ManagerService,
) *Handler {
	return &Handler{
		Profiles:  profiles,
		Matcher:   matcher,
		Groups:    groups,
		Rooms:     rooms,
		Localizer: loc,
		Config:    cfg,
	}
}

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) text(key string) string {
	return h.Localizer.GetString(h.Config.Language, key)
}

func (h *Handler) success(c *gin.Context, key string, data any) {
	c.JSON(http.StatusOK, Response{Success: true, Message: h.text(key), Data: data})
}

func (h *Handler) failure(c *gin.Context, code int, key string, data any) {
	c.JSON(code, Response{Success: false, Message: h.text(key), Data: data})
}

// handleServiceError maps chathub errors onto a status code and message.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var active *chathub.ActiveRoomError
	var invalid *chathub.ValidationError
	switch {
	case errors.As(err, &active):
		h.failure(c, http.StatusConflict, "matching.already_in_room", gin.H{
			"room_id":          active.RoomID,
			"partner_nickname": active.PartnerNickname,
		})
	case errors.Is(err, chathub.ErrAlreadyWaiting):
		h.failure(c, http.StatusConflict, "matching.already_waiting", nil)
	case errors.Is(err, chathub.ErrAlreadyQueued):
		h.failure(c, http.StatusConflict, "group.already_queued", nil)
	case errors.Is(err, chathub.ErrProfileRequired):
		h.failure(c, http.StatusPreconditionRequired, "profile.required", nil)
	case errors.Is(err, chathub.ErrRoomNotFound):
		h.failure(c, http.StatusNotFound, "room.not_found", nil)
	case errors.Is(err, chathub.ErrRoomInactive):
		h.failure(c, http.StatusGone, "room.inactive", nil)
	case errors.Is(err, chathub.ErrNotAParticipant):
		h.failure(c, http.StatusForbidden, "room.forbidden", nil)
	case errors.As(err, &invalid):
		h.failure(c, http.StatusBadRequest, invalid.Key, nil)
	case errors.Is(err, chathub.ErrValidation):
		h.failure(c, http.StatusBadRequest, "request.invalid", nil)
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Unhandled internal server error")
		h.failure(c, http.StatusInternalServerError, "server.error", nil)
	}
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	h.success(c, "ok", nil)
}
