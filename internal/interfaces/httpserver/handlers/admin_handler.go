package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/janhq/dialogue-bot/internal/domain/bot"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/responses"
)

// AdminHandler exposes manual triggers for the scheduled jobs and user
// lookups.
type AdminHandler struct {
	bot Bot
	log zerolog.Logger
}

func NewAdminHandler(b Bot, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{bot: b, log: log.With().Str("handler", "admin").Logger()}
}

// Profile handles GET /v1/users/:id/profile.
func (h *AdminHandler) Profile(c *gin.Context) {
	id := c.Param("id")
	p, err := h.bot.UserProfile(c.Request.Context(), id)
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("user_id", id).Msg("profile lookup failed")
		responses.Abort(c, http.StatusBadGateway, "could not fetch profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

// PushUpdates handles POST /v1/push/updates.
func (h *AdminHandler) PushUpdates(c *gin.Context) {
	h.run(c, h.bot.PushUpdates)
}

// PushStudy handles POST /v1/push/study.
func (h *AdminHandler) PushStudy(c *gin.Context) {
	h.run(c, h.bot.PushStudyMessages)
}

// Archive handles POST /v1/users/archive.
func (h *AdminHandler) Archive(c *gin.Context) {
	h.run(c, h.bot.ArchiveInactive)
}

func (h *AdminHandler) run(c *gin.Context, job func(context.Context) (bot.Report, error)) {
	report, err := job(c.Request.Context())
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Str("job", report.Job).Msg("job failed")
		responses.Abort(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}
