package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/requests"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/responses"
)

const signatureHeader = "X-Hub-Signature-256"

// WebhookHandler receives platform events.
type WebhookHandler struct {
	bot         Bot
	verifyToken string
	appSecret   []byte
	log         zerolog.Logger

	wg       sync.WaitGroup
	dispatch func(fn func())
}

func NewWebhookHandler(b Bot, verifyToken, appSecret string, log zerolog.Logger) *WebhookHandler {
	h := &WebhookHandler{
		bot:         b,
		verifyToken: verifyToken,
		appSecret:   []byte(appSecret),
		log:         log.With().Str("handler", "webhook").Logger(),
	}
	h.dispatch = h.background
	return h
}

// Verify handles GET /webhook, the platform subscription handshake.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.log.Warn().Str("mode", mode).Msg("webhook verification rejected")
		responses.Abort(c, http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// Receive handles POST /webhook. Each event is handed to the bot and the
// platform gets its 200 without waiting for the turns to finish.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		responses.Abort(c, http.StatusBadRequest, "could not read body")
		return
	}
	if len(h.appSecret) > 0 && !h.validSignature(c.GetHeader(signatureHeader), body) {
		h.log.Warn().Msg("webhook signature mismatch")
		responses.Abort(c, http.StatusForbidden, "invalid signature")
		return
	}

	var env requests.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		responses.Abort(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if env.Object != "page" {
		responses.Abort(c, http.StatusNotFound, "unsupported object")
		return
	}

	logger := log.Ctx(c.Request.Context())
	ctx := context.WithoutCancel(c.Request.Context())
	dispatched := 0
	for _, entry := range env.Entry {
		for _, event := range entry.Messaging {
			msg, ok := event.Inbound()
			if !ok {
				continue
			}
			senderID := event.Sender.ID
			h.dispatch(func() {
				if err := h.bot.ReceiveMessage(ctx, senderID, msg); err != nil {
					logger.Error().Err(err).Str("user_id", senderID).Msg("turn failed")
				}
			})
			dispatched++
		}
	}
	logger.Debug().Int("events", dispatched).Msg("webhook dispatched")
	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// Wait blocks until every dispatched turn has finished.
func (h *WebhookHandler) Wait() {
	h.wg.Wait()
}

func (h *WebhookHandler) background(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

func (h *WebhookHandler) validSignature(header string, body []byte) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.appSecret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
