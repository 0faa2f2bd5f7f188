package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/domain/bot"
	"github.com/janhq/dialogue-bot/internal/domain/user"
)

// Bot is the part of the bot service the HTTP surface drives.
type Bot interface {
	ReceiveMessage(ctx context.Context, senderID string, msg user.InboundMessage) error
	PushUpdates(ctx context.Context) (bot.Report, error)
	PushStudyMessages(ctx context.Context) (bot.Report, error)
	ArchiveInactive(ctx context.Context) (bot.Report, error)
	UserProfile(ctx context.Context, id string) (*user.Profile, error)
}

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	Webhook *WebhookHandler
	Admin   *AdminHandler
}

// NewProvider constructs the handler provider.
func NewProvider(cfg *config.Config, b Bot, log zerolog.Logger) *Provider {
	return &Provider{
		Webhook: NewWebhookHandler(b, cfg.VerifyToken, cfg.AppSecret, log),
		Admin:   NewAdminHandler(b, log),
	}
}
