//go:build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/domain/bot"
	"github.com/janhq/dialogue-bot/internal/infrastructure/events"
	"github.com/janhq/dialogue-bot/internal/infrastructure/messenger"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/contentrepo"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/userrepo"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/handlers"
)

var botSet = wire.NewSet(
	newRedisCache,
	newUserRepository,
	wire.Bind(new(bot.UserRepository), new(*userrepo.Repository)),
	newContentRepository,
	wire.Bind(new(bot.ContentRepository), new(*contentrepo.Repository)),
	newMessenger,
	wire.Bind(new(bot.Messenger), new(*messenger.Client)),
	newEventsClient,
	wire.Bind(new(bot.EventLogger), new(*events.Client)),
	newEngine,
	newProfileCache,
	newBotService,
	wire.Bind(new(handlers.Bot), new(*bot.Service)),
)

// BuildApplication assembles the same graph as buildApplication with Wire.
func BuildApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	wire.Build(
		botSet,
		handlers.NewProvider,
		newReadinessCheck,
		httpserver.New,
		newCrontab,
		NewApplication,
	)
	return nil, nil
}
