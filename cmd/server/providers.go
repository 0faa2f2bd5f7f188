package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/domain/bot"
	"github.com/janhq/dialogue-bot/internal/domain/dialogue"
	"github.com/janhq/dialogue-bot/internal/domain/user"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
	"github.com/janhq/dialogue-bot/internal/infrastructure/crontab"
	"github.com/janhq/dialogue-bot/internal/infrastructure/events"
	"github.com/janhq/dialogue-bot/internal/infrastructure/messenger"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/contentrepo"
	"github.com/janhq/dialogue-bot/internal/infrastructure/repository/userrepo"
	"github.com/janhq/dialogue-bot/internal/infrastructure/ttlcache"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver"
)

func newRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	return cache.NewRedisCache(cfg.RedisURL)
}

func newUserRepository(cfg *config.Config, c *cache.RedisCache) *userrepo.Repository {
	return userrepo.NewRepository(c, cfg.UserLockTTL)
}

func newContentRepository(cfg *config.Config, c *cache.RedisCache) (*contentrepo.Repository, error) {
	return contentrepo.NewRepository(c, cfg.ContentCacheTTL, cfg.Terms())
}

func newMessenger(cfg *config.Config) *messenger.Client {
	return messenger.NewClient(cfg.GraphRootURL, cfg.PageAccessToken)
}

func newEventsClient(cfg *config.Config) *events.Client {
	return events.NewClient(cfg.EventsAPIURL)
}

func newEngine(cfg *config.Config, log zerolog.Logger) *dialogue.Engine {
	return dialogue.NewEngine(cfg.DialogueSettings(), log.With().Str("component", "dialogue").Logger())
}

func newProfileCache(cfg *config.Config) (*ttlcache.Cache[*user.Profile], error) {
	return ttlcache.New[*user.Profile](cfg.ProfileCacheSz, cfg.ProfileCacheTTL)
}

func newBotService(
	cfg *config.Config,
	users bot.UserRepository,
	content bot.ContentRepository,
	msgr bot.Messenger,
	evts bot.EventLogger,
	engine *dialogue.Engine,
	profiles *ttlcache.Cache[*user.Profile],
	log zerolog.Logger,
) *bot.Service {
	return bot.NewService(users, content, msgr, evts, engine, profiles, bot.Options{
		TypingTime:       cfg.TypingTime,
		SendRateLimit:    cfg.SendRateLimit,
		MaxUpdateActions: cfg.MaxUpdateActions,
		ArchiveAfter:     cfg.ArchiveAfter,
	}, log)
}

func newCrontab(cfg *config.Config, svc *bot.Service, log zerolog.Logger) *crontab.Crontab {
	job := func(run func(context.Context) (bot.Report, error)) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := run(ctx)
			return err
		}
	}
	return crontab.NewCrontab(log,
		crontab.Job{Name: bot.JobUpdates, Spec: cfg.UpdatePushCron, Run: job(svc.PushUpdates)},
		crontab.Job{Name: bot.JobStudy, Spec: cfg.StudyPushCron, Run: job(svc.PushStudyMessages)},
		crontab.Job{Name: bot.JobArchive, Spec: cfg.ArchiveCron, Run: job(svc.ArchiveInactive)},
	)
}

func newReadinessCheck(c *cache.RedisCache) httpserver.ReadinessCheck {
	return func(ctx context.Context) error {
		if err := c.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	}
}
