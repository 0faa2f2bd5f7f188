package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/janhq/dialogue-bot/internal/config"
	"github.com/janhq/dialogue-bot/internal/infrastructure/cache"
	"github.com/janhq/dialogue-bot/internal/infrastructure/crontab"
	"github.com/janhq/dialogue-bot/internal/infrastructure/logger"
	"github.com/janhq/dialogue-bot/internal/infrastructure/observability"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver"
	"github.com/janhq/dialogue-bot/internal/interfaces/httpserver/handlers"
)

type Application struct {
	httpServer *httpserver.HttpServer
	crontab    *crontab.Crontab
	cache      *cache.RedisCache
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, ctab *crontab.Crontab, c *cache.RedisCache, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		crontab:    ctab,
		cache:      c,
		log:        log,
	}
}

// Start runs the HTTP server and the scheduler until ctx is done or one
// of them fails.
func (a *Application) Start(ctx context.Context) error {
	defer func() {
		if err := a.cache.Close(); err != nil {
			a.log.Error().Err(err).Msg("close redis")
		}
	}()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.crontab.Run(ctx)
	})
	eg.Go(func() error {
		return a.httpServer.Run(ctx)
	})
	return eg.Wait()
}

func buildApplication(cfg *config.Config, log zerolog.Logger) (*Application, error) {
	redisCache, err := newRedisCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	contentRepo, err := newContentRepository(cfg, redisCache)
	if err != nil {
		return nil, fmt.Errorf("content repository: %w", err)
	}
	profiles, err := newProfileCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("profile cache: %w", err)
	}

	svc := newBotService(
		cfg,
		newUserRepository(cfg, redisCache),
		contentRepo,
		newMessenger(cfg),
		newEventsClient(cfg),
		newEngine(cfg, log),
		profiles,
		log,
	)

	handlerProvider := handlers.NewProvider(cfg, svc, log)
	httpServer := httpserver.New(cfg, log, handlerProvider, newReadinessCheck(redisCache))
	return NewApplication(httpServer, newCrontab(cfg, svc, log), redisCache, log), nil
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	app, err := buildApplication(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create application")
	}
	log.Info().
		Int("study_messages", len(cfg.StudySchedule())).
		Str("timezone", cfg.Timezone).
		Msg("dialogue bot starting")

	if err := app.Start(ctx); err != nil {
		log.Error().Err(err).Msg("application stopped with error")
		return
	}
	log.Info().Msg("application exited cleanly")
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
