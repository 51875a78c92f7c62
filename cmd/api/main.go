package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wheeldeals/internal/cache"
	"wheeldeals/internal/config"
	"wheeldeals/internal/database"
	"wheeldeals/internal/events"
	"wheeldeals/internal/handlers"
	"wheeldeals/internal/jobs"
	"wheeldeals/internal/log"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/server"
	"wheeldeals/internal/service"
	"wheeldeals/internal/storage"
	"wheeldeals/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	if err := database.Migrate(ctx, dbPool); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply migrations")
	}
	store := repository.NewPostgresStore(dbPool)

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	auth := service.NewAuthService(store, cfg, logger)

	var publisher events.Publisher = events.Nop{}
	if redisClient != nil {
		publisher = events.NewStreamPublisher(redisClient, cfg.Worker.Stream)
	} else {
		logger.Warn().Msg("redis not configured, workflow events are dropped")
	}

	listings := service.NewListingService(store, objectStore, publisher, logger)
	inspections := service.NewInspectionService(store, publisher, cfg.Inspection, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, store, handlers.RedisPinger(redisClient), handlers.Services{
		Auth:        auth,
		Listings:    listings,
		Inspections: inspections,
		Reports:     service.NewReportService(store, objectStore, publisher, cfg.Inspection, logger),
		Admin:       service.NewAdminService(store, listings, inspections, objectStore, logger),
	})
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	// Without a stream the sweep runs in-process.
	var sweepTarget events.Publisher = publisher
	if redisClient == nil {
		sweepTarget = inlineTasks{processor: tasks.NewProcessor(auth, logger)}
	}
	scheduler := jobs.NewScheduler(sweepTarget, cfg.Guests.SweepCron, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := httpServer.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}
	shutdown(logger, scheduler, dbPool, redisClient)
}

// inlineTasks hands events straight to the task processor.
type inlineTasks struct {
	processor *tasks.Processor
}

func (t inlineTasks) Publish(ctx context.Context, e events.Event) error {
	return t.processor.Handle(ctx, redis.XMessage{ID: "inline", Values: e.Values()})
}

func shutdown(logger zerolog.Logger, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduler.Stop(ctx)
	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}
	logger.Info().Msg("server exited cleanly")
}
