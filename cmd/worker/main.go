package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"wheeldeals/internal/cache"
	"wheeldeals/internal/config"
	"wheeldeals/internal/database"
	"wheeldeals/internal/log"
	"wheeldeals/internal/queue"
	"wheeldeals/internal/repository"
	"wheeldeals/internal/service"
	"wheeldeals/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	if client == nil {
		logger.Fatal().Msg("the worker needs redis; set WHEELDEALS_REDIS_ADDR")
	}
	defer client.Close()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	auth := service.NewAuthService(repository.NewPostgresStore(dbPool), cfg, logger)
	processor := tasks.NewProcessor(auth, logger)
	consumer := queue.NewConsumer(client, cfg.Worker, logger, processor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
}
