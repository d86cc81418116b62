package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/config"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/extractor"
	"github.com/hszk-dev/musicgate/internal/infrastructure/cache"
	"github.com/hszk-dev/musicgate/internal/infrastructure/queue"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Unlike the API, the worker is useless without its dependencies,
	// so both Redis and RabbitMQ failures are fatal here.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	streamCache := cache.NewRedisStreamCache(cache.NewStore(redisClient), cache.StreamCacheConfig{
		Enabled:      cfg.Cache.Enabled,
		MetadataTTL:  cfg.Cache.MetadataTTL,
		StreamURLTTL: cfg.Cache.StreamURLTTL,
	})

	ytdlp := extractor.NewYtDlpExtractor(extractor.YtDlpConfig{
		BinPath:       cfg.Extractor.BinPath,
		SocketTimeout: cfg.Extractor.SocketTimeout,
		Retries:       cfg.Extractor.Retries,
		PlayerClient:  cfg.Extractor.PlayerClient,
	})

	circuit := breaker.New(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout,
		HalfOpenTimeout:  cfg.Breaker.HalfOpenTimeout,
	})

	streamSvc := usecase.NewStreamService(streamCache, ytdlp, circuit, usecase.DefaultStreamServiceConfig())
	prefetchSvc := usecase.NewPrefetchService(streamSvc, usecase.PrefetchServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	})

	// Setup signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming prefetch tasks")
		err := queueClient.ConsumePrefetchTasks(ctx, func(task repository.PrefetchTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing prefetch task",
				slog.String("video_id", task.VideoID),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := prefetchSvc.ProcessTask(ctx, task); err != nil {
				logger.Error("prefetch task failed",
					slog.String("video_id", task.VideoID),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming new messages, then wait for in-flight tasks.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}
