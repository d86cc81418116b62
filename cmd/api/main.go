package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/musicgate/internal/api/handler"
	"github.com/hszk-dev/musicgate/internal/api/middleware"
	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/config"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/extractor"
	"github.com/hszk-dev/musicgate/internal/infrastructure/cache"
	"github.com/hszk-dev/musicgate/internal/infrastructure/musicapi"
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

	// Redis is optional at startup: the cache degrades to miss-on-error,
	// so an unreachable Redis slows the gateway down instead of killing it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, serving without cache", slog.String("error", err.Error()))
	} else {
		logger.Info("connected to Redis")
	}

	streamCache := cache.NewRedisStreamCache(cache.NewStore(redisClient), cache.StreamCacheConfig{
		Enabled:      cfg.Cache.Enabled,
		MetadataTTL:  cfg.Cache.MetadataTTL,
		StreamURLTTL: cfg.Cache.StreamURLTTL,
	})

	// The prefetch queue is likewise optional; without it the prefetch
	// endpoint reports unavailable and everything else works.
	var prefetchQueue repository.MessageQueue
	if queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL())); err != nil {
		logger.Warn("rabbitmq unreachable, prefetch endpoint disabled", slog.String("error", err.Error()))
	} else {
		defer queueClient.Close()
		prefetchQueue = queueClient
		logger.Info("connected to RabbitMQ")
	}

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

	streamSvc := usecase.NewStreamService(streamCache, ytdlp, circuit, usecase.StreamServiceConfig{
		MaxBatchConcurrency: cfg.Enrich.MaxConcurrency,
	})
	enrichSvc := usecase.NewEnrichService(streamSvc, usecase.EnrichServiceConfig{
		MaxConcurrency: cfg.Enrich.MaxConcurrency,
	})
	catalog := musicapi.NewClient(musicapi.ClientConfig{
		BaseURL: cfg.MusicAPI.BaseURL,
		Timeout: cfg.MusicAPI.Timeout,
	})

	r := setupRouter(logger, cfg, streamSvc, enrichSvc, catalog, streamCache, prefetchQueue)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(
	logger *slog.Logger,
	cfg *config.Config,
	streamSvc usecase.StreamService,
	enrichSvc usecase.EnrichService,
	catalog repository.MusicCatalog,
	streamCache repository.StreamCache,
	prefetchQueue repository.MessageQueue,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	streamHandler := handler.NewStreamHandler(streamSvc, prefetchQueue)
	searchHandler := handler.NewSearchHandler(catalog, enrichSvc)
	statsHandler := handler.NewStatsHandler(streamSvc, streamCache, cfg.RateLimit.PerMinute)

	r.Route("/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(middleware.RateLimitConfig{
				RequestsPerMinute: cfg.RateLimit.PerMinute,
			}))
		}

		r.Get("/streams/{videoID}", streamHandler.Get)
		r.Post("/streams/batch", streamHandler.Batch)
		r.Post("/streams/prefetch", streamHandler.Prefetch)
		r.Get("/search", searchHandler.Get)
		r.Get("/stats", statsHandler.Get)
	})

	return r
}
