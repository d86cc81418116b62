package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/infrastructure/metrics"
)

// DefaultMaxRetries is the default maximum number of retry attempts
// before a prefetch task is dropped.
const DefaultMaxRetries = 3

// PrefetchServiceConfig holds configuration for PrefetchService.
type PrefetchServiceConfig struct {
	// MaxRetries is the maximum number of retry attempts before a task
	// is dropped.
	MaxRetries int
}

// DefaultPrefetchServiceConfig returns the default configuration.
func DefaultPrefetchServiceConfig() PrefetchServiceConfig {
	return PrefetchServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// PrefetchService warms the stream cache from queued tasks.
type PrefetchService interface {
	// ProcessTask handles one cache-warming task from the queue.
	// Returns nil on success or permanent skip (already cached, breaker
	// blocking, retries exhausted). Returns an error for transient
	// failures that should requeue the task.
	ProcessTask(ctx context.Context, task repository.PrefetchTask) error
}

type prefetchService struct {
	streams    StreamService
	maxRetries int
}

// NewPrefetchService creates a new PrefetchService instance.
func NewPrefetchService(streams StreamService, cfg PrefetchServiceConfig) PrefetchService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &prefetchService{
		streams:    streams,
		maxRetries: cfg.MaxRetries,
	}
}

// ProcessTask resolves the task's video to populate both cache tiers.
// Warming must never fight the circuit breaker: while the circuit is open
// or the upstream is rate limiting, tasks are dropped instead of retried,
// because retrying is exactly the traffic the breaker exists to stop.
func (s *prefetchService) ProcessTask(ctx context.Context, task repository.PrefetchTask) error {
	if task.RetryCount >= s.maxRetries {
		slog.Warn("dropping prefetch task, retries exhausted",
			"video_id", task.VideoID,
			"retry_count", task.RetryCount,
		)
		metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusDropped).Inc()
		return nil
	}

	if s.streams.IsCached(ctx, task.VideoID) {
		metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusSkippedCached).Inc()
		return nil
	}

	_, err := s.streams.Resolve(ctx, task.VideoID, false)
	if err == nil {
		metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusWarmed).Inc()
		return nil
	}

	var circuitOpen *CircuitOpenError
	var rateLimited *RateLimitError
	if errors.As(err, &circuitOpen) || errors.As(err, &rateLimited) {
		slog.Info("skipping prefetch while upstream is blocked",
			"video_id", task.VideoID,
			"error", err,
		)
		metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusSkippedBlocked).Inc()
		return nil
	}

	if errors.Is(err, ErrNoAudioStream) {
		// Content problem; a retry cannot fix it.
		metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusFailed).Inc()
		return nil
	}

	// Other extraction failures may be transient; requeue with an
	// incremented retry count.
	metrics.PrefetchTasksTotal.WithLabelValues(metrics.PrefetchStatusFailed).Inc()
	return err
}
