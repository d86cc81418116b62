package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/extractor"
	"github.com/hszk-dev/musicgate/internal/infrastructure/metrics"
)

// fallbackArtist is used when the extractor reports neither an artist nor
// an uploader.
const fallbackArtist = "Unknown Artist"

// StreamServiceConfig holds configuration for StreamService.
type StreamServiceConfig struct {
	// MaxBatchConcurrency bounds concurrent resolutions in ResolveBatch.
	MaxBatchConcurrency int
}

// DefaultStreamServiceConfig returns the default configuration.
func DefaultStreamServiceConfig() StreamServiceConfig {
	return StreamServiceConfig{
		MaxBatchConcurrency: 10,
	}
}

// BatchResult is the per-item outcome of a batch resolution.
type BatchResult struct {
	VideoID   string `json:"videoId"`
	Title     string `json:"title,omitempty"`
	Artist    string `json:"artist,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	URL       string `json:"url,omitempty"`
	Cached    bool   `json:"cached"`
	Err       string `json:"error,omitempty"`
}

// BatchSummary aggregates a batch resolution for the response envelope.
type BatchSummary struct {
	Total  int `json:"total"`
	Cached int `json:"cached"`
	Failed int `json:"failed"`
}

// StreamService defines the interface for stream resolution.
type StreamService interface {
	// Resolve turns a video identifier into a playable audio URL.
	// bypassCache forces a fresh extraction.
	// Fails with *CircuitOpenError, *RateLimitError, or *ExtractionError.
	Resolve(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error)

	// ResolveBatch resolves many identifiers concurrently with per-item
	// failure isolation. It never fails as a whole.
	ResolveBatch(ctx context.Context, videoIDs []string) ([]BatchResult, BatchSummary)

	// IsCached reports whether a fresh stream URL is cached for a video.
	IsCached(ctx context.Context, videoID string) bool

	// CacheTTL returns the remaining freshness window for a cached stream
	// URL, or 0 if none.
	CacheTTL(ctx context.Context, videoID string) time.Duration

	// BreakerStatus exposes the circuit breaker snapshot for the stats
	// endpoint.
	BreakerStatus() breaker.Status
}

type streamService struct {
	cache   repository.StreamCache
	extract extractor.Extractor
	circuit *breaker.Breaker
	sfGroup singleflight.Group

	maxBatchConcurrency int
}

// NewStreamService creates a new StreamService. The breaker is injected so
// callers share one guard per extractor while tests get isolated instances.
func NewStreamService(
	cache repository.StreamCache,
	ex extractor.Extractor,
	circuit *breaker.Breaker,
	cfg StreamServiceConfig,
) StreamService {
	if cfg.MaxBatchConcurrency <= 0 {
		cfg.MaxBatchConcurrency = DefaultStreamServiceConfig().MaxBatchConcurrency
	}
	return &streamService{
		cache:               cache,
		extract:             ex,
		circuit:             circuit,
		maxBatchConcurrency: cfg.MaxBatchConcurrency,
	}
}

// Resolve implements cache-aside resolution behind the circuit breaker.
// Concurrent requests for the same identifier are coalesced with
// singleflight; bypassing requests are not, since each must hit upstream.
func (s *streamService) Resolve(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
	if bypassCache {
		return s.resolve(ctx, videoID, true)
	}

	result, err, shared := s.sfGroup.Do(videoID, func() (any, error) {
		return s.resolve(ctx, videoID, false)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}
	return result.(*model.ResolvedStream), nil
}

func (s *streamService) resolve(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
	// Circuit check comes first: while open, not even the cache is worth
	// consulting because callers need the retry-after hint.
	if s.circuit.IsOpen() {
		s.syncBreakerGauge()
		return nil, &CircuitOpenError{RetryAfter: s.circuit.RetryAfter()}
	}
	s.syncBreakerGauge()

	if !bypassCache {
		if resolved := s.fromCache(ctx, videoID); resolved != nil {
			return resolved, nil
		}
	}

	info, err := s.extract.Extract(ctx, videoID)
	if err != nil {
		return nil, s.classifyExtractionError(videoID, err)
	}

	audioURL := selectAudioURL(info)
	if audioURL == "" {
		// No stream in a structurally valid result is a content problem;
		// the breaker stays untouched.
		metrics.ExtractorRequestsTotal.WithLabelValues(metrics.ExtractorStatusNoStream).Inc()
		return nil, &ExtractionError{VideoID: videoID, Err: ErrNoAudioStream}
	}

	s.circuit.RecordSuccess()
	s.syncBreakerGauge()
	metrics.ExtractorRequestsTotal.WithLabelValues(metrics.ExtractorStatusSuccess).Inc()

	meta := &model.TrackMetadata{
		Title:     info.Title,
		Artist:    artistOf(info),
		Duration:  int(info.Duration),
		Thumbnail: info.Thumbnail,
	}

	// Cache writes are best-effort: a down cache degrades to a miss on
	// the next request, never to a failed resolution.
	if err := s.cache.SetMetadata(ctx, videoID, meta); err != nil {
		slog.Warn("failed to cache metadata", "video_id", videoID, "error", err)
	}
	if err := s.cache.SetStreamURL(ctx, videoID, audioURL); err != nil {
		slog.Warn("failed to cache stream URL", "video_id", videoID, "error", err)
	}

	return &model.ResolvedStream{
		URL:       audioURL,
		Title:     meta.Title,
		Artist:    meta.Artist,
		Duration:  meta.Duration,
		Thumbnail: meta.Thumbnail,
		FromCache: false,
	}, nil
}

// fromCache serves a resolution from cache when a fresh stream URL exists.
// Metadata missing alongside a cached URL is an inconsistent-but-tolerated
// state: the URL is returned alone. Cache errors degrade to a miss.
func (s *streamService) fromCache(ctx context.Context, videoID string) *model.ResolvedStream {
	url, err := s.cache.GetStreamURL(ctx, videoID)
	if err != nil {
		slog.Warn("stream URL cache read failed, treating as miss", "video_id", videoID, "error", err)
		return nil
	}
	if url == "" {
		return nil
	}

	resolved := &model.ResolvedStream{
		URL:       url,
		FromCache: true,
	}

	meta, err := s.cache.GetMetadata(ctx, videoID)
	if err != nil {
		slog.Warn("metadata cache read failed, serving URL alone", "video_id", videoID, "error", err)
		return resolved
	}
	if meta != nil {
		resolved.Title = meta.Title
		resolved.Artist = meta.Artist
		resolved.Duration = meta.Duration
		resolved.Thumbnail = meta.Thumbnail
	}
	return resolved
}

// classifyExtractionError sorts extractor failures by their message text,
// the only signal upstream provides. Rate-limit failures feed the breaker;
// everything else does not, so a burst of malformed IDs cannot open the
// circuit.
func (s *streamService) classifyExtractionError(videoID string, err error) error {
	if breaker.IsRateLimitError(err.Error()) {
		s.circuit.RecordFailure(err.Error())
		s.syncBreakerGauge()
		metrics.ExtractorRequestsTotal.WithLabelValues(metrics.ExtractorStatusRateLimited).Inc()
		slog.Error("rate limit hit during extraction", "video_id", videoID, "error", err)
		return &RateLimitError{RetryAfter: s.circuit.RetryAfter()}
	}

	metrics.ExtractorRequestsTotal.WithLabelValues(metrics.ExtractorStatusError).Inc()
	return &ExtractionError{VideoID: videoID, Err: err}
}

// ResolveBatch fans the identifiers out across a bounded worker group.
// Results keep input order; a failed resolution becomes an error row, not
// a batch failure.
func (s *streamService) ResolveBatch(ctx context.Context, videoIDs []string) ([]BatchResult, BatchSummary) {
	results := make([]BatchResult, len(videoIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxBatchConcurrency)

	for i, videoID := range videoIDs {
		i, videoID := i, videoID
		g.Go(func() error {
			resolved, err := s.Resolve(gctx, videoID, false)
			if err != nil {
				results[i] = BatchResult{VideoID: videoID, Err: err.Error()}
				return nil
			}
			results[i] = BatchResult{
				VideoID:   videoID,
				Title:     resolved.Title,
				Artist:    resolved.Artist,
				Duration:  resolved.Duration,
				Thumbnail: resolved.Thumbnail,
				URL:       resolved.URL,
				Cached:    resolved.FromCache,
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	summary := BatchSummary{Total: len(videoIDs)}
	for _, r := range results {
		switch {
		case r.Err != "":
			summary.Failed++
		case r.Cached:
			summary.Cached++
		}
	}
	return results, summary
}

// IsCached reports whether a fresh stream URL exists for the video.
func (s *streamService) IsCached(ctx context.Context, videoID string) bool {
	url, err := s.cache.GetStreamURL(ctx, videoID)
	return err == nil && url != ""
}

// CacheTTL returns the remaining stream URL freshness, 0 when uncached.
func (s *streamService) CacheTTL(ctx context.Context, videoID string) time.Duration {
	ttl, err := s.cache.StreamURLTTL(ctx, videoID)
	if err != nil {
		return 0
	}
	return ttl
}

// BreakerStatus returns the circuit breaker snapshot.
func (s *streamService) BreakerStatus() breaker.Status {
	return s.circuit.Status()
}

func (s *streamService) syncBreakerGauge() {
	switch s.circuit.StateNow() {
	case breaker.StateOpen:
		metrics.CircuitBreakerState.Set(metrics.BreakerGaugeOpen)
	case breaker.StateHalfOpen:
		metrics.CircuitBreakerState.Set(metrics.BreakerGaugeHalfOpen)
	default:
		metrics.CircuitBreakerState.Set(metrics.BreakerGaugeClosed)
	}
}

// selectAudioURL picks the playable URL by precedence: audio-only entry
// from the primary format list, then from the adaptive list, then a direct
// top-level URL. Empty means nothing usable.
func selectAudioURL(info *extractor.MediaInfo) string {
	for _, f := range info.Formats {
		if f.IsAudioOnly() && f.URL != "" {
			return f.URL
		}
	}
	for _, f := range info.AdaptiveFormats {
		if f.IsAudioOnly() && f.URL != "" {
			return f.URL
		}
	}
	return info.URL
}

// artistOf prefers a distinct artist field, falling back to the uploader
// or channel name.
func artistOf(info *extractor.MediaInfo) string {
	if info.Artist != "" {
		return info.Artist
	}
	if info.Uploader != "" {
		return info.Uploader
	}
	return fallbackArtist
}
