package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/infrastructure/metrics"
)

// EnrichServiceConfig holds configuration for EnrichService.
type EnrichServiceConfig struct {
	// MaxConcurrency bounds the resolution fan-out per batch.
	MaxConcurrency int
}

// DefaultEnrichServiceConfig returns the default configuration.
func DefaultEnrichServiceConfig() EnrichServiceConfig {
	return EnrichServiceConfig{
		MaxConcurrency: 10,
	}
}

// EnrichService decorates content listings (search hits, playlist tracks)
// with stream URLs and best-quality thumbnails. Enrichment is best-effort:
// callers degrade to metadata-without-audio rather than failing when a
// single track's extraction fails.
type EnrichService interface {
	// EnrichItems returns the items with thumbnails normalized and, when
	// includeStreams is set, stream URLs attached where resolution
	// succeeded. Output has the same order and length as the input and
	// the call never fails as a whole.
	EnrichItems(ctx context.Context, items []model.TrackItem, includeStreams bool) []model.TrackItem
}

type enrichService struct {
	streams        StreamService
	maxConcurrency int
}

// NewEnrichService creates a new EnrichService on top of the resolver.
func NewEnrichService(streams StreamService, cfg EnrichServiceConfig) EnrichService {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultEnrichServiceConfig().MaxConcurrency
	}
	return &enrichService{
		streams:        streams,
		maxConcurrency: cfg.MaxConcurrency,
	}
}

func (s *enrichService) EnrichItems(ctx context.Context, items []model.TrackItem, includeStreams bool) []model.TrackItem {
	if len(items) == 0 {
		return []model.TrackItem{}
	}

	// Thumbnail normalization is cheap and synchronous; it happens for
	// every item whether or not streams are requested.
	enriched := make([]model.TrackItem, len(items))
	for i, item := range items {
		item.Thumbnail = model.BestThumbnail(item)
		enriched[i] = item
	}

	if !includeStreams {
		return enriched
	}

	// One resolution per item with a usable identifier, bounded so large
	// playlists cannot overwhelm the extractor. Each worker writes only
	// its own slot; the merge below runs single-threaded.
	resolved := make([]*model.ResolvedStream, len(enriched))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i := range enriched {
		if enriched[i].VideoID == "" {
			metrics.EnrichmentItemsTotal.WithLabelValues(metrics.EnrichmentStatusSkipped).Inc()
			continue
		}
		i := i
		g.Go(func() error {
			stream, err := s.streams.Resolve(gctx, enriched[i].VideoID, false)
			if err != nil {
				// Per-item isolation: a failed resolution leaves the
				// item without a stream URL, nothing more.
				metrics.EnrichmentItemsTotal.WithLabelValues(metrics.EnrichmentStatusFailed).Inc()
				return nil
			}
			resolved[i] = stream
			metrics.EnrichmentItemsTotal.WithLabelValues(metrics.EnrichmentStatusEnriched).Inc()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	for i := range enriched {
		if resolved[i] == nil {
			continue
		}
		enriched[i].StreamURL = resolved[i].URL
		// A resolution-supplied thumbnail is more specific than the
		// listing's own artwork.
		if resolved[i].Thumbnail != "" {
			enriched[i].Thumbnail = resolved[i].Thumbnail
		}
	}

	return enriched
}
