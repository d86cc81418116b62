package repository

import (
	"context"
	"time"

	"github.com/hszk-dev/musicgate/internal/domain/model"
)

// CacheStats describes the cache backend for the operator stats endpoint.
type CacheStats struct {
	Enabled   bool   `json:"enabled"`
	Backend   string `json:"backend"`
	Keys      int64  `json:"keys_count"`
	Connected bool   `json:"connected"`
}

// StreamCache is the two-tier cache for stream resolution: durable track
// metadata under one namespace and volatile signed stream URLs under
// another, with independent TTL policies.
//
// A returned error always means "treat as miss" - the caller logs and
// proceeds without cache. Implementations must never require the cache
// to be healthy for resolution to succeed.
type StreamCache interface {
	// GetMetadata retrieves cached track metadata.
	// Returns nil, nil on cache miss.
	GetMetadata(ctx context.Context, videoID string) (*model.TrackMetadata, error)

	// SetMetadata stores track metadata with the long metadata TTL.
	SetMetadata(ctx context.Context, videoID string, meta *model.TrackMetadata) error

	// GetStreamURL retrieves a cached stream URL.
	// Returns "", nil on cache miss, including the logically-expired case
	// where the value survived but its timestamp says it is too old.
	GetStreamURL(ctx context.Context, videoID string) (string, error)

	// SetStreamURL stores a stream URL with the short stream-URL TTL.
	SetStreamURL(ctx context.Context, videoID, url string) error

	// StreamURLTTL returns the remaining freshness window for a cached
	// stream URL, or 0 if none is cached.
	StreamURLTTL(ctx context.Context, videoID string) (time.Duration, error)

	// Stats reports cache enablement and size for monitoring.
	Stats(ctx context.Context) CacheStats
}
