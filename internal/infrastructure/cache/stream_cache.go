package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/infrastructure/metrics"
)

// Key namespaces for the two value classes.
const (
	metadataKeyPrefix  = "metadata:"
	streamURLKeyPrefix = "stream_url:"
)

// StreamCacheConfig holds configuration for the stream cache.
type StreamCacheConfig struct {
	// Enabled short-circuits every operation to a miss when false.
	Enabled bool
	// MetadataTTL is the freshness window for track metadata.
	MetadataTTL time.Duration
	// StreamURLTTL is the freshness window for signed stream URLs.
	StreamURLTTL time.Duration
}

// DefaultStreamCacheConfig returns the default configuration.
func DefaultStreamCacheConfig() StreamCacheConfig {
	return StreamCacheConfig{
		Enabled:      true,
		MetadataTTL:  24 * time.Hour,
		StreamURLTTL: 2 * time.Hour,
	}
}

// RedisStreamCache implements repository.StreamCache on top of Store.
// The two namespaces have independent TTLs, so metadata routinely outlives
// several stream URL refreshes. Freshness is double-checked against the
// per-key timestamp rather than trusting store expiry alone.
type RedisStreamCache struct {
	store  *Store
	config StreamCacheConfig
	now    func() time.Time
}

// Compile-time verification that RedisStreamCache implements repository.StreamCache.
var _ repository.StreamCache = (*RedisStreamCache)(nil)

// NewRedisStreamCache creates a new stream cache backed by the given store.
func NewRedisStreamCache(store *Store, cfg StreamCacheConfig) *RedisStreamCache {
	return &RedisStreamCache{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// GetMetadata retrieves cached track metadata. Returns nil, nil on miss.
func (c *RedisStreamCache) GetMetadata(ctx context.Context, videoID string) (*model.TrackMetadata, error) {
	data, err := c.freshValue(ctx, metadataKeyPrefix+videoID, c.config.MetadataTTL, metrics.CacheNamespaceMetadata)
	if err != nil || data == nil {
		return nil, err
	}

	var meta model.TrackMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("deserialize metadata: %w", err)
	}
	return &meta, nil
}

// SetMetadata stores track metadata with the metadata TTL.
func (c *RedisStreamCache) SetMetadata(ctx context.Context, videoID string, meta *model.TrackMetadata) error {
	if !c.config.Enabled {
		return nil
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("serialize metadata: %w", err)
	}

	if err := c.store.Set(ctx, metadataKeyPrefix+videoID, data, c.config.MetadataTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheNamespaceMetadata, metrics.CacheStatusError).Inc()
		return err
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheNamespaceMetadata, metrics.CacheStatusSuccess).Inc()
	return nil
}

// GetStreamURL retrieves a cached stream URL. Returns "", nil on miss.
func (c *RedisStreamCache) GetStreamURL(ctx context.Context, videoID string) (string, error) {
	data, err := c.freshValue(ctx, streamURLKeyPrefix+videoID, c.config.StreamURLTTL, metrics.CacheNamespaceStreamURL)
	if err != nil || data == nil {
		return "", err
	}
	return string(data), nil
}

// SetStreamURL stores a stream URL with the stream-URL TTL.
func (c *RedisStreamCache) SetStreamURL(ctx context.Context, videoID, url string) error {
	if !c.config.Enabled {
		return nil
	}

	if err := c.store.Set(ctx, streamURLKeyPrefix+videoID, []byte(url), c.config.StreamURLTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheNamespaceStreamURL, metrics.CacheStatusError).Inc()
		return err
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheNamespaceStreamURL, metrics.CacheStatusSuccess).Inc()
	return nil
}

// StreamURLTTL returns the remaining freshness window for a cached stream
// URL, computed from the write timestamp. Returns 0 when nothing usable is
// cached.
func (c *RedisStreamCache) StreamURLTTL(ctx context.Context, videoID string) (time.Duration, error) {
	if !c.config.Enabled {
		return 0, nil
	}

	ts, err := c.store.Timestamp(ctx, streamURLKeyPrefix+videoID)
	if err != nil {
		return 0, err
	}
	if ts.IsZero() {
		return 0, nil
	}

	remaining := c.config.StreamURLTTL - c.now().Sub(ts)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Stats reports cache enablement and size. Backend errors degrade to a
// disconnected report rather than failing the stats call.
func (c *RedisStreamCache) Stats(ctx context.Context) repository.CacheStats {
	stats := repository.CacheStats{
		Enabled: c.config.Enabled,
		Backend: "redis",
	}

	keys, err := c.store.KeyCount(ctx)
	if err != nil {
		return stats
	}
	stats.Keys = keys
	stats.Connected = true
	return stats
}

// freshValue fetches a value and applies the timestamp double-check:
// a value whose timestamp is missing or older than the namespace TTL is a
// miss even if the store still holds it.
func (c *RedisStreamCache) freshValue(ctx context.Context, key string, ttl time.Duration, ns string) ([]byte, error) {
	if !c.config.Enabled {
		return nil, nil
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, ns, metrics.CacheStatusError).Inc()
		return nil, err
	}
	if data == nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, ns, metrics.CacheStatusMiss).Inc()
		return nil, nil
	}

	ts, err := c.store.Timestamp(ctx, key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, ns, metrics.CacheStatusError).Inc()
		return nil, err
	}
	if ts.IsZero() || c.now().Sub(ts) >= ttl {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, ns, metrics.CacheStatusMiss).Inc()
		return nil, nil
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, ns, metrics.CacheStatusHit).Inc()
	return data, nil
}
