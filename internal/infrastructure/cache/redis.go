package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// timestampSuffix marks the parallel entry holding a key's write time.
// The store's own expiry usually suffices, but the explicit timestamp lets
// callers detect "exists but logically expired" independently of Redis TTL
// accounting, and either entry surviving alone is tolerated as a miss.
const timestampSuffix = ":timestamp"

// Store is a Redis-backed key-value store with TTLs and per-key write
// timestamps. It carries two logical namespaces (metadata, stream URLs)
// distinguished by key prefix; the typed layer above holds the prefixes.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Get retrieves a raw value. Returns nil, nil on miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores a value with the given TTL and writes the parallel timestamp
// entry with the same TTL so both expire together.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	now := float64(time.Now().UnixMicro()) / 1e6
	ts := strconv.FormatFloat(now, 'f', 6, 64)
	if err := s.client.Set(ctx, key+timestampSuffix, ts, ttl).Err(); err != nil {
		return fmt.Errorf("redis set timestamp: %w", err)
	}

	return nil
}

// Exists reports whether a key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// TTLRemaining returns the store-side TTL for a key. Redis reports
// negative sentinels for absent keys (-2) and keys without expiry (-1);
// those pass through unchanged.
func (s *Store) TTLRemaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	return ttl, nil
}

// Timestamp returns when a key was written, from its parallel timestamp
// entry. Returns the zero time when no timestamp exists.
func (s *Store) Timestamp(ctx context.Context, key string) (time.Time, error) {
	raw, err := s.client.Get(ctx, key+timestampSuffix).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("redis get timestamp: %w", err)
	}

	epoch, err := strconv.ParseFloat(raw, 64)
	if err != nil || epoch <= 0 {
		// A mangled timestamp is treated like a missing one.
		return time.Time{}, nil
	}
	return time.UnixMicro(int64(epoch * 1e6)), nil
}

// KeyCount returns the number of keys in the backing database.
func (s *Store) KeyCount(ctx context.Context) (int64, error) {
	n, err := s.client.DBSize(ctx).Result()
	if err != nil {
		return 0, fmt.Errorf("redis dbsize: %w", err)
	}
	return n, nil
}

// Ping checks connectivity to the backing store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
