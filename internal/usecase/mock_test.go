package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/extractor"
)

// mockStreamCache provides a configurable in-memory StreamCache.
// Default behavior is a working map-backed cache; individual operations
// can be overridden through the function fields.
type mockStreamCache struct {
	mu       sync.RWMutex
	metadata map[string]*model.TrackMetadata
	urls     map[string]string

	getMetadataFn  func(ctx context.Context, videoID string) (*model.TrackMetadata, error)
	setMetadataFn  func(ctx context.Context, videoID string, meta *model.TrackMetadata) error
	getStreamURLFn func(ctx context.Context, videoID string) (string, error)
	setStreamURLFn func(ctx context.Context, videoID, url string) error
	streamURLTTLFn func(ctx context.Context, videoID string) (time.Duration, error)
}

func newMockStreamCache() *mockStreamCache {
	return &mockStreamCache{
		metadata: make(map[string]*model.TrackMetadata),
		urls:     make(map[string]string),
	}
}

func (m *mockStreamCache) GetMetadata(ctx context.Context, videoID string) (*model.TrackMetadata, error) {
	if m.getMetadataFn != nil {
		return m.getMetadataFn(ctx, videoID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[videoID], nil
}

func (m *mockStreamCache) SetMetadata(ctx context.Context, videoID string, meta *model.TrackMetadata) error {
	if m.setMetadataFn != nil {
		return m.setMetadataFn(ctx, videoID, meta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metadata[videoID] = meta
	return nil
}

func (m *mockStreamCache) GetStreamURL(ctx context.Context, videoID string) (string, error) {
	if m.getStreamURLFn != nil {
		return m.getStreamURLFn(ctx, videoID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.urls[videoID], nil
}

func (m *mockStreamCache) SetStreamURL(ctx context.Context, videoID, url string) error {
	if m.setStreamURLFn != nil {
		return m.setStreamURLFn(ctx, videoID, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls[videoID] = url
	return nil
}

func (m *mockStreamCache) StreamURLTTL(ctx context.Context, videoID string) (time.Duration, error) {
	if m.streamURLTTLFn != nil {
		return m.streamURLTTLFn(ctx, videoID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.urls[videoID]; ok {
		return time.Hour, nil
	}
	return 0, nil
}

func (m *mockStreamCache) Stats(ctx context.Context) repository.CacheStats {
	return repository.CacheStats{Enabled: true, Backend: "mock", Connected: true}
}

// mockExtractor provides a configurable Extractor counting invocations.
type mockExtractor struct {
	extractFn func(ctx context.Context, videoID string) (*extractor.MediaInfo, error)
	calls     atomic.Int32
}

func (m *mockExtractor) Extract(ctx context.Context, videoID string) (*extractor.MediaInfo, error) {
	m.calls.Add(1)
	if m.extractFn != nil {
		return m.extractFn(ctx, videoID)
	}
	return nil, nil
}

// mockStreamService provides a configurable StreamService for pipeline and
// prefetch tests.
type mockStreamService struct {
	resolveFn  func(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error)
	isCachedFn func(ctx context.Context, videoID string) bool
	resolves   atomic.Int32
}

func (m *mockStreamService) Resolve(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
	m.resolves.Add(1)
	if m.resolveFn != nil {
		return m.resolveFn(ctx, videoID, bypassCache)
	}
	return nil, nil
}

func (m *mockStreamService) ResolveBatch(ctx context.Context, videoIDs []string) ([]BatchResult, BatchSummary) {
	return nil, BatchSummary{}
}

func (m *mockStreamService) IsCached(ctx context.Context, videoID string) bool {
	if m.isCachedFn != nil {
		return m.isCachedFn(ctx, videoID)
	}
	return false
}

func (m *mockStreamService) CacheTTL(ctx context.Context, videoID string) time.Duration {
	return 0
}

func (m *mockStreamService) BreakerStatus() breaker.Status {
	return breaker.Status{}
}
