package handler

import (
	"context"
	"time"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

type mockStreamService struct {
	resolveFn      func(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error)
	resolveBatchFn func(ctx context.Context, videoIDs []string) ([]usecase.BatchResult, usecase.BatchSummary)
	breakerStatus  breaker.Status
}

func (m *mockStreamService) Resolve(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, videoID, bypassCache)
	}
	return &model.ResolvedStream{URL: "https://x/a.m4a"}, nil
}

func (m *mockStreamService) ResolveBatch(ctx context.Context, videoIDs []string) ([]usecase.BatchResult, usecase.BatchSummary) {
	if m.resolveBatchFn != nil {
		return m.resolveBatchFn(ctx, videoIDs)
	}
	results := make([]usecase.BatchResult, len(videoIDs))
	for i, id := range videoIDs {
		results[i] = usecase.BatchResult{VideoID: id, URL: "https://x/a.m4a"}
	}
	return results, usecase.BatchSummary{Total: len(videoIDs)}
}

func (m *mockStreamService) IsCached(ctx context.Context, videoID string) bool {
	return false
}

func (m *mockStreamService) CacheTTL(ctx context.Context, videoID string) time.Duration {
	return 0
}

func (m *mockStreamService) BreakerStatus() breaker.Status {
	return m.breakerStatus
}

type mockQueue struct {
	publishFn func(ctx context.Context, task repository.PrefetchTask) error
	published []repository.PrefetchTask
}

func (m *mockQueue) PublishPrefetchTask(ctx context.Context, task repository.PrefetchTask) error {
	if m.publishFn != nil {
		return m.publishFn(ctx, task)
	}
	m.published = append(m.published, task)
	return nil
}

func (m *mockQueue) ConsumePrefetchTasks(ctx context.Context, handler func(task repository.PrefetchTask) error) error {
	return nil
}

func (m *mockQueue) Close() error {
	return nil
}

type mockCatalog struct {
	searchFn func(ctx context.Context, query, filter string, limit int) ([]model.TrackItem, error)
}

func (m *mockCatalog) Search(ctx context.Context, query, filter string, limit int) ([]model.TrackItem, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, filter, limit)
	}
	return nil, nil
}

type mockEnrich struct {
	enrichFn func(ctx context.Context, items []model.TrackItem, includeStreams bool) []model.TrackItem
}

func (m *mockEnrich) EnrichItems(ctx context.Context, items []model.TrackItem, includeStreams bool) []model.TrackItem {
	if m.enrichFn != nil {
		return m.enrichFn(ctx, items, includeStreams)
	}
	return items
}

type mockCache struct {
	stats repository.CacheStats
}

func (m *mockCache) GetMetadata(ctx context.Context, videoID string) (*model.TrackMetadata, error) {
	return nil, nil
}

func (m *mockCache) SetMetadata(ctx context.Context, videoID string, meta *model.TrackMetadata) error {
	return nil
}

func (m *mockCache) GetStreamURL(ctx context.Context, videoID string) (string, error) {
	return "", nil
}

func (m *mockCache) SetStreamURL(ctx context.Context, videoID, url string) error {
	return nil
}

func (m *mockCache) StreamURLTTL(ctx context.Context, videoID string) (time.Duration, error) {
	return 0, nil
}

func (m *mockCache) Stats(ctx context.Context) repository.CacheStats {
	return m.stats
}
