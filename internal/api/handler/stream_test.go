package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

func newStreamRouter(svc usecase.StreamService, queue repository.MessageQueue) *chi.Mux {
	h := NewStreamHandler(svc, queue)
	r := chi.NewRouter()
	r.Get("/v1/streams/{videoID}", h.Get)
	r.Post("/v1/streams/batch", h.Batch)
	r.Post("/v1/streams/prefetch", h.Prefetch)
	return r
}

func TestStreamGet_Success(t *testing.T) {
	svc := &mockStreamService{
		resolveFn: func(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
			if videoID != "dQw4w9WgXcQ" {
				t.Errorf("videoID = %q", videoID)
			}
			if bypassCache {
				t.Error("bypassCache = true, want false")
			}
			return &model.ResolvedStream{URL: "https://x/a.m4a", Title: "T", FromCache: true}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/streams/dQw4w9WgXcQ", nil)
	newStreamRouter(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got model.ResolvedStream
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.URL != "https://x/a.m4a" || !got.FromCache {
		t.Errorf("body = %+v", got)
	}
}

func TestStreamGet_BypassCacheParam(t *testing.T) {
	var sawBypass bool
	svc := &mockStreamService{
		resolveFn: func(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
			sawBypass = bypassCache
			return &model.ResolvedStream{URL: "https://x/a.m4a"}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/streams/dQw4w9WgXcQ?bypass_cache=true", nil)
	newStreamRouter(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !sawBypass {
		t.Error("bypass_cache=true not propagated")
	}
}

func TestStreamGet_InvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/streams/notanid", nil)
	newStreamRouter(&mockStreamService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStreamGet_ErrorMapping(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantStatus      int
		wantRetryHeader bool
	}{
		{
			name:            "circuit open",
			err:             &usecase.CircuitOpenError{RetryAfter: 5 * time.Minute},
			wantStatus:      http.StatusServiceUnavailable,
			wantRetryHeader: true,
		},
		{
			name:            "rate limited",
			err:             &usecase.RateLimitError{RetryAfter: 10 * time.Minute},
			wantStatus:      http.StatusTooManyRequests,
			wantRetryHeader: true,
		},
		{
			name:       "no audio stream",
			err:        &usecase.ExtractionError{VideoID: "dQw4w9WgXcQ", Err: usecase.ErrNoAudioStream},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "extraction failure",
			err:        &usecase.ExtractionError{VideoID: "dQw4w9WgXcQ", Err: errors.New("yt-dlp failed: Video unavailable")},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unexpected error",
			err:        errors.New("who knows"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockStreamService{
				resolveFn: func(ctx context.Context, videoID string, bypassCache bool) (*model.ResolvedStream, error) {
					return nil, tt.err
				},
			}

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/streams/dQw4w9WgXcQ", nil)
			newStreamRouter(svc, nil).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			retryAfter := rec.Header().Get("Retry-After")
			if tt.wantRetryHeader && retryAfter == "" {
				t.Error("Retry-After header missing")
			}
			if !tt.wantRetryHeader && retryAfter != "" {
				t.Errorf("unexpected Retry-After header %q", retryAfter)
			}
		})
	}
}

func TestStreamBatch(t *testing.T) {
	svc := &mockStreamService{
		resolveBatchFn: func(ctx context.Context, videoIDs []string) ([]usecase.BatchResult, usecase.BatchSummary) {
			results := make([]usecase.BatchResult, len(videoIDs))
			for i, id := range videoIDs {
				results[i] = usecase.BatchResult{VideoID: id, URL: "https://x/" + id + ".m4a"}
			}
			return results, usecase.BatchSummary{Total: len(videoIDs)}
		},
	}

	body := `{"video_ids": ["dQw4w9WgXcQ", "bad id", "a1b2-c3_d4E"]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/streams/batch", strings.NewReader(body))
	newStreamRouter(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got.Results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(got.Results))
	}
	if got.Results[0].VideoID != "dQw4w9WgXcQ" || got.Results[0].URL == "" {
		t.Errorf("results[0] = %+v", got.Results[0])
	}
	if got.Results[1].VideoID != "bad id" || got.Results[1].Err == "" {
		t.Errorf("invalid ID should be a failed row in place: %+v", got.Results[1])
	}
	if got.Results[2].VideoID != "a1b2-c3_d4E" {
		t.Errorf("results[2] = %+v", got.Results[2])
	}
	if got.Summary.Total != 3 || got.Summary.Failed != 1 {
		t.Errorf("summary = %+v", got.Summary)
	}
}

func TestStreamBatch_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"empty list", `{"video_ids": []}`},
		{"too many", `{"video_ids": [` + strings.Repeat(`"dQw4w9WgXcQ",`, 50) + `"dQw4w9WgXcQ"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/streams/batch", strings.NewReader(tt.body))
			newStreamRouter(&mockStreamService{}, nil).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestStreamPrefetch(t *testing.T) {
	queue := &mockQueue{}
	body := `{"video_ids": ["dQw4w9WgXcQ", "bad id", "a1b2-c3_d4E"]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/streams/prefetch", strings.NewReader(body))
	newStreamRouter(&mockStreamService{}, queue).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	var got PrefetchResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Queued != 2 {
		t.Errorf("queued = %d, want 2 (invalid ID skipped)", got.Queued)
	}
	if len(queue.published) != 2 {
		t.Fatalf("published %d tasks, want 2", len(queue.published))
	}
	if queue.published[0].VideoID != "dQw4w9WgXcQ" || queue.published[0].RetryCount != 0 {
		t.Errorf("task = %+v", queue.published[0])
	}
}

func TestStreamPrefetch_NoQueue(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/streams/prefetch", strings.NewReader(`{"video_ids": ["dQw4w9WgXcQ"]}`))
	newStreamRouter(&mockStreamService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 without a queue", rec.Code)
	}
}
