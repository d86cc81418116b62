package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/musicgate/internal/domain/model"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

// maxBatchSize bounds one batch request; larger lists must be split by the
// client so a single request cannot monopolize the resolver pool.
const maxBatchSize = 50

type BatchRequest struct {
	VideoIDs []string `json:"video_ids"`
}

type BatchResponse struct {
	Results []usecase.BatchResult `json:"results"`
	Summary usecase.BatchSummary  `json:"summary"`
}

type PrefetchResponse struct {
	Queued int `json:"queued"`
}

// StreamHandler handles stream resolution HTTP requests.
type StreamHandler struct {
	svc   usecase.StreamService
	queue repository.MessageQueue // nil when the worker queue is not configured
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(svc usecase.StreamService, queue repository.MessageQueue) *StreamHandler {
	return &StreamHandler{svc: svc, queue: queue}
}

// Get handles GET /v1/streams/{videoID}
func (h *StreamHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if !model.IsValidVideoID(videoID) {
		Error(w, http.StatusBadRequest, "invalid_video_id", "Video ID must be an 11-character YouTube identifier")
		return
	}

	bypassCache := r.URL.Query().Get("bypass_cache") == "true"

	stream, err := h.svc.Resolve(r.Context(), videoID, bypassCache)
	if err != nil {
		h.handleResolveError(w, err)
		return
	}

	JSON(w, http.StatusOK, stream)
}

// Batch handles POST /v1/streams/batch
func (h *StreamHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	if len(req.VideoIDs) == 0 {
		Error(w, http.StatusBadRequest, "empty_batch", "video_ids is required")
		return
	}
	if len(req.VideoIDs) > maxBatchSize {
		Error(w, http.StatusBadRequest, "batch_too_large", "A batch may contain at most 50 video IDs")
		return
	}

	// Invalid IDs become failed rows instead of rejecting the whole batch;
	// one malformed entry must not cost the caller the other results.
	valid := make([]string, 0, len(req.VideoIDs))
	invalid := make(map[string]bool)
	for _, id := range req.VideoIDs {
		if model.IsValidVideoID(id) {
			valid = append(valid, id)
		} else {
			invalid[id] = true
		}
	}

	resolved, summary := h.svc.ResolveBatch(r.Context(), valid)

	results := make([]usecase.BatchResult, 0, len(req.VideoIDs))
	next := 0
	for _, id := range req.VideoIDs {
		if invalid[id] {
			results = append(results, usecase.BatchResult{VideoID: id, Err: "invalid video ID"})
			continue
		}
		results = append(results, resolved[next])
		next++
	}
	summary.Total = len(results)
	summary.Failed += len(invalid)

	JSON(w, http.StatusOK, BatchResponse{Results: results, Summary: summary})
}

// Prefetch handles POST /v1/streams/prefetch. Accepted IDs are queued for
// background warming; resolution happens in the worker, not here.
func (h *StreamHandler) Prefetch(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		Error(w, http.StatusServiceUnavailable, "queue_unavailable", "Prefetch queue is not configured")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if len(req.VideoIDs) == 0 {
		Error(w, http.StatusBadRequest, "empty_batch", "video_ids is required")
		return
	}
	if len(req.VideoIDs) > maxBatchSize {
		Error(w, http.StatusBadRequest, "batch_too_large", "A batch may contain at most 50 video IDs")
		return
	}

	queued := 0
	for _, id := range req.VideoIDs {
		if !model.IsValidVideoID(id) {
			continue
		}
		if err := h.queue.PublishPrefetchTask(r.Context(), repository.PrefetchTask{VideoID: id}); err != nil {
			Error(w, http.StatusServiceUnavailable, "queue_unavailable", "Failed to enqueue prefetch task")
			return
		}
		queued++
	}

	JSON(w, http.StatusAccepted, PrefetchResponse{Queued: queued})
}

func (h *StreamHandler) handleResolveError(w http.ResponseWriter, err error) {
	var circuitOpen *usecase.CircuitOpenError
	var rateLimited *usecase.RateLimitError
	var extraction *usecase.ExtractionError

	switch {
	case errors.As(err, &circuitOpen):
		RetryableError(w, http.StatusServiceUnavailable, "circuit_open",
			"Stream resolution is temporarily suspended", circuitOpen.RetryAfter)
	case errors.As(err, &rateLimited):
		RetryableError(w, http.StatusTooManyRequests, "upstream_rate_limited",
			"The upstream service is rate limiting requests", rateLimited.RetryAfter)
	case errors.Is(err, usecase.ErrNoAudioStream):
		Error(w, http.StatusNotFound, "no_audio_stream", "No playable audio stream found for this video")
	case errors.As(err, &extraction):
		Error(w, http.StatusBadGateway, "extraction_failed", "Failed to resolve the stream URL")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
