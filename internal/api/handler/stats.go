package handler

import (
	"net/http"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
	"github.com/hszk-dev/musicgate/internal/usecase"
)

type RateLimitStats struct {
	RequestsPerMinute int `json:"requests_per_minute"`
}

type StatsResponse struct {
	CircuitBreaker breaker.Status        `json:"circuit_breaker"`
	Cache          repository.CacheStats `json:"cache"`
	RateLimit      RateLimitStats        `json:"rate_limit"`
}

// StatsHandler exposes operator-facing runtime state.
type StatsHandler struct {
	svc               usecase.StreamService
	cache             repository.StreamCache
	requestsPerMinute int
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc usecase.StreamService, cache repository.StreamCache, requestsPerMinute int) *StatsHandler {
	return &StatsHandler{
		svc:               svc,
		cache:             cache,
		requestsPerMinute: requestsPerMinute,
	}
}

// Get handles GET /v1/stats
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, StatsResponse{
		CircuitBreaker: h.svc.BreakerStatus(),
		Cache:          h.cache.Stats(r.Context()),
		RateLimit:      RateLimitStats{RequestsPerMinute: h.requestsPerMinute},
	})
}
