package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hszk-dev/musicgate/internal/breaker"
	"github.com/hszk-dev/musicgate/internal/domain/repository"
)

func TestStatsGet(t *testing.T) {
	svc := &mockStreamService{
		breakerStatus: breaker.Status{
			State:            "open",
			FailureCount:     0,
			RemainingSeconds: 423,
			Blocked:          true,
		},
	}
	cache := &mockCache{
		stats: repository.CacheStats{Enabled: true, Backend: "redis", Keys: 42, Connected: true},
	}

	h := NewStatsHandler(svc, cache, 60)
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	var cb map[string]any
	if err := json.Unmarshal(got["circuit_breaker"], &cb); err != nil {
		t.Fatalf("circuit_breaker: %v", err)
	}
	if cb["state"] != "open" || cb["is_blocked"] != true {
		t.Errorf("circuit_breaker = %v", cb)
	}
	if cb["remaining_time_seconds"] != float64(423) {
		t.Errorf("remaining_time_seconds = %v", cb["remaining_time_seconds"])
	}

	var cs repository.CacheStats
	if err := json.Unmarshal(got["cache"], &cs); err != nil {
		t.Fatalf("cache: %v", err)
	}
	if cs != cache.stats {
		t.Errorf("cache = %+v, want %+v", cs, cache.stats)
	}

	var rl RateLimitStats
	if err := json.Unmarshal(got["rate_limit"], &rl); err != nil {
		t.Fatalf("rate_limit: %v", err)
	}
	if rl.RequestsPerMinute != 60 {
		t.Errorf("requests_per_minute = %d", rl.RequestsPerMinute)
	}
}
