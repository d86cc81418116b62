package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds configuration for the rate limiting middleware.
type RateLimitConfig struct {
	// RequestsPerMinute is the per-client budget inside a one-minute
	// sliding window.
	RequestsPerMinute int
	// KeyFunc extracts the rate limit key from the request.
	// If nil, clients are keyed by IP address.
	KeyFunc func(r *http.Request) (string, error)
}

// RateLimit creates a per-client rate limiting middleware backed by
// httprate's sliding window counter. Rejected requests get a JSON 429
// with a Retry-After header, matching the shape the resolver uses when
// the upstream itself rate limits us.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	window := time.Minute
	return httprate.Limit(
		cfg.RequestsPerMinute,
		window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
		}),
	)
}
