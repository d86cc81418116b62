package usecase

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoAudioStream is returned when extraction succeeded structurally but
// produced no usable audio-only stream. This is a content problem, not a
// service problem, so it never counts against the circuit breaker.
var ErrNoAudioStream = errors.New("no usable audio stream found")

// CircuitOpenError is returned without touching the extractor while the
// circuit breaker is open. RetryAfter tells clients how long to back off.
type CircuitOpenError struct {
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("stream service temporarily unavailable, retry in %ds", int(e.RetryAfter.Seconds()))
}

// RateLimitError is returned when the upstream signaled rate limiting.
// The failure has already been recorded with the circuit breaker.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("upstream rate limit exceeded, retry in %ds", int(e.RetryAfter.Seconds()))
}

// ExtractionError wraps a non-rate-limit extraction failure for one video.
type ExtractionError struct {
	VideoID string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract stream for %s: %v", e.VideoID, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
