// Package breaker implements the circuit breaker guarding the stream
// extractor. The upstream provider rate-limits aggressively, so the breaker
// opens fast on rate-limit-flavored failures and recovers through a
// half-open trial window.
//
// Transitions are evaluated lazily on IsOpen queries instead of with a
// background timer, which keeps the breaker allocation-free and makes it
// testable by injecting a clock.
package breaker

import (
	"strings"
	"sync"
	"time"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed is normal operation; calls pass through.
	StateClosed State = iota
	// StateOpen blocks all calls until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits trial calls; any failure reopens the circuit.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// rateLimitSignatures are the substrings that mark an extractor error as
// upstream rate limiting. The error message is the only classification
// signal the extractor provides.
var rateLimitSignatures = []string{
	"rate-limit",
	"rate limit",
	"rate-limited",
	"too many requests",
	"429",
	"resource_exhausted",
}

// IsRateLimitError reports whether an error message carries a rate-limit
// signature. Matching is case-insensitive.
func IsRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, sig := range rateLimitSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// Config holds circuit breaker tuning parameters.
type Config struct {
	// FailureThreshold is the number of consecutive ordinary failures
	// that opens the circuit. Rate-limit failures bypass the threshold:
	// one confirmed rate-limit response opens it immediately.
	FailureThreshold int
	// OpenTimeout is how long the circuit stays open before a trial
	// request is admitted.
	OpenTimeout time.Duration
	// HalfOpenTimeout is the trial window; if it elapses with no failure
	// the circuit closes (implicit success).
	HalfOpenTimeout time.Duration
}

// DefaultConfig returns production defaults tuned for the upstream's
// observed rate-limit behavior.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 2,
		OpenTimeout:      10 * time.Minute,
		HalfOpenTimeout:  time.Minute,
	}
}

// Status is a point-in-time snapshot for error payloads and the stats
// endpoint.
type Status struct {
	State            string `json:"state"`
	FailureCount     int    `json:"failure_count"`
	RemainingSeconds int    `json:"remaining_time_seconds"`
	Blocked          bool   `json:"is_blocked"`
}

// Breaker is a three-state circuit breaker. It is shared process-wide
// across request-handling goroutines, so all state transitions are
// mutex-guarded. Construct one explicitly and inject it; a process
// restart resets it to closed.
type Breaker struct {
	mu  sync.Mutex
	cfg Config
	now func() time.Time

	state        State
	failureCount int
	openedAt     time.Time
	halfOpenAt   time.Time
}

// New creates a closed Breaker with the given configuration.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	return &Breaker{
		cfg: cfg,
		now: time.Now,
	}
}

// IsOpen reports whether calls are currently blocked, applying lazy
// time-based transitions as a side effect:
//
//   - Open with the open timeout elapsed moves to half-open, and this
//     very call returns false so the caller becomes the trial request.
//   - Half-open with the trial window elapsed and no intervening failure
//     closes the circuit.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateOpen:
		if now.Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = StateHalfOpen
			b.halfOpenAt = now
			return false
		}
		return true
	case StateHalfOpen:
		if now.Sub(b.halfOpenAt) >= b.cfg.HalfOpenTimeout {
			// Survived the trial window: implicit success.
			b.state = StateClosed
			b.failureCount = 0
		}
		return false
	default:
		return false
	}
}

// RecordSuccess marks a successful extractor call. A success while
// half-open closes the circuit; while closed it forgives accumulated
// failures so only consecutive failures count toward the threshold.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.state = StateClosed
		b.failureCount = 0
		b.halfOpenAt = time.Time{}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure marks a failed extractor call. The circuit opens when the
// failure count reaches the threshold, when the message matches a
// rate-limit signature (bypassing the threshold), or on any failure while
// half-open. Opening resets the failure counter for the next cycle.
func (b *Breaker) RecordFailure(errMsg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++

	open := b.state == StateHalfOpen ||
		IsRateLimitError(errMsg) ||
		b.failureCount >= b.cfg.FailureThreshold
	if open {
		b.state = StateOpen
		b.openedAt = b.now()
		b.halfOpenAt = time.Time{}
		b.failureCount = 0
	}
}

// RetryAfter returns the remaining cooldown clients should wait before
// retrying, or 0 when calls are not blocked.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return 0
	}
	remaining := b.cfg.OpenTimeout - b.now().Sub(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status returns a snapshot without mutating state, so polling the stats
// endpoint never advances the breaker.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	var remaining time.Duration
	blocked := false

	switch b.state {
	case StateOpen:
		remaining = b.cfg.OpenTimeout - now.Sub(b.openedAt)
		blocked = remaining > 0
	case StateHalfOpen:
		remaining = b.cfg.HalfOpenTimeout - now.Sub(b.halfOpenAt)
	}
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		State:            b.state.String(),
		FailureCount:     b.failureCount,
		RemainingSeconds: int(remaining.Seconds()),
		Blocked:          blocked,
	}
}

// StateNow returns the current state without applying lazy transitions.
func (b *Breaker) StateNow() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
