// Package retry implements bounded exponential backoff with jitter for
// transient failures. The policy is stateless: callers own the attempt
// counter and the retry loop.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Defaults applied by configuration when no explicit values are set.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
)

// Policy computes backoff delays and decides whether another attempt is
// allowed.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// NewPolicy returns a policy with the given bounds.
func NewPolicy(maxRetries int, initial, max time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, InitialDelay: initial, MaxDelay: max}
}

// Backoff returns the delay before retrying the given zero-based attempt:
// min(initial * 2^attempt, max) plus uniform jitter in [0, 0.1*delay), so
// the result lies in [delay, 1.1*delay).
func (p Policy) Backoff(attempt int) time.Duration {
	raw := float64(p.InitialDelay) * math.Pow(2, float64(attempt))

	delay := p.MaxDelay
	if raw < float64(p.MaxDelay) {
		delay = time.Duration(raw)
	}

	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// ShouldRetry reports whether the given zero-based attempt may be retried.
// A MaxRetries of zero disables retrying entirely.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxRetries
}
