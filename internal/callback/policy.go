package callback

import (
	"fmt"
	"time"
)

// BackoffPolicy encapsulates the retry/backoff settings for callback
// delivery. It is immutable after construction.
type BackoffPolicy struct {
	Initial     time.Duration // base delay
	Max         time.Duration // cap for growth
	MaxAttempts int           // total attempts including the first try
}

// DefaultBackoffPolicy returns the delivery policy: exponential from 1s,
// capped at 60s, 10 total attempts.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{Initial: time.Second, Max: 60 * time.Second, MaxAttempts: 10}
}

// NewBackoffPolicy builds a policy from raw config fields; zero/invalid
// values fall back to defaults.
func NewBackoffPolicy(initial, max time.Duration, maxAttempts int) BackoffPolicy {
	p := DefaultBackoffPolicy()
	if initial > 0 {
		p.Initial = initial
	}
	if max > 0 {
		p.Max = max
	}
	if maxAttempts > 0 {
		p.MaxAttempts = maxAttempts
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the sleep before the given attempt (1-based). The first
// attempt has no delay; attempt k+1 waits min(initial * 2^(k-1), max).
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.Initial * (1 << (attempt - 2))
	if d > p.Max || d <= 0 { // d <= 0 guards shift overflow
		return p.Max
	}
	return d
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p BackoffPolicy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be >0")
	}
	return nil
}
