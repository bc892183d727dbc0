package channel

import (
	"sync"
	"time"
)

// Backoff returns the delay before reconnect attempt number attempt (1-based).
// Delays grow linearly: base, 2*base, ... maxAttempts*base. ok is false once
// attempt exceeds maxAttempts.
func Backoff(attempt, maxAttempts int, base time.Duration) (delay time.Duration, ok bool) {
	if attempt < 1 || attempt > maxAttempts {
		return 0, false
	}
	return base * time.Duration(attempt), true
}

// ReconnectPolicy counts failed attempts within one outage.
type ReconnectPolicy struct {
	base        time.Duration
	maxAttempts int

	mu      sync.Mutex
	attempt int
}

// NewReconnectPolicy creates a policy with a zero attempt counter.
func NewReconnectPolicy(base time.Duration, maxAttempts int) *ReconnectPolicy {
	return &ReconnectPolicy{
		base:        base,
		maxAttempts: maxAttempts,
	}
}

// Next records a failed attempt and returns the delay before the next one.
// ok is false when the attempts are exhausted.
func (p *ReconnectPolicy) Next() (delay time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.attempt++
	return Backoff(p.attempt, p.maxAttempts, p.base)
}

// Reset zeroes the counter after a successful connect.
func (p *ReconnectPolicy) Reset() {
	p.mu.Lock()
	p.attempt = 0
	p.mu.Unlock()
}

// Attempt returns the current counter.
func (p *ReconnectPolicy) Attempt() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}
