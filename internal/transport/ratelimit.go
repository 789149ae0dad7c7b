package transport

import (
	"context"
	"sync"
	"time"
)

// RateLimitState tracks the remaining request budget the hosting service
// reported in its last response. It is the only mutable state shared
// between concurrent fetch workers, so every access goes through the mutex.
type RateLimitState struct {
	mu        sync.Mutex
	remaining int
	limit     int
	reset     time.Time
	known     bool
}

// Update records the rate-limit headers of one response.
func (s *RateLimitState) Update(remaining, limit int, reset time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.reset = reset
	s.known = true
}

// Snapshot returns the last observed state for logging and reporting.
func (s *RateLimitState) Snapshot() (remaining, limit int, reset time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining, s.limit, s.reset
}

// delayUntilReset returns how long a caller has to wait before the service
// will accept a request again, or zero when sending is allowed right now.
func (s *RateLimitState) delayUntilReset(now time.Time, margin, cap time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known || s.remaining > 0 {
		return 0
	}
	if !now.Before(s.reset) {
		return 0
	}
	d := s.reset.Sub(now) + margin
	if d > cap {
		d = cap
	}
	return d
}

// sleep waits for d, honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
