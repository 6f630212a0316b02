package auth

import (
	"sync"
	"time"
)

// RateLimiter is a sliding-window per-client request limiter used on
// the signup and signin endpoints.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records one request for a client and reports whether it fits
// inside the window. Entries older than the window are dropped on
// each call, so the map stays bounded by recent traffic.
func (r *RateLimiter) Allow(client string, maxRequests int, window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	windowStart := now.Add(-window)

	kept := r.requests[client][:0]
	for _, ts := range r.requests[client] {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= maxRequests {
		r.requests[client] = kept
		return false
	}

	r.requests[client] = append(kept, now)
	return true
}

// Purge drops clients with no requests inside the window. Called by
// the hourly cleanup job.
func (r *RateLimiter) Purge(window time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	windowStart := r.now().Add(-window)
	removed := 0
	for client, times := range r.requests {
		stale := true
		for _, ts := range times {
			if ts.After(windowStart) {
				stale = false
				break
			}
		}
		if stale {
			delete(r.requests, client)
			removed++
		}
	}
	return removed
}
