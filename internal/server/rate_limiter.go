package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window in-process limiter keyed by caller.
// It backs the public endpoints when no Redis limiter is configured;
// counts are per replica.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string]*rateWindow
}

type rateWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		seen:   make(map[string]*rateWindow),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if r == nil || key == "" {
		return true
	}

	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.seen[key]
	if !ok || now.Sub(w.start) >= r.window {
		r.seen[key] = &rateWindow{start: now, count: 1}
		r.sweepLocked(now)
		return true
	}
	if w.count >= r.limit {
		return false
	}
	w.count++
	return true
}

// sweepLocked drops expired windows so the map does not grow with
// every unique client IP. Called with the mutex held.
func (r *rateLimiter) sweepLocked(now time.Time) {
	if len(r.seen) < 4096 {
		return
	}
	for key, w := range r.seen {
		if now.Sub(w.start) >= r.window {
			delete(r.seen, key)
		}
	}
}
