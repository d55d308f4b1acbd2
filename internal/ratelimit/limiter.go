// Package ratelimit implements a token bucket rate limiter for per-client
// request control.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages per-client rate limits. Each client key gets its own token
// bucket, created on first use.
type Limiter struct {
	mu           sync.Mutex
	limiters     map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration.
type Config struct {
	DefaultRPS   float64
	DefaultBurst int
}

// New creates a new Limiter. A non-positive RPS disables limiting.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.DefaultRPS)
	if cfg.DefaultRPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.DefaultBurst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Allow reports whether the client identified by key may proceed now. It
// never blocks; callers reject the request when it returns false.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow()
}
