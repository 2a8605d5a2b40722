// Package ratelimit provides per-client request throttling for the API.
package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// bucket tracks remaining allowance for one client. Tokens refill
// continuously at the configured per-minute rate, up to a burst of one
// minute's worth.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter throttles requests per client key using token buckets.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	ratePerSecond float64
	burst         float64

	cleanupEvery time.Duration
	done         chan struct{}
	stopOnce     sync.Once
}

// NewLimiter creates a limiter and starts its background cleanup sweep.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}

	l := &Limiter{
		buckets:       make(map[string]*bucket),
		ratePerSecond: float64(cfg.RequestsPerMinute) / 60.0,
		burst:         float64(cfg.RequestsPerMinute),
		cleanupEvery:  cfg.CleanupInterval,
		done:          make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether a request from the given client key may proceed,
// consuming one token when it does.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst}
		l.buckets[key] = b
	} else {
		b.tokens += now.Sub(b.lastSeen).Seconds() * l.ratePerSecond
		if b.tokens > l.burst {
			b.tokens = l.burst
		}
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// ActiveClients returns the number of currently tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.cleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropIdle(10 * time.Minute)
		case <-l.done:
			return
		}
	}
}

// dropIdle forgets clients that have been quiet longer than maxIdle.
func (l *Limiter) dropIdle(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Middleware wraps a handler with rate limiting. extractKey derives the
// client key from the request (typically the client IP); onLimit, when
// non-nil, writes the rejection response.
func (l *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(extractKey(r)) {
				if onLimit != nil {
					onLimit(w, r)
					return
				}
				w.Header().Set("Retry-After", "60")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
