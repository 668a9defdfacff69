// Package ratelimit caps requests per client within a one-minute window.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	window     = time.Minute
	staleAfter = 10 * time.Minute
)

type Limiter struct {
	mu                sync.Mutex
	clients           map[string]*clientWindow
	requestsPerMinute int
	cleanupInterval   time.Duration
	now               func() time.Time
}

type clientWindow struct {
	start    time.Time
	last     time.Time
	requests int
}

type Config struct {
	// RequestsPerMinute of zero or less disables limiting.
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func NewLimiter(config Config) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	return &Limiter{
		clients:           make(map[string]*clientWindow),
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
		now:               time.Now,
	}
}

// Enabled reports whether the limiter rejects anything at all.
func (rl *Limiter) Enabled() bool {
	return rl.requestsPerMinute > 0
}

// Allow counts a request from key and reports whether it is within budget,
// plus the time until the client's window resets.
func (rl *Limiter) Allow(key string) (bool, time.Duration) {
	if !rl.Enabled() {
		return true, 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok || now.Sub(c.start) >= window {
		rl.clients[key] = &clientWindow{start: now, last: now, requests: 1}
		return true, 0
	}
	c.requests++
	c.last = now
	if c.requests > rl.requestsPerMinute {
		return false, window - now.Sub(c.start)
	}
	return true, 0
}

// Run drops idle clients periodically until ctx is done.
func (rl *Limiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

func (rl *Limiter) cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-staleAfter)
	removed := 0
	for k, c := range rl.clients {
		if c.last.Before(cutoff) {
			delete(rl.clients, k)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects over-budget requests with 429 and Retry-After. onLimit
// runs for each rejection before the response is written.
func (rl *Limiter) Middleware(clientKey func(*http.Request) string, onLimit func(*http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := rl.Allow(clientKey(r))
			if !ok {
				if onLimit != nil {
					onLimit(r)
				}
				secs := int(retry.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
