// Package cache memoizes computed dashboard views.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Cache is the memo store used by the service layer.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Key joins key parts with a separator that cannot occur in filter values.
func Key(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

// Janitor periodically drops expired entries from registered caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
	logger   *slog.Logger
}

func NewJanitor(interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{interval: interval, logger: logger}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Run cleans on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 || len(j.caches) == 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleaned := j.CleanOnce()
			if cleaned > 0 {
				j.logger.Debug("Cache entries expired", "count", cleaned)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// CleanOnce cleans every registered cache and returns the number of
// entries removed.
func (j *Janitor) CleanOnce() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Nop never stores anything. It stands in when memoization is disabled.
type Nop[T any] struct{}

func (Nop[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}
func (Nop[T]) Set(string, T) {}
func (Nop[T]) Delete(string) {}
func (Nop[T]) Purge() {}
func (Nop[T]) Size() int { return 0 }
