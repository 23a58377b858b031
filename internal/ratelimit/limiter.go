// Package ratelimit provides per-key rate limiting for login attempts.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained attempts per second per key
	Burst           int           // Burst size per key
	CleanupInterval time.Duration // How often to clean up idle limiters
}

// DefaultConfig provides sensible defaults for login throttling.
var DefaultConfig = Config{
	RPS:             1,
	Burst:           5,
	CleanupInterval: time.Hour,
}

// limiterEntry holds a rate limiter and tracks its last usage.
// lastUsed is unix nanos, atomic so the read-locked fast path can touch it.
type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// Limiter manages per-key rate limiting. Keys are typically client IPs.
type Limiter struct {
	limiters map[string]*limiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewLimiter creates a new limiter with the given configuration.
// It starts a background goroutine for cleanup.
func NewLimiter(config Config) *Limiter {
	l := &Limiter{
		limiters: make(map[string]*limiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow checks if an attempt for the given key is within limits.
func (l *Limiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	entry, exists := l.limiters[key]
	if exists {
		entry.lastUsed.Store(time.Now().UnixNano())
		l.mu.RUnlock()
		return entry.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists = l.limiters[key]; exists {
		entry.lastUsed.Store(time.Now().UnixNano())
		return entry.limiter
	}

	entry = &limiterEntry{
		limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst),
	}
	entry.lastUsed.Store(time.Now().UnixNano())
	l.limiters[key] = entry

	return entry.limiter
}

// Cleanup removes limiters that have been idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval).UnixNano()
	for key, entry := range l.limiters {
		if entry.lastUsed.Load() < cutoff {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of active limiters. Useful for tests and monitoring.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}
