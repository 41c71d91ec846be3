package ratelimit

import (
	"sync"
	"time"
)

// Config holds the sliding window parameters.
type Config struct {
	MaxRequests     int           // requests allowed per key within the window
	Window          time.Duration // sliding window size
	CleanupInterval time.Duration // how often idle keys are dropped
}

// DefaultConfig allows 20 authenticated requests per caller per second.
func DefaultConfig() *Config {
	return &Config{
		MaxRequests:     20,
		Window:          time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter implements sliding window rate limiting keyed by an arbitrary
// string, in practice the recovered caller address.
type Limiter struct {
	cfg      *Config
	mu       sync.Mutex
	requests map[string][]time.Time
	stop     chan struct{}
}

// NewLimiter creates a limiter and starts its cleanup loop. Call Stop when
// done with it.
func NewLimiter(cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	l := &Limiter{
		cfg:      cfg,
		requests: make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from key fits in the current window and
// records it when it does.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.requests[key][:0:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.cfg.MaxRequests {
		l.requests[key] = valid
		return false
	}

	l.requests[key] = append(valid, now)
	return true
}

// Reset forgets all requests recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
}

// Stop terminates the cleanup loop.
func (l *Limiter) Stop() {
	close(l.stop)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stop:
			return
		}
	}
}

// cleanup drops keys whose every recorded request has left the window
func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, requests := range l.requests {
		live := false
		for _, ts := range requests {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.requests, key)
		}
	}
}
