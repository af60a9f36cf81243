package service

import (
	"sync"
	"time"
)

// LoginLimiter decides whether a sign-in attempt for a key may proceed.
// Implementations must be safe for concurrent use.
type LoginLimiter interface {
	// Allow records an attempt for the key at the given time. It returns
	// false, along with the remaining wait, when the key has exhausted its
	// attempts inside the window.
	Allow(key string, now time.Time) (bool, time.Duration)
	// Reset clears recorded attempts for the key, typically after a
	// successful sign-in.
	Reset(key string)
}

// WindowLimiter is a sliding-window LoginLimiter keyed by caller-chosen
// strings (email, client IP). Attempts older than the window are discarded
// on each call.
type WindowLimiter struct {
	mu          sync.Mutex
	attempts    map[string][]time.Time
	maxAttempts int
	window      time.Duration
}

// NewWindowLimiter constructs a WindowLimiter allowing maxAttempts per window.
func NewWindowLimiter(maxAttempts int, window time.Duration) *WindowLimiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &WindowLimiter{
		attempts:    make(map[string][]time.Time),
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow implements LoginLimiter.
func (l *WindowLimiter) Allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.attempts[key][:0]
	for _, ts := range l.attempts[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.maxAttempts {
		l.attempts[key] = kept
		return false, kept[0].Add(l.window).Sub(now)
	}

	l.attempts[key] = append(kept, now)
	return true, 0
}

// Reset implements LoginLimiter.
func (l *WindowLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}
