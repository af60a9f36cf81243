package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowLimiterAllowsUpToMax(t *testing.T) {
	limiter := NewWindowLimiter(3, time.Minute)
	now := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.Allow("user@mess.local", now)
		assert.True(t, allowed, "attempt %d should pass", i+1)
	}

	allowed, retryAfter := limiter.Allow("user@mess.local", now)
	assert.False(t, allowed)
	assert.Equal(t, time.Minute, retryAfter)
}

func TestWindowLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)
	now := time.Now()

	allowed, _ := limiter.Allow("a@mess.local", now)
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("b@mess.local", now)
	assert.True(t, allowed)

	allowed, _ = limiter.Allow("a@mess.local", now)
	assert.False(t, allowed)
}

func TestWindowLimiterExpiresOldAttempts(t *testing.T) {
	limiter := NewWindowLimiter(2, time.Minute)
	start := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	limiter.Allow("user@mess.local", start)
	limiter.Allow("user@mess.local", start.Add(10*time.Second))

	allowed, _ := limiter.Allow("user@mess.local", start.Add(30*time.Second))
	assert.False(t, allowed)

	// first attempt falls out of the window
	allowed, _ = limiter.Allow("user@mess.local", start.Add(61*time.Second))
	assert.True(t, allowed)
}

func TestWindowLimiterReset(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)
	now := time.Now()

	limiter.Allow("user@mess.local", now)
	allowed, _ := limiter.Allow("user@mess.local", now)
	assert.False(t, allowed)

	limiter.Reset("user@mess.local")
	allowed, _ = limiter.Allow("user@mess.local", now)
	assert.True(t, allowed)
}

func TestWindowLimiterRetryAfterShrinks(t *testing.T) {
	limiter := NewWindowLimiter(1, time.Minute)
	start := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)

	limiter.Allow("user@mess.local", start)
	_, first := limiter.Allow("user@mess.local", start.Add(10*time.Second))
	_, second := limiter.Allow("user@mess.local", start.Add(40*time.Second))
	assert.Equal(t, 50*time.Second, first)
	assert.Equal(t, 20*time.Second, second)
}
