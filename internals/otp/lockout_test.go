package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlockedLazyExpiry(t *testing.T) {
	policy := DefaultLockoutPolicy()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	blocked, _ := policy.Blocked(nil, now)
	assert.False(t, blocked, "nil timestamp means no lock")

	past := now.Add(-time.Minute)
	blocked, _ = policy.Blocked(&past, now)
	assert.False(t, blocked, "an expired lock is treated as absent")

	future := now.Add(10 * time.Minute)
	blocked, remaining := policy.Blocked(&future, now)
	assert.True(t, blocked)
	assert.Equal(t, 10*time.Minute, remaining)
}

func TestShouldLock(t *testing.T) {
	policy := DefaultLockoutPolicy()

	assert.False(t, policy.ShouldLock(2))
	assert.True(t, policy.ShouldLock(3))
	assert.True(t, policy.ShouldLock(4))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, RetryAfterSeconds(0))
	assert.Equal(t, 0, RetryAfterSeconds(-time.Second))
	assert.Equal(t, 1, RetryAfterSeconds(200*time.Millisecond), "rounds up so clients never retry early")
	assert.Equal(t, 900, RetryAfterSeconds(15*time.Minute))
}
