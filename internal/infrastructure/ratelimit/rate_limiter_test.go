package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowConsumesUntilEmpty(t *testing.T) {
	rl := NewRateLimiterWithLimits(map[string]Limit{
		"send_message": {MaxTokens: 2, RefillRate: 1, RefillTime: time.Minute},
	})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1", "send_message")
	assert.True(t, ok)
	ok, _ = rl.Allow("u1", "send_message")
	assert.True(t, ok)

	ok, wait := rl.Allow("u1", "send_message")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	// other users keep their own bucket
	ok, _ = rl.Allow("u2", "send_message")
	assert.True(t, ok)
}

func TestAllowRefills(t *testing.T) {
	rl := NewRateLimiterWithLimits(map[string]Limit{
		"send_message": {MaxTokens: 1, RefillRate: 1, RefillTime: time.Second},
	})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1", "send_message")
	assert.True(t, ok)
	ok, _ = rl.Allow("u1", "send_message")
	assert.False(t, ok)

	now = now.Add(1500 * time.Millisecond)
	ok, _ = rl.Allow("u1", "send_message")
	assert.True(t, ok)
}

func TestUnknownActionUsesFallback(t *testing.T) {
	rl := NewRateLimiterWithLimits(nil)

	ok, _ := rl.Allow("u1", "anything")
	assert.True(t, ok)

	tokens, max := rl.GetStatus("u1", "anything")
	assert.Equal(t, fallbackLimit.MaxTokens-1, tokens)
	assert.Equal(t, fallbackLimit.MaxTokens, max)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("u1", "send_message")
	now = now.Add(2 * time.Hour)
	rl.Cleanup()

	tokens, max := rl.GetStatus("u1", "send_message")
	assert.Zero(t, tokens)
	assert.Zero(t, max)
}
