package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_DisabledLimitSkipsRedis(t *testing.T) {
	l := NewRateLimiter(unreachableClient())

	ok, err := l.Allow(context.Background(), GenerationRateLimitKey(1), 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiter_RedisFailureIsReported(t *testing.T) {
	l := NewRateLimiter(unreachableClient())

	ok, err := l.Allow(context.Background(), IPRateLimitKey("10.0.0.1"), 5, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ratelimit:ip:10.0.0.1")
	assert.False(t, ok)
}

func TestGenerationLock_RedisFailureIsReported(t *testing.T) {
	l := NewGenerationLock(unreachableClient(), 0)
	assert.Equal(t, DefaultGenerationLockTTL, l.ttl)

	release, ok, err := l.Acquire(context.Background(), 42)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}
