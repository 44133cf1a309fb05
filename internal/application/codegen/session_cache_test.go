package codegen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ai-code-mother/pkg/errors"
)

func newTestCache(t *testing.T, cfg SessionCacheConfig, history HistoryFetcher, builder ServiceBuilder) (*SessionCache, *fakeClock) {
	t.Helper()
	cache, err := NewSessionCache(cfg, NewMemoryLoader(history), builder)
	require.NoError(t, err)
	clock := newFakeClock()
	cache.now = clock.Now
	return cache, clock
}

func TestSessionCache_ReusesSessionWithinWindow(t *testing.T) {
	builder := &fakeBuilder{}
	cache, clock := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, builder)
	ctx := context.Background()

	first, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	second, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first.Memory, second.Memory)
	assert.EqualValues(t, 1, builder.builds.Load())
	assert.NotNil(t, first.Text)
	assert.Nil(t, first.Agent)
}

func TestSessionCache_KeysAreIsolated(t *testing.T) {
	builder := &fakeBuilder{}
	cache, _ := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, builder)
	ctx := context.Background()

	single, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	multi, err := cache.Get(ctx, 1, ModeMultiFile)
	require.NoError(t, err)
	project, err := cache.Get(ctx, 2, ModeProject)
	require.NoError(t, err)

	assert.NotSame(t, single, multi)
	assert.NotSame(t, single.Memory, multi.Memory)
	assert.NotNil(t, project.Agent)
	assert.Equal(t, 3, cache.Len())
}

func TestSessionCache_ConcurrentFirstAccessBuildsOnce(t *testing.T) {
	builder := &fakeBuilder{delay: 50 * time.Millisecond}
	cache, _ := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, builder)

	const callers = 32
	var wg sync.WaitGroup
	results := make([]*Session, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			s, err := cache.Get(context.Background(), 99, ModeMultiFile)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, builder.builds.Load())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestSessionCache_IdleExpiry(t *testing.T) {
	builder := &fakeBuilder{}
	cache, clock := newTestCache(t, SessionCacheConfig{IdleTTL: 10 * time.Minute, MaxAge: time.Hour}, &fakeHistory{}, builder)
	ctx := context.Background()

	first, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)

	clock.Advance(9 * time.Minute)
	again, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	assert.Same(t, first, again)

	clock.Advance(10 * time.Minute)
	fresh, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.EqualValues(t, 2, builder.builds.Load())
}

func TestSessionCache_AbsoluteExpiryDespiteAccess(t *testing.T) {
	builder := &fakeBuilder{}
	cache, clock := newTestCache(t, SessionCacheConfig{IdleTTL: 10 * time.Minute, MaxAge: 30 * time.Minute}, &fakeHistory{}, builder)
	ctx := context.Background()

	first, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		clock.Advance(9 * time.Minute)
		s, err := cache.Get(ctx, 1, ModeSingleFile)
		require.NoError(t, err)
		assert.Same(t, first, s)
	}

	clock.Advance(4 * time.Minute)
	fresh, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestSessionCache_CapacityBound(t *testing.T) {
	cache, _ := newTestCache(t, SessionCacheConfig{MaxSize: 2}, &fakeHistory{}, &fakeBuilder{})
	ctx := context.Background()

	for id := int64(1); id <= 3; id++ {
		_, err := cache.Get(ctx, id, ModeSingleFile)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())
}

func TestSessionCache_InvalidateAll(t *testing.T) {
	builder := &fakeBuilder{}
	cache, _ := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, builder)
	ctx := context.Background()

	first, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	_, err = cache.Get(ctx, 2, ModeProject)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.InvalidateAll(ctx))
	assert.Zero(t, cache.Len())

	fresh, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestSessionCache_SweepRemovesExpired(t *testing.T) {
	cache, clock := newTestCache(t, SessionCacheConfig{IdleTTL: time.Minute, MaxAge: time.Hour}, &fakeHistory{}, &fakeBuilder{})
	ctx := context.Background()

	_, err := cache.Get(ctx, 1, ModeSingleFile)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = cache.Get(ctx, 2, ModeSingleFile)
	require.NoError(t, err)

	assert.Equal(t, 1, cache.Sweep(ctx))
	assert.Equal(t, 1, cache.Len())
}

func TestSessionCache_ReplaysHistoryOnCreation(t *testing.T) {
	history := &fakeHistory{records: historyOf(5, "user", "make a todo app", "assistant", "```html\n<ul></ul>\n```", "user", "add dark mode")}
	cache, _ := newTestCache(t, SessionCacheConfig{MemoryWindow: 20}, history, &fakeBuilder{})

	s, err := cache.Get(context.Background(), 5, ModeSingleFile)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Memory.Len())
	assert.Equal(t, 21, history.lastLimit)
}

func TestSessionCache_BuildErrorIsNotCached(t *testing.T) {
	builder := &fakeBuilder{errs: []error{errors.New("provider not configured")}}
	cache, _ := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, builder)
	ctx := context.Background()

	_, err := cache.Get(ctx, 1, ModeProject)
	require.Error(t, err)
	assert.Zero(t, cache.Len())

	s, err := cache.Get(ctx, 1, ModeProject)
	require.NoError(t, err)
	assert.NotNil(t, s.Agent)
}

func TestSessionCache_RejectsBadIdentity(t *testing.T) {
	cache, _ := newTestCache(t, SessionCacheConfig{}, &fakeHistory{}, &fakeBuilder{})
	ctx := context.Background()

	_, err := cache.Get(ctx, 0, ModeSingleFile)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))

	_, err = cache.Get(ctx, 1, GenerationMode("Desktop"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnsupportedMode))
}
