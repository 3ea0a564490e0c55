package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts ...MemoryOption) *MemoryCache {
	t.Helper()
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t)

	require.NoError(t, mc.Set(ctx, "k", "hello", time.Minute))

	var got string
	require.NoError(t, mc.Get(ctx, "k", &got))
	assert.Equal(t, "hello", got)
}

func TestMemoryCacheTypedDest(t *testing.T) {
	type book struct {
		Scores map[string]float64 `json:"scores"`
	}
	ctx := context.Background()
	mc := newTestCache(t)

	in := &book{Scores: map[string]float64{"momentum": 0.7}}
	require.NoError(t, mc.Set(ctx, "book", in, time.Minute))

	var out book
	require.NoError(t, mc.Get(ctx, "book", &out))
	assert.Equal(t, in.Scores, out.Scores)

	// The cached value must not alias the caller's copy.
	out.Scores["momentum"] = 0.1
	var again book
	require.NoError(t, mc.Get(ctx, "book", &again))
	assert.Equal(t, 0.7, again.Scores["momentum"])
}

func TestMemoryCacheMiss(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t)

	var got string
	err := mc.Get(ctx, "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t)

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got string
	assert.ErrorIs(t, mc.Get(ctx, "k", &got), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t)

	require.NoError(t, mc.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "b", "2", time.Minute))

	ok, err := mc.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "a", "b"))

	ok, err = mc.Exists(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsOldestWhenFull(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t, WithMemoryMaxSize(2))

	require.NoError(t, mc.Set(ctx, "first", "1", time.Minute))
	require.NoError(t, mc.Set(ctx, "second", "2", time.Minute))

	// Touch "first" so "second" becomes the eviction candidate.
	var got string
	require.NoError(t, mc.Get(ctx, "first", &got))

	require.NoError(t, mc.Set(ctx, "third", "3", time.Minute))

	assert.NoError(t, mc.Get(ctx, "first", &got))
	assert.ErrorIs(t, mc.Get(ctx, "second", &got), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "third", &got))
}

func TestMemoryCacheTryLock(t *testing.T) {
	ctx := context.Background()
	mc := newTestCache(t)

	ok, err := mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))

	ok, err = mc.TryLock(ctx, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashKeyIsStable(t *testing.T) {
	a := HashKey("X:TEST|0|3600|10000|10")
	b := HashKey("X:TEST|0|3600|10000|10")
	c := HashKey("X:TEST|0|3600|10000|11")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}
