package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetSet(t *testing.T) {
	c, err := New[string](10)
	require.NoError(t, err)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	snap := c.Stats().Snapshot()
	assert.Equal(t, int64(1), snap.Hits)
	assert.Equal(t, int64(1), snap.Misses)
}

func TestCacheInvalidSize(t *testing.T) {
	_, err := New[string](0)
	assert.Error(t, err)
}

func TestCacheLRUEviction(t *testing.T) {
	var evicted []string
	c, err := New(2, WithEvictCallback(func(key string, _ int) {
		evicted = append(evicted, key)
	}))
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, 2, c.Size())
}

func TestCacheUpdateExisting(t *testing.T) {
	c, err := New[int](2)
	require.NoError(t, err)

	c.Set("k", 1)
	c.Set("k", 2)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Size())
}

func TestCacheTTLExpiry(t *testing.T) {
	c, err := New(10, WithTTL[string](20*time.Millisecond))
	require.NoError(t, err)

	c.Set("k", "v")

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Snapshot().Expirations)
	assert.Equal(t, 0, c.Size())
}

func TestCacheDelete(t *testing.T) {
	c, err := New[int](4)
	require.NoError(t, err)

	c.Set("k", 1)
	assert.True(t, c.Delete("k"))
	assert.False(t, c.Delete("k"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCacheClear(t *testing.T) {
	c, err := New[int](4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheHitRate(t *testing.T) {
	c, err := New[int](4)
	require.NoError(t, err)

	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("missing")

	rate := c.Stats().Snapshot().HitRate()
	assert.InDelta(t, 0.666, rate, 0.01)
}
