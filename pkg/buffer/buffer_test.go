package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWriteRead(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)

	require.NoError(t, ring.Write(1))
	require.NoError(t, ring.Write(2))
	require.NoError(t, ring.Write(3))

	assert.Equal(t, 3, ring.Size())

	v, ok := ring.Read()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, ring.Size())
}

func TestRingDropOldest(t *testing.T) {
	var dropped []int
	ring, err := NewRing(3,
		WithOverflowPolicy[int](DropOldest),
		WithDropCallback(func(item int) { dropped = append(dropped, item) }),
	)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		require.NoError(t, ring.Write(i))
	}

	assert.Equal(t, 3, ring.Size())
	assert.Equal(t, []int{3, 4, 5}, ring.Items())
	assert.Equal(t, []int{1, 2}, dropped)
	assert.Equal(t, int64(2), ring.Stats().Snapshot().Drops)
}

func TestRingDropNewest(t *testing.T) {
	ring, err := NewRing(2, WithOverflowPolicy[int](DropNewest))
	require.NoError(t, err)

	require.NoError(t, ring.Write(1))
	require.NoError(t, ring.Write(2))
	require.NoError(t, ring.Write(3)) // dropped

	assert.Equal(t, []int{1, 2}, ring.Items())
}

func TestRingLast(t *testing.T) {
	ring, err := NewRing[string](4)
	require.NoError(t, err)

	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, ring.Write(s))
	}

	assert.Equal(t, []string{"b", "c"}, ring.Last(2))
	assert.Equal(t, []string{"a", "b", "c"}, ring.Last(0))
	assert.Equal(t, []string{"a", "b", "c"}, ring.Last(10))
}

func TestRingLastAfterWrap(t *testing.T) {
	ring, err := NewRing[int](3)
	require.NoError(t, err)

	for i := 1; i <= 7; i++ {
		require.NoError(t, ring.Write(i))
	}

	assert.Equal(t, []int{5, 6, 7}, ring.Items())
	assert.Equal(t, []int{7}, ring.Last(1))
}

func TestRingEmptyRead(t *testing.T) {
	ring, err := NewRing[int](2)
	require.NoError(t, err)

	_, ok := ring.Read()
	assert.False(t, ok)
	_, ok = ring.Peek()
	assert.False(t, ok)
	assert.Nil(t, ring.Items())
}

func TestRingClear(t *testing.T) {
	ring, err := NewRing[int](4)
	require.NoError(t, err)

	require.NoError(t, ring.Write(1))
	require.NoError(t, ring.Write(2))
	ring.Clear()

	assert.Equal(t, 0, ring.Size())
	_, ok := ring.Read()
	assert.False(t, ok)
}

func TestRingClosedWrite(t *testing.T) {
	ring, err := NewRing[int](2)
	require.NoError(t, err)

	require.NoError(t, ring.Close())
	assert.Error(t, ring.Write(1))
}

func TestRingMinimumCapacity(t *testing.T) {
	ring, err := NewRing[int](0)
	require.NoError(t, err)
	assert.Equal(t, 1, ring.Capacity())
}
