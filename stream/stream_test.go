package stream

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textpipe/errors"
)

func TestAppendAccumulatesContent(t *testing.T) {
	m := NewManager()

	update, err := m.Append("s1", "Hello ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello ", update.Chunk.Text)
	assert.Equal(t, 6, update.TotalLength)
	assert.Equal(t, 1, update.ChunkCount)
	assert.False(t, update.LastUpdate.IsZero())

	update, err = m.Append("s1", "World!", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, update.TotalLength)
	assert.Equal(t, 2, update.ChunkCount)

	content, err := m.Content("s1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", content)
	assert.Equal(t, 2, m.ChunkCount("s1"))
}

func TestContentLastN(t *testing.T) {
	m := NewManager()

	_, err := m.Append("s1", "Hello ", nil)
	require.NoError(t, err)
	_, err = m.Append("s1", "World!", nil)
	require.NoError(t, err)

	content, err := m.Content("s1", 1)
	require.NoError(t, err)
	assert.Equal(t, "World!", content)

	// Asking for more chunks than retained returns everything.
	content, err = m.Content("s1", 10)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", content)
}

func TestStreamsAreIndependent(t *testing.T) {
	m := NewManager()

	_, err := m.Append("a", "aaa", nil)
	require.NoError(t, err)
	_, err = m.Append("b", "bb", nil)
	require.NoError(t, err)

	contentA, err := m.Content("a", 0)
	require.NoError(t, err)
	contentB, err := m.Content("b", 0)
	require.NoError(t, err)
	assert.Equal(t, "aaa", contentA)
	assert.Equal(t, "bb", contentB)
	assert.ElementsMatch(t, []string{"a", "b"}, m.List())
}

func TestOverflowEvictsOldest(t *testing.T) {
	m := NewManager(WithCapacity(3))

	for i := 0; i < 5; i++ {
		_, err := m.Append("s1", fmt.Sprintf("c%d", i), nil)
		require.NoError(t, err)
	}

	content, err := m.Content("s1", 0)
	require.NoError(t, err)
	assert.Equal(t, "c2c3c4", content)
	assert.Equal(t, 3, m.ChunkCount("s1"))
}

func TestOverflowUpdatesRetainedLength(t *testing.T) {
	m := NewManager(WithCapacity(2))

	_, err := m.Append("s1", "1234", nil)
	require.NoError(t, err)
	_, err = m.Append("s1", "56", nil)
	require.NoError(t, err)

	// Third chunk evicts "1234": retained drops to "56" + "789".
	update, err := m.Append("s1", "789", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, update.TotalLength)
	assert.Equal(t, 2, update.ChunkCount)
}

func TestListenersObserveAppends(t *testing.T) {
	m := NewManager()

	var updates []Update
	m.OnAppend(func(u Update) { updates = append(updates, u) })

	_, err := m.Append("s1", "hi", map[string]any{"lang": "en"})
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.Equal(t, "s1", updates[0].StreamID)
	assert.Equal(t, "hi", updates[0].Chunk.Text)
	assert.Equal(t, "en", updates[0].Chunk.Metadata["lang"])
	assert.False(t, updates[0].Chunk.Timestamp.IsZero())
}

func TestPanickingListenerDoesNotBreakAppend(t *testing.T) {
	m := NewManager()

	var called bool
	m.OnAppend(func(Update) { panic("listener bug") })
	m.OnAppend(func(Update) { called = true })

	_, err := m.Append("s1", "hi", nil)
	require.NoError(t, err)
	assert.True(t, called)

	content, err := m.Content("s1", 0)
	require.NoError(t, err)
	assert.Equal(t, "hi", content)
}

func TestContentUnknownStream(t *testing.T) {
	m := NewManager()
	_, err := m.Content("missing", 0)
	assert.ErrorIs(t, err, errors.ErrStreamClosed)
}

func TestRemove(t *testing.T) {
	m := NewManager()
	_, err := m.Append("s1", "hi", nil)
	require.NoError(t, err)

	m.Remove("s1")
	_, err = m.Content("s1", 0)
	assert.Error(t, err)
	assert.Empty(t, m.List())

	// Removing again is a no-op.
	m.Remove("s1")
}

func TestEmptyStreamIDRejected(t *testing.T) {
	m := NewManager()
	_, err := m.Append("", "hi", nil)
	assert.Error(t, err)
}
