package registry

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/message"
)

// recordingSink captures delivered envelopes and can be made to fail.
type recordingSink struct {
	mu      sync.Mutex
	sent    []*message.Envelope
	sendErr error
	closed  bool
}

func (s *recordingSink) Send(env *message.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, env)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestAddAndGet(t *testing.T) {
	r := New()
	sink := &recordingSink{}

	conn, err := r.Add("conn-1", "user-1", sink)
	require.NoError(t, err)
	assert.True(t, conn.Active())
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, int64(1), r.TotalEver())

	got, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", got.UserID)
}

func TestAddDuplicateReplaces(t *testing.T) {
	r := New()
	oldSink := &recordingSink{}
	oldConn, err := r.Add("conn-1", "user-old", oldSink)
	require.NoError(t, err)

	newConn, err := r.Add("conn-1", "user-new", &recordingSink{})
	require.NoError(t, err)

	// The prior entry is gone: sink closed, marked inactive, replaced in
	// the map, and the active count stays at one.
	assert.True(t, oldSink.closed)
	assert.False(t, oldConn.Active())
	assert.Equal(t, 1, r.Count())
	assert.Equal(t, int64(2), r.TotalEver())

	got, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Same(t, newConn, got)
	assert.Equal(t, "user-new", got.UserID)

	// Deliveries after the replacement reach only the new sink.
	err = r.Deliver("conn-1", message.NewWelcome("conn-1"))
	require.NoError(t, err)
	assert.Equal(t, 0, oldSink.sentCount())
}

func TestSubscriptions(t *testing.T) {
	r := New()
	conn, err := r.Add("conn-1", "", &recordingSink{})
	require.NoError(t, err)

	assert.Empty(t, conn.Subscriptions())

	conn.Subscribe("metrics", "alerts")
	conn.Subscribe("metrics", "") // duplicate and empty are ignored
	assert.Equal(t, []string{"alerts", "metrics"}, conn.Subscriptions())
	assert.Equal(t, []string{"alerts", "metrics"}, conn.Snapshot().Subscriptions)
}

func TestAddValidation(t *testing.T) {
	r := New()

	_, err := r.Add("", "", &recordingSink{})
	assert.Error(t, err)

	_, err = r.Add("conn-1", "", nil)
	assert.Error(t, err)
}

func TestRemoveClosesSinkOnce(t *testing.T) {
	r := New()
	sink := &recordingSink{}
	_, err := r.Add("conn-1", "", sink)
	require.NoError(t, err)

	require.NoError(t, r.Remove("conn-1"))
	assert.True(t, sink.closed)
	assert.Equal(t, 0, r.Count())

	// Second removal reports not found; total ever is unchanged.
	err = r.Remove("conn-1")
	assert.ErrorIs(t, err, errors.ErrConnectionNotFound)
	assert.Equal(t, int64(1), r.TotalEver())
}

func TestDeliver(t *testing.T) {
	r := New()
	sink := &recordingSink{}
	_, err := r.Add("conn-1", "", sink)
	require.NoError(t, err)

	env := message.NewWelcome("conn-1")
	require.NoError(t, r.Deliver("conn-1", env))
	assert.Equal(t, 1, sink.sentCount())

	conn, _ := r.Get("conn-1")
	assert.Equal(t, int64(1), conn.Snapshot().MessagesSent)
}

func TestDeliverToRemovedConnection(t *testing.T) {
	r := New()
	_, err := r.Add("conn-1", "", &recordingSink{})
	require.NoError(t, err)
	require.NoError(t, r.Remove("conn-1"))

	err = r.Deliver("conn-1", message.NewWelcome("conn-1"))
	assert.ErrorIs(t, err, errors.ErrConnectionNotFound)
}

func TestDeliverySinkFailureMarksInactive(t *testing.T) {
	r := New()
	sink := &recordingSink{sendErr: stderrors.New("socket closed")}
	conn, err := r.Add("conn-1", "", sink)
	require.NoError(t, err)

	err = r.Deliver("conn-1", message.NewWelcome("conn-1"))
	assert.ErrorIs(t, err, errors.ErrDeliveryFailed)
	assert.True(t, errors.IsTransient(err))
	assert.False(t, conn.Active())

	// Subsequent deliveries fail fast without touching the sink.
	err = r.Deliver("conn-1", message.NewWelcome("conn-1"))
	assert.ErrorIs(t, err, errors.ErrConnectionInactive)
}

func TestBroadcast(t *testing.T) {
	r := New()
	good := &recordingSink{}
	bad := &recordingSink{sendErr: stderrors.New("gone")}
	_, err := r.Add("good", "", good)
	require.NoError(t, err)
	_, err = r.Add("bad", "", bad)
	require.NoError(t, err)

	delivered := r.Broadcast(message.NewMetrics(map[string]int{"x": 1}))
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, good.sentCount())
}

func TestListSnapshots(t *testing.T) {
	r := New()
	_, err := r.Add("a", "u1", &recordingSink{})
	require.NoError(t, err)
	_, err = r.Add("b", "", &recordingSink{})
	require.NoError(t, err)

	infos := r.List()
	require.Len(t, infos, 2)
	for _, info := range infos {
		assert.True(t, info.Active)
		assert.False(t, info.ConnectedAt.IsZero())
	}
}
