// Package stream accumulates incremental text chunks per stream id, bounded
// by an eviction ring so a chatty stream can never grow without limit.
package stream

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/metric"
	"github.com/c360/textpipe/pkg/buffer"
)

// DefaultCapacity is the number of chunks retained per stream before the
// oldest are evicted.
const DefaultCapacity = 1000

// Chunk is one appended piece of stream text with its arrival instant and
// caller-supplied metadata.
type Chunk struct {
	Text      string
	Timestamp time.Time
	Metadata  map[string]any
}

// Snapshot is a stream's derived metadata after an append. TotalLength
// counts retained bytes only and shrinks when eviction trims old chunks.
type Snapshot struct {
	StreamID    string
	ChunkCount  int
	TotalLength int
	LastUpdate  time.Time
}

// Update describes one append: the chunk just written plus the stream's
// metadata snapshot after the write.
type Update struct {
	Chunk Chunk
	Snapshot
}

// Listener observes appends. Listeners run synchronously on the appending
// goroutine; a panicking listener is logged and skipped, never propagated.
type Listener func(update Update)

type entry struct {
	ring       buffer.Ring[Chunk]
	retained   atomic.Int64 // bytes currently held, adjusted on evictions
	lastUpdate atomic.Int64 // unix nanos of the most recent append
}

// Manager owns every live stream and its bounded chunk buffer.
type Manager struct {
	mu       sync.RWMutex
	streams  map[string]*entry
	capacity int

	listenerMu sync.RWMutex
	listeners  []Listener

	logger *slog.Logger
	core   *metric.Core
}

// Option configures a Manager.
type Option func(*Manager)

// WithCapacity overrides the per-stream chunk capacity.
func WithCapacity(capacity int) Option {
	return func(m *Manager) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics wires the appended-chunk counter.
func WithMetrics(core *metric.Core) Option {
	return func(m *Manager) {
		m.core = core
	}
}

// NewManager creates a Manager with no streams.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		streams:  make(map[string]*entry),
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnAppend registers a listener for every future append on any stream.
func (m *Manager) OnAppend(listener Listener) {
	if listener == nil {
		return
	}
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, listener)
	m.listenerMu.Unlock()
}

// Append writes a chunk to the stream, creating the stream on first use.
// When the stream is full the oldest chunk is evicted to make room. The
// returned Update reflects the retained state after the write.
func (m *Manager) Append(streamID, text string, metadata map[string]any) (Update, error) {
	if streamID == "" {
		return Update{}, errors.WrapInvalid(fmt.Errorf("stream id is required"),
			"stream", "append", "append chunk")
	}

	e, err := m.entryFor(streamID)
	if err != nil {
		return Update{}, err
	}

	chunk := Chunk{Text: text, Timestamp: time.Now(), Metadata: metadata}
	if err := e.ring.Write(chunk); err != nil {
		return Update{}, errors.Wrap(err, "stream", "append", "append chunk")
	}
	e.retained.Add(int64(len(text)))
	e.lastUpdate.Store(chunk.Timestamp.UnixNano())

	update := Update{
		Chunk: chunk,
		Snapshot: Snapshot{
			StreamID:    streamID,
			ChunkCount:  e.ring.Size(),
			TotalLength: int(e.retained.Load()),
			LastUpdate:  chunk.Timestamp,
		},
	}

	if m.core != nil {
		m.core.RecordStreamChunk()
	}
	m.notify(update)
	return update, nil
}

func (m *Manager) entryFor(streamID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.streams[streamID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.streams[streamID]; ok {
		return e, nil
	}

	e = &entry{}
	ring, err := buffer.NewRing[Chunk](m.capacity,
		buffer.WithOverflowPolicy[Chunk](buffer.DropOldest),
		buffer.WithDropCallback[Chunk](func(dropped Chunk) {
			e.retained.Add(-int64(len(dropped.Text)))
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "stream", "append", "create stream buffer")
	}
	e.ring = ring
	m.streams[streamID] = e
	m.logger.Debug("stream created", "stream_id", streamID, "capacity", m.capacity)
	return e, nil
}

func (m *Manager) notify(update Update) {
	m.listenerMu.RLock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.listenerMu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("stream listener panicked",
						"stream_id", update.StreamID, "panic", r)
				}
			}()
			listener(update)
		}()
	}
}

// Content returns the concatenation of the stream's retained chunks in
// arrival order, or only the newest lastN chunks when lastN is positive.
// Evicted chunks are gone; a stream that overflowed returns only its newest
// window.
func (m *Manager) Content(streamID string, lastN int) (string, error) {
	m.mu.RLock()
	e, ok := m.streams[streamID]
	m.mu.RUnlock()
	if !ok {
		return "", errors.Wrap(errors.ErrStreamClosed,
			"stream", "content", "read stream")
	}

	var b strings.Builder
	for _, chunk := range e.ring.Last(lastN) {
		b.WriteString(chunk.Text)
	}
	return b.String(), nil
}

// ChunkCount reports the number of retained chunks, zero for unknown streams.
func (m *Manager) ChunkCount(streamID string) int {
	m.mu.RLock()
	e, ok := m.streams[streamID]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.ring.Size()
}

// Remove discards a stream and its retained chunks.
func (m *Manager) Remove(streamID string) {
	m.mu.Lock()
	e, ok := m.streams[streamID]
	if ok {
		delete(m.streams, streamID)
	}
	m.mu.Unlock()

	if ok {
		if err := e.ring.Close(); err != nil {
			m.logger.Debug("stream buffer close failed", "stream_id", streamID, "error", err)
		}
	}
}

// List returns the ids of every live stream.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.streams))
	for id := range m.streams {
		ids = append(ids, id)
	}
	return ids
}
