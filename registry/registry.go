// Package registry tracks live client connections and owns message delivery
// to them. Transports register a Sink per connection; everything above the
// transport addresses connections by id.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/message"
	"github.com/c360/textpipe/metric"
)

// Sink is the transport half of a connection: where outbound envelopes go.
type Sink interface {
	Send(env *message.Envelope) error
	Close() error
}

// Connection is one registered client. Fields set at registration are
// immutable; activity state is updated on every delivery.
type Connection struct {
	ID          string
	UserID      string
	ConnectedAt time.Time

	sink         Sink
	active       atomic.Bool
	lastActivity atomic.Int64 // unix nanos
	messagesSent atomic.Int64

	subMu         sync.Mutex
	subscriptions map[string]struct{}
}

// Subscribe adds topic names to the connection's subscription set.
// Duplicates and empty names are ignored.
func (c *Connection) Subscribe(topics ...string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		c.subscriptions[topic] = struct{}{}
	}
}

// Subscriptions returns the connection's subscribed topics, sorted.
func (c *Connection) Subscriptions() []string {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}

// Active reports whether the connection can still receive deliveries.
func (c *Connection) Active() bool {
	return c.active.Load()
}

// LastActivity returns the instant of the most recent successful delivery,
// or the registration instant if none happened yet.
func (c *Connection) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Info is an immutable snapshot of a connection's state.
type Info struct {
	ID            string    `json:"connection_id"`
	UserID        string    `json:"user_id,omitempty"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastActivity  time.Time `json:"last_activity"`
	Active        bool      `json:"active"`
	MessagesSent  int64     `json:"messages_sent"`
	Subscriptions []string  `json:"subscriptions,omitempty"`
}

// Snapshot captures the connection's current state.
func (c *Connection) Snapshot() Info {
	return Info{
		ID:            c.ID,
		UserID:        c.UserID,
		ConnectedAt:   c.ConnectedAt,
		LastActivity:  c.LastActivity(),
		Active:        c.active.Load(),
		MessagesSent:  c.messagesSent.Load(),
		Subscriptions: c.Subscriptions(),
	}
}

// Registry is a concurrency-safe set of connections keyed by id.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	totalEver   atomic.Int64

	logger *slog.Logger
	core   *metric.Core
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics wires the registry's connection gauges and counters.
func WithMetrics(core *metric.Core) Option {
	return func(r *Registry) {
		r.core = core
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		connections: make(map[string]*Connection),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a connection under id. Adding a duplicate id replaces the
// prior entry: the old connection is marked inactive, its sink is closed,
// and it leaves the active count before the new one enters.
func (r *Registry) Add(id, userID string, sink Sink) (*Connection, error) {
	if id == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("connection id is required"),
			"registry", "add", "register connection")
	}
	if sink == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("sink is required"),
			"registry", "add", "register connection")
	}

	now := time.Now()
	conn := &Connection{
		ID:            id,
		UserID:        userID,
		ConnectedAt:   now,
		sink:          sink,
		subscriptions: make(map[string]struct{}),
	}
	conn.active.Store(true)
	conn.lastActivity.Store(now.UnixNano())

	r.mu.Lock()
	prior := r.connections[id]
	r.connections[id] = conn
	r.mu.Unlock()

	if prior != nil {
		prior.active.Store(false)
		if err := prior.sink.Close(); err != nil {
			r.logger.Debug("sink close failed", "connection_id", id, "error", err)
		}
		if r.core != nil {
			r.core.RecordConnectionRemoved()
		}
		r.logger.Debug("connection replaced", "connection_id", id)
	}

	r.totalEver.Add(1)
	if r.core != nil {
		r.core.RecordConnectionAdded()
	}
	r.logger.Debug("connection registered", "connection_id", id, "user_id", userID)
	return conn, nil
}

// Remove unregisters a connection and closes its sink. Removing an unknown
// id returns ErrConnectionNotFound, so a caller observing nil knows it was
// the one that removed it.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	conn, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	r.mu.Unlock()

	if !ok {
		return errors.Wrap(errors.ErrConnectionNotFound,
			"registry", "remove", "unregister connection")
	}

	conn.active.Store(false)
	if err := conn.sink.Close(); err != nil {
		r.logger.Debug("sink close failed", "connection_id", id, "error", err)
	}
	if r.core != nil {
		r.core.RecordConnectionRemoved()
	}
	r.logger.Debug("connection removed", "connection_id", id)
	return nil
}

// Get returns the connection registered under id.
func (r *Registry) Get(id string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	return conn, ok
}

// Count reports the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// TotalEver reports how many connections were registered over the registry's
// lifetime, including ones since removed.
func (r *Registry) TotalEver() int64 {
	return r.totalEver.Load()
}

// List returns snapshots of every registered connection.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.connections))
	for _, conn := range r.connections {
		infos = append(infos, conn.Snapshot())
	}
	return infos
}

// Deliver sends an envelope to one connection. A missing connection yields
// ErrConnectionNotFound; a sink failure marks the connection inactive and
// yields ErrDeliveryFailed. The caller decides whether to remove it.
func (r *Registry) Deliver(id string, env *message.Envelope) error {
	r.mu.RLock()
	conn, ok := r.connections[id]
	r.mu.RUnlock()

	if !ok {
		return errors.Wrap(errors.ErrConnectionNotFound,
			"registry", "deliver", "deliver message")
	}
	if !conn.active.Load() {
		return errors.Wrap(errors.ErrConnectionInactive,
			"registry", "deliver", "deliver message")
	}

	if err := conn.sink.Send(env); err != nil {
		conn.active.Store(false)
		if r.core != nil {
			r.core.RecordDeliveryFailure()
		}
		r.logger.Warn("delivery failed", "connection_id", id, "type", env.Type, "error", err)
		return errors.WrapTransient(errors.ErrDeliveryFailed,
			"registry", "deliver", "deliver message")
	}

	conn.lastActivity.Store(time.Now().UnixNano())
	conn.messagesSent.Add(1)
	return nil
}

// Broadcast delivers an envelope to every active connection, returning the
// number of successful deliveries.
func (r *Registry) Broadcast(env *message.Envelope) int {
	r.mu.RLock()
	ids := make([]string, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, id := range ids {
		if err := r.Deliver(id, env); err == nil {
			delivered++
		}
	}
	return delivered
}
