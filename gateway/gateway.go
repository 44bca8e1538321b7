// Package gateway is the protocol boundary of the pipeline: a WebSocket
// endpoint with one receive loop per connection, plus a stateless REST
// facade over the same processor.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/health"
	"github.com/c360/textpipe/metric"
	"github.com/c360/textpipe/pkg/ratelimit"
	"github.com/c360/textpipe/processor"
	"github.com/c360/textpipe/registry"
)

const (
	defaultPort    = 8000
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Gateway terminates client connections and translates between the wire
// protocol and the processor.
type Gateway struct {
	processor *processor.Processor
	registry  *registry.Registry
	limiter   *ratelimit.KeyedLimiter
	monitor   *health.Monitor

	host string
	port int

	upgrader websocket.Upgrader
	server   *http.Server

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	logger *slog.Logger
	core   *metric.Core
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithAddress sets the listen host and port.
func WithAddress(host string, port int) Option {
	return func(g *Gateway) {
		g.host = host
		if port > 0 {
			g.port = port
		}
	}
}

// WithLogger sets the gateway's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRateLimit throttles inbound WebSocket messages per connection.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		g.limiter = ratelimit.New(rps, burst, 10*time.Minute)
	}
}

// WithMetrics wires gateway error counters.
func WithMetrics(core *metric.Core) Option {
	return func(g *Gateway) {
		g.core = core
	}
}

// WithHealth exposes the monitor's report on the liveness endpoint.
func WithHealth(monitor *health.Monitor) Option {
	return func(g *Gateway) {
		g.monitor = monitor
	}
}

// New creates a Gateway over a started processor and its registry.
func New(proc *processor.Processor, reg *registry.Registry, opts ...Option) (*Gateway, error) {
	if proc == nil || reg == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("processor and registry are required"),
			"gateway", "new", "construct gateway")
	}

	g := &Gateway{
		processor: proc,
		registry:  reg,
		port:      defaultPort,
		shutdown:  make(chan struct{}),
		logger:    slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(g)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", g.handleWebSocket)
	mux.HandleFunc("POST /api/process", g.handleProcess)
	mux.HandleFunc("POST /api/process/batch", g.handleBatch)
	mux.HandleFunc("GET /api/metrics", g.handleMetrics)
	mux.HandleFunc("GET /api/connections", g.handleConnections)
	mux.HandleFunc("GET /api/health", g.handleHealth)

	g.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", g.host, g.port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return g, nil
}

// Address returns the listen address.
func (g *Gateway) Address() string {
	return g.server.Addr
}

// Start serves HTTP and WebSocket traffic. It blocks until Stop is called
// or the listener fails.
func (g *Gateway) Start() error {
	g.logger.Info("gateway listening", "address", g.server.Addr)
	if err := g.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.WrapFatal(err, "gateway", "start", "serve http")
	}
	return nil
}

// Stop closes the listener and waits for the per-connection loops to exit.
func (g *Gateway) Stop(timeout time.Duration) error {
	g.shutdownOnce.Do(func() {
		close(g.shutdown)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "gateway", "stop", "shutdown http server")
	}

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"gateway", "stop", "drain connections")
	}
}

func (g *Gateway) trackError(errorType string) {
	if g.core != nil {
		g.core.RecordError("gateway", errorType)
	}
}
