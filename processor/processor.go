// Package processor is the coordinator at the center of the pipeline. It
// accepts text processing requests on behalf of connections, decides between
// debounced and immediate execution, runs the operation chain on a worker
// pool, updates the pipeline metrics, and pushes results back through the
// connection registry.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360/textpipe/debounce"
	"github.com/c360/textpipe/errors"
	"github.com/c360/textpipe/message"
	"github.com/c360/textpipe/metric"
	"github.com/c360/textpipe/operation"
	"github.com/c360/textpipe/pkg/cache"
	"github.com/c360/textpipe/pkg/worker"
	"github.com/c360/textpipe/registry"
	"github.com/c360/textpipe/stream"
)

const (
	defaultWorkers       = 4
	defaultQueueSize     = 256
	defaultCacheSize     = 512
	defaultCacheTTL      = 5 * time.Minute
	anonymousUser        = "anonymous"
	confidenceOperations = 0.9
	confidenceCleanup    = 0.8
)

// cachedResult is the operation outcome stored in the result cache, keyed by
// text plus operation list. Request identity is reattached on each hit.
type cachedResult struct {
	processedText     string
	operationsApplied []string
	confidenceScore   float64
	suggestions       []string
}

type jobReply struct {
	result message.Result
	err    error
}

// job is one unit of work for the pool: either deliver to a connection
// (reply nil) or answer a synchronous caller (reply non-nil).
type job struct {
	connectionID string
	request      message.Request
	reply        chan jobReply
}

// Processor orchestrates the pipeline. Construct with New, then Start before
// submitting work.
type Processor struct {
	registry   *registry.Registry
	streams    *stream.Manager
	operations *operation.Registry
	debouncer  *debounce.Scheduler
	pool       *worker.Pool[job]
	results    *cache.Cache[cachedResult]

	stats     pipelineStats
	startTime time.Time

	debounceDelay time.Duration
	idleTimeout   time.Duration
	workers       int
	queueSize     int
	cacheSize     int
	cacheTTL      time.Duration

	logger      *slog.Logger
	core        *metric.Core
	poolMetrics *metric.Registry

	lifecycle lifecycle
	cancel    context.CancelFunc
	done      chan struct{}
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics wires Prometheus recording for requests and durations.
func WithMetrics(core *metric.Core) Option {
	return func(p *Processor) {
		p.core = core
	}
}

// WithPoolMetrics exposes worker pool gauges on the metrics registry.
func WithPoolMetrics(registry *metric.Registry) Option {
	return func(p *Processor) {
		p.poolMetrics = registry
	}
}

// WithDebounceDelay overrides the coalescing window for debounced requests.
func WithDebounceDelay(delay time.Duration) Option {
	return func(p *Processor) {
		if delay > 0 {
			p.debounceDelay = delay
		}
	}
}

// WithWorkers sizes the execution pool.
func WithWorkers(workers, queueSize int) Option {
	return func(p *Processor) {
		if workers > 0 {
			p.workers = workers
		}
		if queueSize > 0 {
			p.queueSize = queueSize
		}
	}
}

// WithResultCache sizes the operation result cache. A zero size disables it.
func WithResultCache(size int, ttl time.Duration) Option {
	return func(p *Processor) {
		p.cacheSize = size
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// WithIdleTimeout enables removal of connections with no delivery activity
// for the given duration. Zero disables the sweep.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(p *Processor) {
		p.idleTimeout = timeout
	}
}

// New creates a Processor over the given registry, stream manager, and
// operation set.
func New(reg *registry.Registry, streams *stream.Manager, ops *operation.Registry, opts ...Option) (*Processor, error) {
	if reg == nil || streams == nil || ops == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("registry, stream manager, and operation set are required"),
			"processor", "new", "construct processor")
	}

	p := &Processor{
		registry:      reg,
		streams:       streams,
		operations:    ops,
		debouncer:     debounce.NewScheduler(),
		debounceDelay: debounce.DefaultDelay,
		workers:       defaultWorkers,
		queueSize:     defaultQueueSize,
		cacheSize:     defaultCacheSize,
		cacheTTL:      defaultCacheTTL,
		logger:        slog.Default(),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	var poolOpts []worker.Option[job]
	if p.poolMetrics != nil {
		poolOpts = append(poolOpts, worker.WithMetricsRegistry[job](p.poolMetrics, "processor"))
	}
	p.pool = worker.NewPool(p.workers, p.queueSize, p.execute, poolOpts...)

	if p.cacheSize > 0 {
		results, err := cache.New[cachedResult](p.cacheSize, cache.WithTTL[cachedResult](p.cacheTTL))
		if err != nil {
			return nil, errors.Wrap(err, "processor", "new", "create result cache")
		}
		p.results = results
	}
	return p, nil
}

// Start launches the worker pool and the maintenance sweep.
func (p *Processor) Start(ctx context.Context) error {
	if !p.lifecycle.start() {
		return errors.Wrap(errors.ErrAlreadyStarted,
			"processor", "start", "start processor")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.startTime = time.Now()
	p.stats.reset()

	if err := p.pool.Start(runCtx); err != nil {
		cancel()
		return errors.Wrap(err, "processor", "start", "start worker pool")
	}

	go p.maintenanceLoop(runCtx)
	p.logger.Info("processor started",
		"workers", p.workers, "queue_size", p.queueSize,
		"debounce_delay", p.debounceDelay)
	return nil
}

// Stop cancels pending debounced work, drains the pool, and releases the
// maintenance loop. Safe to call once after Start.
func (p *Processor) Stop(timeout time.Duration) error {
	if !p.lifecycle.stop() {
		return errors.Wrap(errors.ErrNotStarted,
			"processor", "stop", "stop processor")
	}

	p.debouncer.Stop()
	p.cancel()
	<-p.done

	if err := p.pool.Stop(timeout); err != nil {
		return errors.Wrap(err, "processor", "stop", "stop worker pool")
	}
	if p.results != nil {
		p.results.Clear()
	}
	p.logger.Info("processor stopped")
	return nil
}

func (p *Processor) maintenanceLoop(ctx context.Context) {
	defer close(p.done)
	if p.idleTimeout <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(p.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepIdleConnections()
		}
	}
}

func (p *Processor) sweepIdleConnections() {
	cutoff := time.Now().Add(-p.idleTimeout)
	for _, info := range p.registry.List() {
		if info.LastActivity.Before(cutoff) {
			p.logger.Info("removing idle connection",
				"connection_id", info.ID, "last_activity", info.LastActivity)
			if err := p.registry.Remove(info.ID); err != nil {
				p.logger.Debug("idle removal raced", "connection_id", info.ID, "error", err)
			}
		}
	}
}

// AddConnection registers a connection and greets it with a welcome message.
func (p *Processor) AddConnection(id, userID string, sink registry.Sink) (*registry.Connection, error) {
	conn, err := p.registry.Add(id, userID, sink)
	if err != nil {
		return nil, err
	}
	if err := p.registry.Deliver(id, message.NewWelcome(id)); err != nil {
		p.logger.Warn("welcome delivery failed", "connection_id", id, "error", err)
	}
	return conn, nil
}

// RemoveConnection unregisters a connection. Exactly one caller observes a
// nil error per registered connection.
func (p *Processor) RemoveConnection(id string) error {
	return p.registry.Remove(id)
}

// ProcessTextRequest accepts a request on behalf of a connection. The result
// or a structured error is delivered to the connection asynchronously; this
// method never propagates execution failures to its caller. An unknown
// connection is logged and dropped.
func (p *Processor) ProcessTextRequest(connectionID string, request message.Request, useDebounce bool) {
	if _, ok := p.registry.Get(connectionID); !ok {
		p.logger.Warn("request for unknown connection",
			"connection_id", connectionID, "request_id", request.RequestID)
		return
	}

	j := job{connectionID: connectionID, request: request}
	if !useDebounce {
		p.submit(j)
		return
	}

	userID := request.UserID
	if userID == "" {
		userID = anonymousUser
	}
	key := connectionID + ":" + userID

	outcome := p.debouncer.Schedule(key, p.debounceDelay, func() error {
		p.submit(j)
		return nil
	})
	go func() {
		out := <-outcome
		if p.core == nil {
			return
		}
		if out.Canceled {
			p.core.RecordDebounceOutcome("canceled")
		} else {
			p.core.RecordDebounceOutcome("executed")
		}
	}()
}

// ProcessSync runs a request to completion and returns its result, for
// callers that await synchronously instead of holding a connection. The
// request still runs on the worker pool.
func (p *Processor) ProcessSync(ctx context.Context, request message.Request) (message.Result, error) {
	j := job{request: request, reply: make(chan jobReply, 1)}
	if err := p.pool.Submit(j); err != nil {
		p.stats.recordFailure()
		if p.core != nil {
			p.core.RecordRequest("rejected")
		}
		return message.Result{}, errors.WrapTransient(err, "processor", "process", "enqueue request")
	}

	select {
	case <-ctx.Done():
		return message.Result{}, errors.Wrap(ctx.Err(), "processor", "process", "await result")
	case reply := <-j.reply:
		return reply.result, reply.err
	}
}

// submit enqueues a connection-bound job, degrading to an error envelope
// when the pool is saturated.
func (p *Processor) submit(j job) {
	if err := p.pool.Submit(j); err != nil {
		p.stats.recordFailure()
		if p.core != nil {
			p.core.RecordRequest("rejected")
		}
		p.deliverError(j.connectionID, "server busy, request dropped", j.request.RequestID)
	}
}

// execute is the pool processor: it runs the operation chain and routes the
// outcome to the synchronous caller or the originating connection.
func (p *Processor) execute(ctx context.Context, j job) error {
	result, err := p.runOperations(ctx, j.request)

	if j.reply != nil {
		j.reply <- jobReply{result: result, err: err}
		return err
	}

	if err != nil {
		p.deliverError(j.connectionID, "processing failed", j.request.RequestID)
		return err
	}
	if derr := p.registry.Deliver(j.connectionID, message.NewProcessingResult(result)); derr != nil {
		p.logger.Warn("result delivery failed",
			"connection_id", j.connectionID, "request_id", result.RequestID, "error", derr)
	}
	return nil
}

// runOperations invokes the operation chain, consulting the result cache
// first, and folds the outcome into the pipeline metrics.
func (p *Processor) runOperations(ctx context.Context, request message.Request) (message.Result, error) {
	if cached, ok := p.cacheLookup(request); ok {
		p.stats.recordSuccess(0)
		if p.core != nil {
			p.core.RecordRequest("cached")
		}
		return p.buildResult(request, cached, 0), nil
	}

	start := time.Now()
	var outcome cachedResult
	var err error

	if len(request.Operations) == 0 {
		outcome = cachedResult{
			processedText:     strings.TrimSpace(request.Text),
			operationsApplied: []string{"basic_cleanup"},
			confidenceScore:   confidenceCleanup,
		}
	} else {
		var processed string
		var applied []string
		processed, applied, err = p.operations.Apply(ctx, request.Text, request.Operations)
		outcome = cachedResult{
			processedText:     processed,
			operationsApplied: applied,
			confidenceScore:   confidenceOperations,
			suggestions:       annotate(processed, applied),
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		p.stats.recordFailure()
		if p.core != nil {
			p.core.RecordRequest("failed")
			p.core.RecordError("processor", "operation")
		}
		p.logger.Debug("operation chain failed",
			"request_id", request.RequestID, "error", err)
		return message.Result{}, err
	}

	p.stats.recordSuccess(elapsed)
	if p.core != nil {
		p.core.RecordRequest("success")
		for _, name := range outcome.operationsApplied {
			p.core.RecordProcessingDuration(name, elapsed)
		}
	}
	p.cacheStore(request, outcome)
	return p.buildResult(request, outcome, elapsed), nil
}

// annotate collects out-of-band labels produced by annotating operations.
func annotate(text string, applied []string) []string {
	var notes []string
	for _, name := range applied {
		if name == operation.DetectLanguage {
			notes = append(notes, "detected_language: "+operation.LanguageOf(text))
		}
	}
	return notes
}

func (p *Processor) buildResult(request message.Request, outcome cachedResult, elapsed time.Duration) message.Result {
	applied := make([]string, len(outcome.operationsApplied))
	copy(applied, outcome.operationsApplied)
	suggestions := make([]string, len(outcome.suggestions))
	copy(suggestions, outcome.suggestions)
	return message.Result{
		RequestID:         request.RequestID,
		OriginalText:      request.Text,
		ProcessedText:     outcome.processedText,
		OperationsApplied: applied,
		ProcessingTimeMs:  float64(elapsed) / float64(time.Millisecond),
		ConfidenceScore:   outcome.confidenceScore,
		Suggestions:       suggestions,
		Timestamp:         float64(time.Now().UnixNano()) / float64(time.Second),
	}
}

func cacheKey(request message.Request) string {
	return request.Text + "\x00" + strings.Join(request.Operations, ",")
}

func (p *Processor) cacheLookup(request message.Request) (cachedResult, bool) {
	if p.results == nil || len(request.Operations) == 0 {
		return cachedResult{}, false
	}
	return p.results.Get(cacheKey(request))
}

func (p *Processor) cacheStore(request message.Request, outcome cachedResult) {
	if p.results == nil || len(request.Operations) == 0 {
		return
	}
	p.results.Set(cacheKey(request), outcome)
}

func (p *Processor) deliverError(connectionID, errorMessage, requestID string) {
	if connectionID == "" {
		return
	}
	if err := p.registry.Deliver(connectionID, message.NewError(errorMessage, requestID)); err != nil {
		p.logger.Debug("error delivery failed",
			"connection_id", connectionID, "request_id", requestID, "error", err)
	}
}

// AddStreamText appends a chunk to a stream and notifies the connection of
// the new cumulative length. The stream write and the notification are only
// coupled here; the stream manager itself knows nothing about connections.
func (p *Processor) AddStreamText(connectionID, streamID, chunk string, metadata map[string]any) error {
	update, err := p.streams.Append(streamID, chunk, metadata)
	if err != nil {
		return err
	}

	env := message.NewStreamUpdate(message.StreamUpdate{
		StreamID:    update.StreamID,
		ChunkLength: len(update.Chunk.Text),
		TotalLength: update.TotalLength,
	})
	if derr := p.registry.Deliver(connectionID, env); derr != nil {
		p.logger.Debug("stream update delivery failed",
			"connection_id", connectionID, "stream_id", streamID, "error", derr)
	}
	return nil
}

// StreamContent returns the retained content of a stream, or only the
// newest lastN chunks when lastN is positive.
func (p *Processor) StreamContent(streamID string, lastN int) (string, error) {
	return p.streams.Content(streamID, lastN)
}

// Metrics returns an immutable snapshot of the pipeline counters.
func (p *Processor) Metrics() Snapshot {
	snap := p.stats.snapshot()
	snap.ActiveConnections = p.registry.Count()
	snap.TotalConnectionsEver = p.registry.TotalEver()
	if !p.startTime.IsZero() {
		snap.UptimeSeconds = time.Since(p.startTime).Seconds()
	}
	if p.results != nil {
		snap.CacheHitRate = p.results.Stats().Snapshot().HitRate()
	}
	return snap
}

// ConnectionInfo is a read-only projection of the registry for diagnostics.
func (p *Processor) ConnectionInfo() ConnectionInfo {
	infos := p.registry.List()
	return ConnectionInfo{
		ActiveConnections: len(infos),
		Connections:       infos,
	}
}

// ConnectionInfo lists the registry's current connections.
type ConnectionInfo struct {
	ActiveConnections int             `json:"active_connections"`
	Connections       []registry.Info `json:"connections"`
}
