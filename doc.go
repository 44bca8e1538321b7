// Package textpipe is a concurrent real-time text processing pipeline: many
// clients hold persistent WebSocket connections, submit short text
// transformation requests, and receive results pushed back asynchronously.
//
// # Architecture
//
// The pipeline is built from small, independently testable components:
//
//   - gateway: the protocol boundary. One receive loop per WebSocket
//     connection plus a stateless REST facade over the same processor.
//   - processor: the coordinator. Decides debounced vs. immediate execution,
//     runs the operation chain on a worker pool, updates pipeline metrics,
//     and pushes results back through the registry.
//   - registry: the connection table. Owns message delivery and connection
//     lifecycle; transports plug in via a Sink per connection.
//   - debounce: per-key single-slot scheduling that collapses bursts of
//     near-identical requests into one execution.
//   - stream: bounded per-stream chunk accumulation with oldest-first
//     eviction.
//   - operation: the string-keyed registry of text transforms (keyboard
//     layout correction, cleaning, whitespace normalization, language
//     detection).
//
// Supporting packages under pkg/ (buffer, worker, cache, ratelimit) carry no
// pipeline semantics and can be reused independently. Observability is
// Prometheus metrics via metric plus structured logging via log/slog.
//
// # Data flow
//
//	client frame -> gateway decode -> processor -> debounce? -> worker pool
//	  -> operation chain -> result -> registry delivery -> client frame
//
// Within one connection, results are delivered in completion order, not
// arrival order; debouncing and concurrent immediate-mode requests can
// reorder. Every accepted request produces exactly one result or one error
// message, and the metrics counters move atomically with that outcome.
package textpipe
