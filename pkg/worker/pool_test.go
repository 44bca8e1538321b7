package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360/textpipe/metric"
)

type testWork struct {
	id    int
	delay time.Duration
	fail  bool
}

func TestNewPool(t *testing.T) {
	processor := func(_ context.Context, _ testWork) error { return nil }

	pool := NewPool(5, 100, processor)
	if pool.workers != 5 {
		t.Errorf("Expected 5 workers, got %d", pool.workers)
	}
	if pool.queueSize != 100 {
		t.Errorf("Expected queue size 100, got %d", pool.queueSize)
	}

	// Zero values fall back to defaults
	pool = NewPool(0, 0, processor)
	if pool.workers != 4 {
		t.Errorf("Expected default 4 workers, got %d", pool.workers)
	}
	if pool.queueSize != 256 {
		t.Errorf("Expected default queue size 256, got %d", pool.queueSize)
	}
}

func TestNewPool_NilProcessor(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for nil processor")
		}
	}()
	NewPool[testWork](5, 100, nil)
}

func TestPool_StartStop(t *testing.T) {
	var processedCount int64
	processor := func(_ context.Context, _ testWork) error {
		atomic.AddInt64(&processedCount, 1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx := context.Background()
	if err := pool.Start(ctx); err != nil {
		t.Fatalf("Failed to start pool: %v", err)
	}

	if err := pool.Start(ctx); err == nil {
		t.Error("Expected error when starting pool twice")
	}

	for i := 0; i < 5; i++ {
		if err := pool.Submit(testWork{id: i}); err != nil {
			t.Errorf("Failed to submit work %d: %v", i, err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	if err := pool.Stop(5 * time.Second); err != nil {
		t.Fatalf("Failed to stop pool: %v", err)
	}

	if processed := atomic.LoadInt64(&processedCount); processed != 5 {
		t.Errorf("Expected 5 processed items, got %d", processed)
	}

	if err := pool.Submit(testWork{id: 999}); err == nil {
		t.Error("Expected error when submitting to stopped pool")
	}
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	pool := NewPool(1, 1, func(_ context.Context, _ testWork) error { return nil })

	if err := pool.Submit(testWork{}); !errors.Is(err, ErrPoolNotStarted) {
		t.Errorf("Expected ErrPoolNotStarted, got %v", err)
	}
}

func TestPool_QueueFull(t *testing.T) {
	block := make(chan struct{})
	processor := func(_ context.Context, _ testWork) error {
		<-block
		return nil
	}

	pool := NewPool(1, 1, processor)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	// First item occupies the worker, second fills the queue.
	_ = pool.Submit(testWork{id: 1})
	time.Sleep(20 * time.Millisecond)
	_ = pool.Submit(testWork{id: 2})

	err := pool.Submit(testWork{id: 3})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	stats := pool.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", stats.Dropped)
	}

	close(block)
	_ = pool.Stop(time.Second)
}

func TestPool_FailedWork(t *testing.T) {
	processor := func(_ context.Context, work testWork) error {
		if work.fail {
			return errors.New("processing error")
		}
		return nil
	}

	pool := NewPool(2, 10, processor)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	_ = pool.Submit(testWork{id: 1, fail: true})
	_ = pool.Submit(testWork{id: 2})

	time.Sleep(50 * time.Millisecond)
	_ = pool.Stop(time.Second)

	stats := pool.Stats()
	if stats.Processed != 2 {
		t.Errorf("Expected 2 processed, got %d", stats.Processed)
	}
	if stats.Failed != 1 {
		t.Errorf("Expected 1 failed, got %d", stats.Failed)
	}
}

func TestPool_StopIdempotent(t *testing.T) {
	pool := NewPool(1, 1, func(_ context.Context, _ testWork) error { return nil })
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := pool.Stop(time.Second); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}

func TestPool_MetricsDuplicateRegistration(t *testing.T) {
	processor := func(_ context.Context, _ testWork) error { return nil }
	registry := metric.NewRegistry()

	// Two pools sharing a prefix collide on registration; the second pool
	// must still come up with usable local metrics.
	first := NewPool(1, 1, processor, WithMetricsRegistry[testWork](registry, "dup"))
	second := NewPool(1, 1, processor, WithMetricsRegistry[testWork](registry, "dup"))

	if first.metrics == nil {
		t.Fatal("first pool metrics not initialized")
	}
	if second.metrics == nil {
		t.Fatal("second pool metrics not initialized")
	}
}
