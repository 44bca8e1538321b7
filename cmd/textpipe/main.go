// Package main runs the textpipe service: the real-time text processing
// pipeline behind a WebSocket and REST gateway, with Prometheus metrics on
// a separate port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c360/textpipe/config"
	"github.com/c360/textpipe/gateway"
	"github.com/c360/textpipe/health"
	"github.com/c360/textpipe/metric"
	"github.com/c360/textpipe/operation"
	"github.com/c360/textpipe/processor"
	"github.com/c360/textpipe/registry"
	"github.com/c360/textpipe/stream"
)

var (
	// Version information (set by build)
	version = "dev"
	commit  = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("textpipe %s (%s)\n", version, commit)
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)
	logger.Info("starting textpipe", "version", version, "commit", commit)

	metrics := metric.NewRegistry()

	reg := registry.New(
		registry.WithLogger(logger),
		registry.WithMetrics(metrics.Core),
	)
	streams := stream.NewManager(
		stream.WithCapacity(cfg.Pipeline.StreamCapacity),
		stream.WithLogger(logger),
		stream.WithMetrics(metrics.Core),
	)
	operations := operation.NewRegistry()

	proc, err := processor.New(reg, streams, operations,
		processor.WithLogger(logger),
		processor.WithMetrics(metrics.Core),
		processor.WithPoolMetrics(metrics),
		processor.WithDebounceDelay(cfg.Pipeline.DebounceDelay()),
		processor.WithWorkers(cfg.Pipeline.Workers, cfg.Pipeline.QueueSize),
		processor.WithResultCache(cfg.Pipeline.CacheSize, cfg.Pipeline.CacheTTL()),
		processor.WithIdleTimeout(cfg.Pipeline.IdleTimeout()),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := proc.Start(ctx); err != nil {
		return err
	}

	monitor := health.NewMonitor()
	monitor.Register("processor", func() error {
		if proc.Metrics().UptimeSeconds <= 0 {
			return fmt.Errorf("processor not running")
		}
		return nil
	})

	gatewayOpts := []gateway.Option{
		gateway.WithAddress(cfg.Server.Host, cfg.Server.Port),
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics.Core),
		gateway.WithHealth(monitor),
	}
	if cfg.RateLimit.Enabled {
		gatewayOpts = append(gatewayOpts,
			gateway.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	gw, err := gateway.New(proc, reg, gatewayOpts...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- gw.Start()
	}()

	var metricsServer *metric.Server
	if cfg.Server.MetricsPort > 0 {
		metricsServer = metric.NewServer(cfg.Server.MetricsPort, "/metrics", metrics)
		go func() {
			errCh <- metricsServer.Start()
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error, shutting down", "error", err)
		}
	}

	if err := gw.Stop(shutdownTimeout); err != nil {
		logger.Warn("gateway shutdown incomplete", "error", err)
	}
	if err := proc.Stop(shutdownTimeout); err != nil {
		logger.Warn("processor shutdown incomplete", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Warn("metrics server shutdown incomplete", "error", err)
		}
	}
	logger.Info("textpipe stopped")
	return nil
}
