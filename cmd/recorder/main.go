package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/optmon/option-data/internal/aggregate"
	"github.com/optmon/option-data/internal/config"
	"github.com/optmon/option-data/internal/database"
	"github.com/optmon/option-data/internal/delivery"
	"github.com/optmon/option-data/internal/health"
	"github.com/optmon/option-data/internal/metrics"
	"github.com/optmon/option-data/internal/oplog"
	"github.com/optmon/option-data/internal/store"
	"github.com/optmon/option-data/internal/version"
	"github.com/optmon/option-data/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/recorder.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting recorder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"database", cfg.Database.Name,
		"on_unhealthy", string(cfg.Writer.OnUnhealthy),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	pool, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// The aggregator keys summary rows in the same zone the pool pins on
	// every session; validation already checked it loads.
	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil {
		logger.Error("failed to load database timezone", "error", err)
		os.Exit(1)
	}

	// Wire components. The oplog receives diagnostic entries from the
	// health monitor and writer; the writer routes through the monitor's
	// health gate.
	opRecorder := oplog.NewRecorder(cfg.Oplog, pool, logger)
	opRecorder.Start(ctx)

	monitor := health.NewMonitor(cfg.Health, pool, opRecorder, logger)
	monitor.Start(ctx)

	recWriter := writer.New(cfg.Writer, pool, aggregate.New(loc), monitor, opRecorder, logger)
	recWriter.Start(ctx)

	tracker := delivery.New(cfg.Delivery, pool, logger)
	reader := store.NewReader(pool)
	registry := metrics.New(pool, monitor, recWriter, tracker)

	srv := &server{
		cfg:     cfg,
		pool:    pool,
		monitor: monitor,
		writer:  recWriter,
		tracker: tracker,
		reader:  reader,
		logger:  logger,
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.routes(registry.Handler()),
		ReadHeaderTimeout: cfg.Server.ReadHeaderLimit,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "port", cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info("recorder running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port),
	)

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
	}

	logger.Info("shutting down...")

	// Stop intake first, then drain the replay queue, then flush the
	// oplog, then stop probing.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer drainCancel()
	recWriter.Stop(drainCtx)

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer flushCancel()
	opRecorder.Stop(flushCtx)

	monitor.Stop()

	logger.Info("recorder stopped")
}
