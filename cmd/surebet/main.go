package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"surebet/internal/arbitrage"
	"surebet/internal/archive"
	"surebet/internal/collector"
	"surebet/internal/config"
	"surebet/internal/database"
	"surebet/internal/logging"
	"surebet/internal/metrics"
	"surebet/internal/notify"
	"surebet/internal/publisher"
	"surebet/internal/scanner"
)

func main() {
	os.Exit(run())
}

func run() int {
	configDir := pflag.String("config", ".", "directory containing config.yaml")
	interval := pflag.Duration("interval", 0, "repeat the scan at this interval until interrupted; 0 runs once")
	pflag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot configure logging: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Main: invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, cleanup, err := build(ctx, logger, cfg)
	if err != nil {
		logger.Error("Main: setup failed", "error", err)
		return 1
	}
	defer cleanup()

	for {
		if _, err := s.Run(ctx); err != nil {
			if *interval > 0 && ctx.Err() != nil {
				logger.Info("Main: shutting down")
				return 0
			}
			logger.Error("Main: scan aborted", "error", err)
			return 1
		}
		if *interval <= 0 {
			return 0
		}

		select {
		case <-ctx.Done():
			logger.Info("Main: shutting down")
			return 0
		case <-time.After(*interval):
		}
	}
}

// build wires the scanner. The primary repository must be reachable; optional
// sinks that fail to connect are skipped with a warning.
func build(ctx context.Context, logger *slog.Logger, cfg config.Config) (*scanner.Scanner, func(), error) {
	engine, err := arbitrage.NewEngine(logger, arbitrage.EngineConfigFrom(cfg.Arbitrage))
	if err != nil {
		return nil, nil, err
	}

	repo, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Driver == config.DriverREST && (cfg.Database.REST.URL == "" || cfg.Database.REST.Key == "") {
		logger.Warn("Main: SUPABASE_URL or SUPABASE_KEY not set, database writes will fail")
	}

	closers := []func(){repo.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var sinks []scanner.Sink
	if cfg.Redis.Addr != "" {
		client, err := publisher.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("Main: redis sink disabled", "error", err)
		} else {
			closers = append(closers, func() { _ = client.Close() })
			sinks = append(sinks, publisher.NewStreamPublisher(client, cfg.Redis))
		}
	}
	if cfg.Archive.Bucket != "" {
		archiver, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			logger.Warn("Main: archive sink disabled", "error", err)
		} else {
			sinks = append(sinks, archiver)
		}
	}
	if cfg.Notify.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notify))
	}

	s := scanner.New(logger, cfg.Scan, cfg.Sources,
		collector.NewDispatcher(logger, cfg.Collector), engine, repo,
		scanner.WithSinks(sinks...),
		scanner.WithMetrics(metrics.NewRecorder(cfg.Metrics)),
	)
	return s, cleanup, nil
}
