package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/api"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/backend"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/dataset"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/engine"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/snapshot"
	"github.com/AbdelrahmanEffat/Network-Impact-Analyzer/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, `{"level":"fatal","msg":"invalid_config","error":%q}`+"\n", err.Error())
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})).
		With("component", "nia-d")
	slog.SetDefault(logger)
	logger.Info("system_started", "addr", cfg.Addr, "source", cfg.Backend.Kind)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown_complete")
}

func run(cfg Config, logger *slog.Logger) error {
	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    "nia-d",
		ServiceVersion: api.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Stdout:         cfg.TraceStdout,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Error("failed_to_flush_traces", "error", err)
		}
	}()

	src, closeSource, err := backend.OpenSource(ctx, cfg.Backend)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer func() {
		if err := closeSource(); err != nil {
			logger.Error("failed_to_close_source", "error", err)
		} else {
			logger.Info("source_closed")
		}
	}()

	snap, err := snapshot.Load(ctx, src, cfg.Tables)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	logger.Info("snapshot_loaded",
		"we_rows", snap.Reports[dataset.ClassWE].Len(),
		"others_rows", snap.Reports[dataset.ClassOthers].Len(),
	)

	var opts []engine.Option
	if cfg.MaxTraversalSteps > 0 {
		opts = append(opts, engine.WithMaxTraversalSteps(cfg.MaxTraversalSteps))
	}
	// A partial runner is still served; /health reports it not ready.
	runner, err := snap.Analyzers(logger, opts...)
	if err != nil {
		logger.Error("analyzers_unavailable", "error", err)
	}

	var r api.Runner
	if runner != nil {
		r = runner
	}
	srv := api.NewServer(r, cfg.Addr)
	srv.SetLogger(logger)
	srv.SetRateLimit(cfg.RateLimit, cfg.RateBurst)
	if cfg.TLSCertFile != "" {
		srv.SetTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Info("shutdown_initiated", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(sctx); err != nil {
		logger.Error("server_shutdown_failed", "error", err)
	}
	return nil
}
