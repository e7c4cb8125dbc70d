package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bragidiscovery/server/internal/api"
	"github.com/bragidiscovery/server/internal/middleware"
	"github.com/bragidiscovery/server/internal/watch"
)

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the environments query over HTTP (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, logger, envs, err := setup(opts, os.Stdout)
	if err != nil {
		return err
	}

	logger.Info("starting discovery server",
		"environments_file", cfg.EnvironmentsFile,
		"environment_count", len(envs),
		"bragi_timeout", cfg.BragiTimeout,
		"elasticsearch_timeout", cfg.ElasticTimeout,
		"probe_deadline", cfg.ProbeDeadline,
		"max_concurrency", cfg.MaxConcurrency,
	)

	coordinator, err := newCoordinator(cfg, envs, logger)
	if err != nil {
		return err
	}

	// Initialize observability
	shutdownTracer, err := middleware.InitTracer(cfg.OTLPEndpoint, api.BuildVersion().Version)
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	}

	routerCfg := api.Config{
		Snapshotter:      coordinator,
		EnvironmentCount: len(envs),
		Logger:           logger,
	}

	var watcher *watch.Watcher
	if cfg.PollInterval > 0 {
		watcher = watch.NewWatcher(watch.Config{
			Snapshotter:  coordinator,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})
		routerCfg.Watcher = watcher
	}

	router, err := api.NewRouter(routerCfg)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      middleware.Chain(router, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ProbeDeadline + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if watcher != nil {
		go watcher.Start(watchCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SIGHUP asks the watcher for an immediate run
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

wait:
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received")
			break wait
		case <-hup:
			if watcher != nil {
				watcher.Trigger()
			}
		case err := <-errChan:
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	watchCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if shutdownTracer != nil {
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown error", "error", err)
		}
	}

	logger.Info("server stopped gracefully")
	return nil
}
