// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/passgate/passgate/internal/auth"
	authpg "github.com/passgate/passgate/internal/auth/postgres"
	"github.com/passgate/passgate/internal/httpd"
	"github.com/passgate/passgate/internal/logging"
	"github.com/passgate/passgate/internal/observability"
	"github.com/passgate/passgate/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long: `Start the auth HTTP server which exposes signup, login, verify
and logout endpoints, plus an optional metrics/health server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().String("http-addr", defaultHTTPAddr, "auth API listen address")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (default: DATABASE_URL env)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().Duration("sweep-interval", defaultSweepInterval, "how often to delete expired sessions")

	return cmd
}

// runServeWithDeps starts the auth service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *serveConfig, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return store.NewPool(ctx, url)
		}
	}
	if deps.HTTPServerFactory == nil {
		deps.HTTPServerFactory = func(addr string, svc httpd.AuthService, logger *slog.Logger, metrics *observability.Metrics) (HTTPServer, error) {
			return httpd.NewServer(addr, svc, logger, metrics)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("passgate", version, cfg.logFormat)

	slog.Info("starting auth service",
		"http_addr", cfg.httpAddr,
		"log_format", cfg.logFormat,
	)

	pool, err := deps.PoolFactory(ctx, cfg.databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	users := authpg.NewUserRepository(pool)
	sessions := authpg.NewSessionRepository(pool)

	svc, err := auth.NewServiceWithLogger(users, sessions, auth.NewBcryptHasher(), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create auth service: %w", err)
	}

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.metricsAddr != "" {
		// Ready once the database pool has answered a ping
		obsServer = deps.ObservabilityServerFactory(cfg.metricsAddr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	stopObsServer := func() {
		if obsServer == nil {
			return
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
			slog.Warn("failed to stop observability server during cleanup", "error", stopErr)
		}
	}

	httpServer, err := deps.HTTPServerFactory(cfg.httpAddr, svc, slog.Default(), metrics)
	if err != nil {
		stopObsServer()
		return fmt.Errorf("failed to create http server: %w", err)
	}
	httpErrChan, err := httpServer.Start()
	if err != nil {
		stopObsServer()
		return fmt.Errorf("failed to start http server: %w", err)
	}
	go monitorServerErrors(ctx, cancel, httpErrChan, "http")

	// Background expired-session cleanup
	sweeper := auth.NewSessionSweeper(sessions, cfg.sweepInterval, slog.Default())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth service started")
	slog.Info("auth service ready", "http_addr", httpServer.Addr())

	// Wait for shutdown signal or error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping http server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors watches a server's error channel and cancels the
// run context on failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
