// Package app provides the top-level application lifecycle for the raceday
// backend. It wires together the session manager, race aggregator, WebSocket
// hub, live-push refresher and HTTP server, and runs them under one errgroup
// until the context is cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bettadev/raceday/internal/config"
)

// shutdownTimeout bounds the graceful HTTP drain on exit.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP
// server, WebSocket hub and push refresher, and blocks until the context is
// cancelled or a component fails. On return it runs all registered cleanup
// functions.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
	)

	deps, cleanup, err := Wire(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Server.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	if deps.Hub != nil {
		g.Go(func() error {
			return deps.Hub.Run(gctx)
		})
	}

	if deps.Refresher != nil {
		g.Go(func() error {
			return deps.Refresher.Run(gctx)
		})
	}

	err = g.Wait()
	if err == context.Canceled {
		return context.Canceled
	}
	return err
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
