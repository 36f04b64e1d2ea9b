package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/visionsmith/argus-api/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// serve runs the HTTP server until the context is cancelled, then
// drains the scheduler and shuts the server down gracefully.
func (app *application) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	}

	app.drainScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.logger.Info("server shutdown completed")
	return nil
}

// drainScheduler waits for in-flight and queued classifications to
// settle, bounded by the configured drain window. A drain that times
// out is logged with the final counters; records left mid-flight are
// recovered as interrupted on the next startup.
func (app *application) drainScheduler() {
	drainWindow := time.Duration(app.config.Server.ShutdownDrainSeconds) * time.Second
	if drainWindow <= 0 {
		app.logger.Info("scheduler drain disabled, shutting down immediately",
			"stats", app.scheduler.Stats())
		return
	}

	app.logger.Info("draining scheduler", "timeout", drainWindow)

	drainCtx, cancel := context.WithTimeout(context.Background(), drainWindow)
	defer cancel()

	if err := app.scheduler.WaitIdle(drainCtx); err != nil {
		if errors.Is(err, scheduler.ErrDrainTimeout) {
			app.logger.Warn("scheduler drain timed out",
				"timeout", drainWindow,
				"stats", app.scheduler.Stats())
			return
		}
		app.logger.Error("scheduler drain failed", "error", err)
		return
	}

	app.logger.Info("scheduler drained", "stats", app.scheduler.Stats())
}
