// Package main implements the entry point for the Argus API server,
// which classifies images through the Gemini vision model behind a
// priority-ordered task scheduler.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("argus-api: %v", err)
	}
}

// run loads configuration, assembles the application, and serves until
// a termination signal arrives.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.cleanup()

	appLogger.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"concurrency_limit", cfg.Scheduler.ConcurrencyLimit)

	return app.serve(ctx)
}
