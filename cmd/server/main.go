// Package main is the entry point for the foodiary API server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/foodiary/foodiary-api/internal/config"
)

func main() {
	cfg, logger, err := initializeApp()
	if err != nil {
		// Logging may not be configured yet, so fall back to stderr.
		fmt.Fprintf(os.Stderr, "initialization failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting foodiary API server",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to assemble application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		logger.Error("server exited with error", "error", err)
		app.cleanup()
		os.Exit(1)
	}

	app.cleanup()
	logger.Info("server shut down cleanly")
}

// initializeApp loads configuration and sets up the process-wide logger.
// The returned logger is also installed as the slog default.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := setupLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return cfg, log, nil
}
