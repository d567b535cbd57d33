package main

import (
	"log/slog"

	"github.com/foodiary/foodiary-api/internal/config"
	"github.com/foodiary/foodiary-api/internal/platform/logger"
)

// setupLogger configures the application-wide structured logger.
func setupLogger(cfg *config.Config) (*slog.Logger, error) {
	return logger.Setup(cfg.Server)
}
