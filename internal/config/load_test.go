package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodiary/foodiary-api/internal/config"
)

// setRequiredEnv fills in every setting that has no usable default.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FOODIARY_DATABASE_URL", "postgres://localhost:5432/foodiary")
	t.Setenv("FOODIARY_STORAGE_ENDPOINT", "localhost:9000")
	t.Setenv("FOODIARY_STORAGE_ACCESS_KEY", "minioadmin")
	t.Setenv("FOODIARY_STORAGE_SECRET_KEY", "minioadmin")
	t.Setenv("FOODIARY_RECOGNITION_GEMINI_API_KEY", "test-api-key")
	t.Setenv("FOODIARY_AUTH_JWT_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoad(t *testing.T) {
	t.Run("loads config from environment", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FOODIARY_SERVER_PORT", "9999")
		t.Setenv("FOODIARY_SERVER_LOG_LEVEL", "debug")

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, 9999, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Server.LogLevel)
		assert.Equal(t, "postgres://localhost:5432/foodiary", cfg.Database.URL)
		assert.Equal(t, "localhost:9000", cfg.Storage.Endpoint)
	})

	t.Run("applies defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := config.Load()

		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "info", cfg.Server.LogLevel)
		assert.Equal(t, "uploads/", cfg.Storage.UploadPrefix)
		assert.Equal(t, 15, cfg.Storage.PresignExpiryMins)
		assert.Equal(t, 2, cfg.Task.WorkerCount)
		assert.Equal(t, 100, cfg.Task.QueueSize)
		assert.Equal(t, 60, cfg.Recognition.TimeoutSeconds)
	})

	t.Run("fails without database URL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FOODIARY_DATABASE_URL", "")

		_, err := config.Load()

		assert.Error(t, err)
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FOODIARY_SERVER_LOG_LEVEL", "verbose")

		_, err := config.Load()

		assert.Error(t, err)
	})

	t.Run("rejects short JWT secret", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("FOODIARY_AUTH_JWT_SECRET", "too-short")

		_, err := config.Load()

		assert.Error(t, err)
	})
}
