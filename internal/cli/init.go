// Package cli consolidates the initialization shared by cmd/weeklykeeper,
// cmd/keeper-worker and cmd/keeper-maintenance.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"weeklykeeper/internal/backend"
	"weeklykeeper/internal/config"
	"weeklykeeper/internal/log"
	"weeklykeeper/internal/storage"
)

// Bootstrap loads the environment, configuration and logging for a binary.
// Exits the process when the configuration does not validate.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := log.New(log.ParseLevel(cfg.LogLevel), component)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenSnapshots opens the configured persistence backend or exits.
func OpenSnapshots(cfg *config.Config, logger *log.Logger) storage.SnapshotStore {
	snapshots, err := backend.Open(cfg)
	if err != nil {
		logger.Error("Failed to open persistence backend",
			log.FieldError, err,
			log.FieldBackendType, cfg.DataBackend)
		os.Exit(1)
	}
	return snapshots
}
