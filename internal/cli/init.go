// Package cli holds the start-up helpers used by cmd/egitim.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"egitim/internal/config"
	applog "egitim/internal/log"
	"egitim/internal/storage"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(level, format string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Format:    format,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig reads the environment and validates the result.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite opens the repository backing headcounts and load history when
// the sqlite backend is selected. It returns nil for the memory backend.
func InitSQLite(logger *applog.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	if cfg.HeadcountBackend != config.BackendSQLite {
		logger.Info("Using in-memory headcount store", "backend", cfg.HeadcountBackend)
		return nil, nil
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	logger.Info("SQLite repository ready", "path", cfg.SQLiteDBPath)
	return repo, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
