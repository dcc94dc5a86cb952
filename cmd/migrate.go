package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/miragelabs/mirage/db"
	"github.com/miragelabs/mirage/internal/app"
	"github.com/miragelabs/mirage/internal/config"
)

// runMigrate applies schema migrations and refreshes the style embedding
// rows used by search_styles. Safe to run repeatedly.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("migrate requires DATABASE_URL to be set")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("running schema migrations")
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	slog.Info("syncing style embeddings")
	if err := a.SyncStyles(ctx); err != nil {
		return fmt.Errorf("syncing styles: %w", err)
	}

	slog.Info("migration complete")
	return nil
}
