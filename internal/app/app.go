// Package app wires configuration into the running component graph.
//
// Setup builds everything a transport needs: the provider client, the
// optional storage and metering clients, the style catalog with its
// optional search store, and the fully populated tool registry. Commands
// construct the protocol server from these parts; App owns no transport.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/config"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// App is the initialized application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Provider talks to the generation service.
	Provider *fal.Client

	// Catalog is the style catalog backing routing and discovery.
	Catalog *catalog.Catalog

	// Registry holds every registered tool.
	Registry *tools.Registry

	// Pool is the style search database. Nil when database_url is unset.
	Pool *pgxpool.Pool

	store        *catalog.Store
	embedder     catalog.Embedder
	otelShutdown func(context.Context) error
}

// Close releases resources in reverse setup order.
func (a *App) Close() error {
	var firstErr error

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutting down tracing: %w", err)
		}
		cancel()
		a.otelShutdown = nil
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	return firstErr
}

// SyncStyles embeds every catalog style and upserts it into the search
// store. Used by the migrate command after schema migrations run.
func (a *App) SyncStyles(ctx context.Context) error {
	if a.store == nil {
		return fmt.Errorf("style search store is not configured; set DATABASE_URL")
	}
	styles, err := a.Catalog.All()
	if err != nil {
		return fmt.Errorf("loading styles: %w", err)
	}
	return a.store.SyncStyles(ctx, styles, a.embedder)
}
