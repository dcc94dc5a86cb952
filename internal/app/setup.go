package app

import (
	"context"
	"fmt"

	"github.com/miragelabs/mirage/db"
	"github.com/miragelabs/mirage/internal/asset"
	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/config"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/metering"
	"github.com/miragelabs/mirage/internal/observability"
	"github.com/miragelabs/mirage/internal/storage"
	"github.com/miragelabs/mirage/internal/tools"
)

// Setup creates and initializes the application. Call Close to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	a := &App{Config: cfg}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil && a.Logger != nil {
				a.Logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}
	a.Logger = logger

	a.otelShutdown = provideTracing(ctx, cfg, logger)

	provider, err := fal.NewClient(fal.Config{
		APIKey:          cfg.Fal.APIKey,
		BaseURL:         cfg.Fal.BaseURL,
		SyncBaseURL:     cfg.Fal.SyncBaseURL,
		QueueTimeout:    cfg.Fal.QueueTimeout(),
		SyncTimeout:     cfg.Fal.SyncTimeout(),
		SubmitPerSecond: cfg.Fal.SubmitPerSecond,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating provider client: %w", err)
	}
	a.Provider = provider

	a.Catalog = catalog.New(cfg.Catalog.StylesDir, logger)

	deps := asset.Deps{
		Queue:  provider,
		Syncer: provider,
		Styles: a.Catalog,
		Logger: logger,
	}

	// Optional components stay out of Deps entirely when disabled, so
	// downstream nil checks on the interfaces mean what they say.
	if cfg.Storage.Enabled() {
		uploader, err := storage.NewClient(storage.Config{
			BaseURL:       cfg.Storage.BaseURL,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
			APIKey:        cfg.Storage.APIKey,
			Verse:         cfg.Verse,
			UploadTimeout: cfg.Storage.UploadTimeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
		deps.Uploader = uploader
	} else {
		logger.Info("owned storage disabled, provider URLs are returned as-is")
	}

	if cfg.Metering.Enabled() {
		recorder, err := metering.NewClient(metering.Config{
			BaseURL: cfg.Metering.BaseURL,
			APIKey:  cfg.Metering.APIKey,
			Timeout: cfg.Metering.Timeout(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("creating metering client: %w", err)
		}
		deps.Recorder = recorder
	}

	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to style search database: %w", err)
		}
		a.Pool = pool
		a.store = catalog.NewStore(pool, logger)
		a.embedder = catalog.NewFalEmbedder(provider, cfg.Catalog.EmbedModel)
	}

	registry, err := provideRegistry(cfg, deps, a, logger)
	if err != nil {
		return nil, err
	}
	a.Registry = registry

	logger.Info("application ready",
		"tools", registry.Len(),
		"storage", cfg.Storage.Enabled(),
		"metering", cfg.Metering.Enabled(),
		"style_search", a.store != nil,
	)
	return a, nil
}

func provideLogger(cfg *config.Config) (log.Logger, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON}), nil
}

// provideTracing installs the Datadog tracer provider. Tracing is
// best-effort: a setup failure logs a warning and the app runs untraced.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func(context.Context) error {
	shutdown, err := observability.SetupDatadog(ctx, observability.Config{
		AgentHost:   cfg.Datadog.AgentHost,
		Environment: cfg.Datadog.Environment,
		ServiceName: cfg.Datadog.ServiceName,
	})
	if err != nil {
		logger.Warn("datadog tracing disabled", "error", err)
		return nil
	}
	return shutdown
}

// provideRegistry registers the generation tools and the catalog tools.
// Style search registers only when the database is configured.
func provideRegistry(cfg *config.Config, deps asset.Deps, a *App, logger log.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)

	if err := asset.RegisterAll(registry, deps); err != nil {
		return nil, fmt.Errorf("registering generation tools: %w", err)
	}

	if err := registry.Register(catalog.NewListTool(a.Catalog)); err != nil {
		return nil, fmt.Errorf("registering list_styles: %w", err)
	}
	if err := registry.Register(catalog.NewGetTool(a.Catalog)); err != nil {
		return nil, fmt.Errorf("registering get_style: %w", err)
	}
	if a.store != nil {
		search := catalog.NewSearchTool(a.embedder, a.store, cfg.Catalog.SearchLimit, logger)
		if err := registry.Register(search); err != nil {
			return nil, fmt.Errorf("registering search_styles: %w", err)
		}
	}

	return registry, nil
}
