package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/miragelabs/mirage/internal/app"
	"github.com/miragelabs/mirage/internal/auth"
	"github.com/miragelabs/mirage/internal/config"
	"github.com/miragelabs/mirage/internal/mcp"
)

// Server timeout configuration. Read and write deadlines stay unset:
// streamable MCP sessions hold responses open for the life of a job.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// runServe initializes and starts the MCP server over streamable HTTP.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting HTTP MCP server", "version", Version)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	server, err := mcp.NewServer(mcp.Config{
		Name:         serverName,
		Version:      Version,
		Instructions: serverInstructions,
		Registry:     a.Registry,
		Logger:       a.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	var mcpHandler http.Handler = server.Handler()
	if cfg.Server.AuthSecret != "" {
		verifier := auth.NewJWTVerifier([]byte(cfg.Server.AuthSecret))
		mcpHandler = auth.Middleware(verifier, a.Logger)(mcpHandler)
		slog.Info("bearer-token authentication enabled")
	} else {
		slog.Warn("serve transport running unauthenticated; set MIRAGE_AUTH_SECRET")
	}

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	slog.Info("HTTP server ready", "addr", cfg.Server.Addr, "mcp", "/mcp", "health", "/health")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
