// Package cmd provides the mirage CLI commands.
//
// Commands:
//   - mcp: MCP server on stdio, for agent hosts that spawn the process
//   - serve: MCP server over streamable HTTP with bearer-token auth
//   - migrate: database schema migrations plus style embedding sync
//
// All servers shut down gracefully on SIGINT/SIGTERM via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

const serverName = "mirage"

// serverInstructions is surfaced to MCP clients at initialization.
const serverInstructions = "mirage generates game assets (images, audio, cinematics, 360° skyboxes) " +
	"through queue-backed jobs. Generation is asynchronous: a generate_* tool returns a job handle, " +
	"then you call wait, poll the family's *_status tool until COMPLETED, and fetch the asset URL " +
	"with *_result. Browse visual styles with list_styles and get_style, or search_styles where " +
	"semantic search is configured."

// Execute is the entry point for the mirage CLI.
func Execute() error {
	// Initialize the pre-config logger once at entry. Stderr only:
	// stdout belongs to the stdio transport.
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "mcp":
		return runMCP()
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("mirage - MCP server for generative game assets")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mirage mcp         Start MCP server on stdio (for agent hosts)")
	fmt.Println("  mirage serve       Start MCP server over HTTP (default: :8080)")
	fmt.Println("  mirage migrate     Run database migrations and sync style embeddings")
	fmt.Println("  mirage version     Show version information")
	fmt.Println("  mirage help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  FAL_KEY                  Required: generation provider API key")
	fmt.Println("  MIRAGE_STORAGE_API_KEY   Optional: owned asset storage credentials")
	fmt.Println("  MIRAGE_STORAGE_BASE_URL  Optional: owned asset storage endpoint")
	fmt.Println("  MIRAGE_METERING_API_KEY  Optional: usage metering credentials")
	fmt.Println("  MIRAGE_METERING_BASE_URL Optional: usage metering endpoint")
	fmt.Println("  MIRAGE_AUTH_SECRET       Optional: bearer-token secret for serve mode")
	fmt.Println("  DATABASE_URL             Optional: PostgreSQL URL enabling style search")
	fmt.Println("  DEBUG                    Optional: enable debug logging")
	fmt.Println()
	fmt.Println("Configuration file: ~/.mirage/config.yaml (or ./config.yaml)")
}
