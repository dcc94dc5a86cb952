// Package mcp bridges the tool registry onto the Model Context Protocol.
//
// The registry knows nothing about transports; this package translates
// both directions of one invocation: MCP call arguments into the raw
// argument map handlers consume, and the uniform result envelope back
// into MCP content. Progress tokens, when a client sends one, are wired
// to notifications/progress on the live session. The server speaks stdio
// for local agents and streamable HTTP for network deployments.
package mcp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/miragelabs/mirage/internal/auth"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// Server wraps the MCP SDK server around a tool registry.
type Server struct {
	mcpServer *mcp.Server
	registry  *tools.Registry
	logger    log.Logger
	name      string
	version   string
}

// Config holds MCP server construction parameters.
type Config struct {
	// Name and Version identify the server during the MCP handshake.
	Name    string
	Version string

	// Instructions is optional usage guidance surfaced to the client at
	// initialization.
	Instructions string

	// Registry supplies the tools to expose. Registration must be
	// finished before NewServer runs.
	Registry *tools.Registry

	Logger log.Logger
}

// NewServer creates an MCP server exposing every registered tool plus the
// workflow prompts.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	var opts *mcp.ServerOptions
	if cfg.Instructions != "" {
		opts = &mcp.ServerOptions{Instructions: cfg.Instructions}
	}
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, opts)

	s := &Server{
		mcpServer: mcpServer,
		registry:  cfg.Registry,
		logger:    logger,
		name:      cfg.Name,
		version:   cfg.Version,
	}

	s.registerTools()
	s.registerPrompts()

	return s, nil
}

// Run serves the MCP protocol on the given transport until ctx is
// canceled or the client disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	s.logger.Info("mcp server running", "name", s.name, "version", s.version, "tools", s.registry.Len())
	return s.mcpServer.Run(ctx, transport)
}

// Handler returns an HTTP handler speaking the streamable MCP transport.
// Sessions share the one underlying server and tool registry.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcpServer
	}, nil)
}

// registerTools exposes every registry tool through the SDK. Dispatch still
// goes through registry.Execute so panics, unknown names, and error
// envelopes behave identically on every transport.
func (s *Server) registerTools() {
	for _, desc := range s.registry.List() {
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.InputSchema,
		}, s.bridge(desc.Name))
	}
}

// bridge adapts one registry tool into an SDK handler.
func (s *Server) bridge(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req.Params.Arguments)
		if err != nil {
			return resultToMCP(tools.Errorf(tools.CodeInvalidArgument, "arguments must be a JSON object: %v", err)), nil
		}

		tc := tools.NewContext()
		tc.Identity = auth.IdentityFromContext(ctx)
		if token := req.Params.GetProgressToken(); token != nil {
			tc.Progress = s.progressNotifier(ctx, req.Session, token)
		}

		return resultToMCP(s.registry.Execute(ctx, name, args, tc)), nil
	}
}

// progressNotifier forwards handler progress to the client session under
// its progress token. A failed send is logged and dropped; progress is
// advisory and never the reason an invocation fails.
func (s *Server) progressNotifier(ctx context.Context, session *mcp.ServerSession, token any) tools.ProgressFunc {
	return func(progress, total float64, message string) {
		err := session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
			ProgressToken: token,
			Progress:      progress,
			Total:         total,
			Message:       message,
		})
		if err != nil {
			s.logger.Debug("progress notification dropped", "error", err)
		}
	}
}
