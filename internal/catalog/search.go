package catalog

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// Searcher is the store surface the search tool needs.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error)
}

// NewSearchTool builds the search_styles capability. Registered only when
// a database is configured.
func NewSearchTool(embedder Embedder, store Searcher, defaultLimit int, logger log.Logger) *tools.Tool {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &tools.Tool{
		Name: "search_styles",
		Description: "Find generation styles by meaning rather than name. Describe the look " +
			"or sound you want and get the closest styles back.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"query"},
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Free-text description of the desired style.",
				},
				"family": {
					Type:        "string",
					Description: "Asset family to search within.",
					Enum:        []any{"image", "audio", "cinematic", "skybox"},
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of matches to return.",
				},
			},
		},
		Tags: []string{"styles"},
		Handler: func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
			query, _ := args["query"].(string)
			if strings.TrimSpace(query) == "" {
				return nil, tools.NewError(tools.CodeInvalidArgument, "query is required")
			}
			family, _ := args["family"].(string)
			limit := defaultLimit
			if v, ok := args["limit"].(float64); ok && int(v) > 0 {
				limit = int(v)
			}

			embedding, err := embedder.Embed(ctx, query)
			if err != nil {
				logger.Error("style query embedding failed", "error", err)
				return nil, tools.NewError(tools.CodeProviderError, "style search is unavailable: %v", err)
			}

			matches, err := store.Search(ctx, embedding, family, limit)
			if err != nil {
				logger.Error("style search failed", "error", err)
				return nil, tools.NewError(tools.CodeInternal, "style search failed: %v", err)
			}

			return tools.JSON(map[string]any{
				"matches": matches,
				"count":   len(matches),
			}), nil
		},
	}
}
