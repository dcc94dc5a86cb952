package catalog

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/tools"
)

// styleSummary is the listing shape; routing fields stay internal.
type styleSummary struct {
	Name        string   `json:"name"`
	Family      string   `json:"family"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Default     bool     `json:"default,omitempty"`
}

func summarize(styles []Style) []styleSummary {
	out := make([]styleSummary, 0, len(styles))
	for _, s := range styles {
		out = append(out, styleSummary{
			Name:        s.Name,
			Family:      s.Family,
			Description: s.Description,
			Tags:        s.Tags,
			Default:     s.Default,
		})
	}
	return out
}

// NewListTool builds the list_styles capability.
func NewListTool(c *Catalog) *tools.Tool {
	return &tools.Tool{
		Name: "list_styles",
		Description: "List available generation styles. Pass a family (image, audio, " +
			"cinematic, skybox) to narrow the list; omit it for the full catalog.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"family": {
					Type:        "string",
					Description: "Asset family to list styles for.",
					Enum:        []any{"image", "audio", "cinematic", "skybox"},
				},
			},
		},
		Tags: []string{"styles"},
		Handler: func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
			family, _ := args["family"].(string)
			styles, err := c.List(family)
			if err != nil {
				return nil, tools.NewError(tools.CodeInternal, "%v", err)
			}
			return tools.JSON(map[string]any{
				"styles": summarize(styles),
				"count":  len(styles),
			}), nil
		},
	}
}

// NewGetTool builds the get_style capability.
func NewGetTool(c *Catalog) *tools.Tool {
	return &tools.Tool{
		Name:        "get_style",
		Description: "Fetch one style's full definition, including the model it routes to.",
		InputSchema: &jsonschema.Schema{
			Type:     "object",
			Required: []string{"name"},
			Properties: map[string]*jsonschema.Schema{
				"name": {
					Type:        "string",
					Description: "Style name, as returned by list_styles.",
				},
				"family": {
					Type:        "string",
					Description: "Asset family to disambiguate styles sharing a name.",
					Enum:        []any{"image", "audio", "cinematic", "skybox"},
				},
			},
		},
		Tags: []string{"styles"},
		Handler: func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
			name, _ := args["name"].(string)
			family, _ := args["family"].(string)
			style, err := c.Get(family, name)
			if err != nil {
				return nil, tools.NewError(tools.CodeNotFound, "%v", err)
			}
			return tools.JSON(style), nil
		},
	}
}
