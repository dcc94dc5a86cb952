package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// waitHint is the pacing guidance per asset family. Video jobs run far
// longer than image jobs; a client polling a cinematic every 10 seconds
// just burns calls.
var waitHint = map[string]string{
	"image":     "10-30 seconds between checks; image jobs usually finish within a minute",
	"audio":     "10-30 seconds between checks; audio jobs usually finish within a minute",
	"cinematic": "60-120 seconds between checks; video jobs run for several minutes",
	"skybox":    "15-45 seconds between checks; skybox jobs usually finish within two minutes",
}

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "generation_workflow",
		Description: "Step-by-step recipe for driving a generation job from submission to finished asset.",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "asset_type",
				Description: "Asset family to generate: image, audio, cinematic, or skybox. Omit for the generic recipe.",
			},
		},
	}, s.generationWorkflow)

	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        "style_advisor",
		Description: "Ask for style recommendations from the catalog before generating.",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "brief",
				Description: "What the asset is for, in the caller's own words.",
				Required:    true,
			},
		},
	}, s.styleAdvisor)
}

func (s *Server) generationWorkflow(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	assetType := strings.TrimSpace(req.Params.Arguments["asset_type"])
	if assetType == "" {
		return &mcp.GetPromptResult{
			Description: "Generation workflow for all asset families",
			Messages: []*mcp.PromptMessage{{
				Role:    "user",
				Content: &mcp.TextContent{Text: genericWorkflowText()},
			}},
		}, nil
	}

	hint, ok := waitHint[strings.ToLower(assetType)]
	if !ok {
		return nil, fmt.Errorf("unknown asset type %q: expected one of %s", assetType, strings.Join(assetFamilies(), ", "))
	}

	return &mcp.GetPromptResult{
		Description: "Generation workflow for " + assetType + " assets",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: workflowText(strings.ToLower(assetType), hint)},
		}},
	}, nil
}

func (s *Server) styleAdvisor(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	brief := strings.TrimSpace(req.Params.Arguments["brief"])
	if brief == "" {
		return nil, fmt.Errorf("the brief argument is required")
	}

	text := fmt.Sprintf(`I need style recommendations for this brief:

%s

Call list_styles to see the catalog (pass family to narrow it to image, audio, cinematic, or skybox), and search_styles for semantic matches when it is available. Recommend up to three styles, explain in one sentence each why it fits the brief, then generate with the best match. Note that each style prefixes the prompt with its own descriptors, so keep the generation prompt about the subject, not the look.`, brief)

	return &mcp.GetPromptResult{
		Description: "Style recommendation request",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

func workflowText(family, hint string) string {
	return fmt.Sprintf(`Generate a %[1]s asset through the job queue. Jobs do not finish inside one call; drive the lifecycle yourself:

1. Pick a style with list_styles (family %[1]q) or accept the default.
2. Call generate_%[1]s with the prompt. It returns a handle: request_id and model. Keep both.
3. Call wait (%[2]s).
4. Call %[1]s_status with the handle. While the status is PENDING or PROCESSING, go back to step 3.
5. When the status is COMPLETED, call %[1]s_result with the handle to get the asset URL.

If the status is ERROR or ABORTED, stop polling and report the failure. Never poll in a tight loop; always wait between status checks.`, family, hint)
}

func genericWorkflowText() string {
	var b strings.Builder
	b.WriteString(`Generation tools submit jobs to a queue and return immediately with a handle (request_id and model). For any family X in `)
	b.WriteString(strings.Join(assetFamilies(), ", "))
	b.WriteString(`:

1. generate_X submits the job and returns the handle.
2. wait pauses between polls. Pace by family:
`)
	for _, family := range assetFamilies() {
		fmt.Fprintf(&b, "   - %s: %s\n", family, waitHint[family])
	}
	b.WriteString(`3. X_status reports PENDING, PROCESSING, COMPLETED, ERROR, or ABORTED.
4. X_result fetches the finished asset URL once the status is COMPLETED.

Repeat wait and X_status until the job leaves PENDING/PROCESSING. Never poll in a tight loop.`)
	return b.String()
}

func assetFamilies() []string {
	families := make([]string, 0, len(waitHint))
	for f := range waitHint {
		families = append(families, f)
	}
	sort.Strings(families)
	return families
}
