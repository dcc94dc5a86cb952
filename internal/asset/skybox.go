package asset

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/tools"
)

type skyboxArgs struct {
	Prompt         string `json:"prompt"`
	Style          string `json:"style"`
	NegativePrompt string `json:"negative_prompt"`
}

func (a skyboxArgs) asMap() map[string]any {
	return map[string]any{
		"prompt":          a.Prompt,
		"style":           a.Style,
		"negative_prompt": a.NegativePrompt,
	}
}

type skyboxHooks struct {
	handleShape
	styles *catalog.Catalog
	queue  job.Queue
}

func (h *skyboxHooks) SanitizeArgs(args map[string]any) (map[string]any, error) {
	var in skyboxArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	in.NegativePrompt = strings.TrimSpace(in.NegativePrompt)
	return in.asMap(), nil
}

func (h *skyboxHooks) ResolveEndpoint(args map[string]any) (string, error) {
	style, _ := args["style"].(string)
	st, err := h.styles.Resolve("skybox", style)
	if err != nil {
		return "", err
	}
	return st.Model, nil
}

func (h *skyboxHooks) SubmitJob(ctx context.Context, endpoint string, args map[string]any) (*fal.QueueSubmission, error) {
	var in skyboxArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}
	st, err := h.styles.Resolve("skybox", in.Style)
	if err != nil {
		return nil, err
	}

	// The style prefix carries the equirectangular framing; the wide
	// aspect keeps the horizon seamless when wrapped.
	payload := map[string]any{
		"prompt":       prefixed(st.PromptPrefix, in.Prompt),
		"aspect_ratio": "21:9",
		"num_images":   1,
	}
	if in.NegativePrompt != "" {
		payload["negative_prompt"] = in.NegativePrompt
	}
	return h.queue.Submit(ctx, endpoint, payload)
}

func skyboxTools(deps Deps, fin *job.Finalizer) []*tools.Tool {
	hooks := &skyboxHooks{styles: deps.Styles, queue: deps.Queue}
	adapter := &job.Adapter{
		Name:     "generate_skybox",
		Meter:    "skybox generation",
		Hooks:    hooks,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	}
	tags := []string{"skybox generation"}

	return []*tools.Tool{
		{
			Name: "generate_skybox",
			Description: "Generate a 360-degree equirectangular skybox panorama from a " +
				"text prompt. Returns a job handle immediately; call wait, then " +
				"skybox_status, and fetch the panorama with skybox_result once complete.",
			InputSchema: skyboxSchema(),
			Tags:        tags,
			Handler:     adapter.Execute,
		},
		{
			Name:        "skybox_status",
			Description: "Check the status of a skybox generation job.",
			InputSchema: handleSchema(nil),
			Tags:        tags,
			Handler:     job.NewStatusHandler(deps.Queue, deps.Logger),
		},
		{
			Name: "skybox_result",
			Description: "Fetch the finished skybox panorama and store it. Skyboxes are " +
				"engine assets, so owned storage is required.",
			InputSchema: handleSchema(map[string]*jsonschema.Schema{
				"filename": filenameSchema(),
			}),
			Tags: tags,
			// Engines load skyboxes by URL long after generation, so an
			// expiring provider URL is not an acceptable fallback.
			Handler: job.NewResultHandler(fin, job.FinalizeOptions{
				KindSegment:  "skyboxes",
				RequireOwned: true,
			}),
		},
	}
}

func skyboxSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"prompt"},
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "The environment the skybox should depict.",
			},
			"style": styleSchema("skybox"),
			"negative_prompt": {
				Type:        "string",
				Description: "What to keep out of the panorama.",
			},
		},
	}
}
