package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/tools"
)

// cinematicDurations are the clip lengths the video models accept.
var cinematicDurations = []int{5, 10}

var cinematicAspects = []string{"16:9", "9:16", "1:1"}

type cinematicArgs struct {
	Prompt          string `json:"prompt"`
	Style           string `json:"style"`
	DurationSeconds int    `json:"duration_seconds"`
	AspectRatio     string `json:"aspect_ratio"`
}

func (a cinematicArgs) asMap() map[string]any {
	return map[string]any{
		"prompt":           a.Prompt,
		"style":            a.Style,
		"duration_seconds": a.DurationSeconds,
		"aspect_ratio":     a.AspectRatio,
	}
}

type cinematicHooks struct {
	handleShape
	styles *catalog.Catalog
	queue  job.Queue
}

func (h *cinematicHooks) SanitizeArgs(args map[string]any) (map[string]any, error) {
	var in cinematicArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if in.DurationSeconds == 0 {
		in.DurationSeconds = 5
	}
	if !slices.Contains(cinematicDurations, in.DurationSeconds) {
		return nil, fmt.Errorf("duration_seconds must be 5 or 10")
	}
	if in.AspectRatio == "" {
		in.AspectRatio = "16:9"
	}
	if !slices.Contains(cinematicAspects, in.AspectRatio) {
		return nil, fmt.Errorf("aspect_ratio must be one of: %s", strings.Join(cinematicAspects, ", "))
	}
	return in.asMap(), nil
}

func (h *cinematicHooks) ResolveEndpoint(args map[string]any) (string, error) {
	style, _ := args["style"].(string)
	st, err := h.styles.Resolve("cinematic", style)
	if err != nil {
		return "", err
	}
	return st.Model, nil
}

func (h *cinematicHooks) SubmitJob(ctx context.Context, endpoint string, args map[string]any) (*fal.QueueSubmission, error) {
	var in cinematicArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}
	st, err := h.styles.Resolve("cinematic", in.Style)
	if err != nil {
		return nil, err
	}

	// Video models take duration as a string.
	payload := map[string]any{
		"prompt":       prefixed(st.PromptPrefix, in.Prompt),
		"duration":     strconv.Itoa(in.DurationSeconds),
		"aspect_ratio": in.AspectRatio,
	}
	return h.queue.Submit(ctx, endpoint, payload)
}

func cinematicTools(deps Deps, fin *job.Finalizer) []*tools.Tool {
	hooks := &cinematicHooks{styles: deps.Styles, queue: deps.Queue}
	adapter := &job.Adapter{
		Name:     "generate_cinematic",
		Meter:    "cinematic generation",
		Hooks:    hooks,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	}
	tags := []string{"video generation"}

	return []*tools.Tool{
		{
			Name: "generate_cinematic",
			Description: "Generate a short video clip from a text prompt. Video jobs run " +
				"for minutes: call wait, then cinematic_status, and repeat until the job " +
				"completes, then fetch the clip with cinematic_result.",
			InputSchema: cinematicSchema(),
			Tags:        tags,
			Handler:     adapter.Execute,
		},
		{
			Name:        "cinematic_status",
			Description: "Check the status of a cinematic generation job.",
			InputSchema: handleSchema(nil),
			Tags:        tags,
			Handler:     job.NewStatusHandler(deps.Queue, deps.Logger),
		},
		{
			Name:        "cinematic_result",
			Description: "Fetch the finished video clip and store it.",
			InputSchema: handleSchema(map[string]*jsonschema.Schema{
				"filename": filenameSchema(),
			}),
			Tags: tags,
			Handler: job.NewResultHandler(fin, job.FinalizeOptions{
				KindSegment: "cinematics",
			}),
		},
	}
}

func cinematicSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"prompt"},
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "What the clip should show, including camera movement.",
			},
			"style": styleSchema("cinematic"),
			"duration_seconds": {
				Type:        "integer",
				Description: "Clip length in seconds.",
				Enum:        []any{5, 10},
				Default:     json.RawMessage(`5`),
			},
			"aspect_ratio": {
				Type:        "string",
				Description: "Output aspect ratio.",
				Enum:        []any{"16:9", "9:16", "1:1"},
				Default:     json.RawMessage(`"16:9"`),
			},
		},
	}
}
