package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/tools"
)

const (
	minAudioSeconds     = 1
	maxAudioSeconds     = 30
	defaultAudioSeconds = 10
)

type audioArgs struct {
	Prompt          string `json:"prompt"`
	Style           string `json:"style"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (a audioArgs) asMap() map[string]any {
	return map[string]any{
		"prompt":           a.Prompt,
		"style":            a.Style,
		"duration_seconds": a.DurationSeconds,
	}
}

type audioHooks struct {
	handleShape
	styles *catalog.Catalog
	queue  job.Queue
}

func (h *audioHooks) SanitizeArgs(args map[string]any) (map[string]any, error) {
	var in audioArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if in.DurationSeconds == 0 {
		in.DurationSeconds = defaultAudioSeconds
	}
	if in.DurationSeconds < minAudioSeconds || in.DurationSeconds > maxAudioSeconds {
		return nil, fmt.Errorf("duration must be an integer between %d and %d", minAudioSeconds, maxAudioSeconds)
	}
	return in.asMap(), nil
}

func (h *audioHooks) ResolveEndpoint(args map[string]any) (string, error) {
	style, _ := args["style"].(string)
	st, err := h.styles.Resolve("audio", style)
	if err != nil {
		return "", err
	}
	return st.Model, nil
}

func (h *audioHooks) SubmitJob(ctx context.Context, endpoint string, args map[string]any) (*fal.QueueSubmission, error) {
	var in audioArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}
	st, err := h.styles.Resolve("audio", in.Style)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"prompt":        prefixed(st.PromptPrefix, in.Prompt),
		"seconds_total": in.DurationSeconds,
	}
	return h.queue.Submit(ctx, endpoint, payload)
}

func audioTools(deps Deps, fin *job.Finalizer) []*tools.Tool {
	hooks := &audioHooks{styles: deps.Styles, queue: deps.Queue}
	adapter := &job.Adapter{
		Name:     "generate_audio",
		Meter:    "audio generation",
		Hooks:    hooks,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	}
	tags := []string{"audio generation"}

	return []*tools.Tool{
		{
			Name: "generate_audio",
			Description: "Generate music, sound effects, or ambience from a text prompt. " +
				"Returns a job handle immediately; call wait, then audio_status, and " +
				"fetch the artifact with audio_result once the job completes.",
			InputSchema: audioSchema(),
			Tags:        tags,
			Handler:     adapter.Execute,
		},
		{
			Name:        "audio_status",
			Description: "Check the status of an audio generation job.",
			InputSchema: handleSchema(nil),
			Tags:        tags,
			Handler:     job.NewStatusHandler(deps.Queue, deps.Logger),
		},
		{
			Name: "audio_result",
			Description: "Fetch the finished audio and store it. WAV output is " +
				"transcoded to OGG before storage.",
			InputSchema: handleSchema(map[string]*jsonschema.Schema{
				"filename": filenameSchema(),
			}),
			Tags: tags,
			Handler: job.NewResultHandler(fin, job.FinalizeOptions{
				KindSegment: "audio",
				Process:     transcodeToOgg(deps.Syncer),
			}),
		},
	}
}

func audioSchema() *jsonschema.Schema {
	minSeconds := float64(minAudioSeconds)
	maxSeconds := float64(maxAudioSeconds)
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"prompt"},
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "What the audio should sound like.",
			},
			"style": styleSchema("audio"),
			"duration_seconds": {
				Type:        "integer",
				Description: "Clip length in seconds, between 1 and 30.",
				Default:     json.RawMessage(`10`),
				Minimum:     &minSeconds,
				Maximum:     &maxSeconds,
			},
		},
	}
}
