package asset

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// maxReferenceImages is the provider-side cap on reference inputs.
// Extras are dropped with a warning, never rejected.
const maxReferenceImages = 3

var imageSizes = []string{
	"square", "square_hd",
	"portrait_4_3", "portrait_16_9",
	"landscape_4_3", "landscape_16_9",
}

type imageArgs struct {
	Prompt             string   `json:"prompt"`
	Style              string   `json:"style"`
	Size               string   `json:"size"`
	NumImages          int      `json:"num_images"`
	ReferenceImageURLs []string `json:"reference_image_urls"`
}

func (a imageArgs) asMap() map[string]any {
	m := map[string]any{
		"prompt":     a.Prompt,
		"style":      a.Style,
		"size":       a.Size,
		"num_images": a.NumImages,
	}
	if len(a.ReferenceImageURLs) > 0 {
		m["reference_image_urls"] = a.ReferenceImageURLs
	}
	return m
}

type imageHooks struct {
	handleShape
	styles *catalog.Catalog
	queue  job.Queue
	logger log.Logger
}

func (h *imageHooks) SanitizeArgs(args map[string]any) (map[string]any, error) {
	var in imageArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}

	in.Prompt = strings.TrimSpace(in.Prompt)
	if in.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if in.Size == "" {
		in.Size = "landscape_4_3"
	}
	if !slices.Contains(imageSizes, in.Size) {
		return nil, fmt.Errorf("size must be one of: %s", strings.Join(imageSizes, ", "))
	}
	if in.NumImages == 0 {
		in.NumImages = 1
	}
	if in.NumImages < 1 || in.NumImages > 4 {
		return nil, fmt.Errorf("num_images must be between 1 and 4")
	}
	if len(in.ReferenceImageURLs) > maxReferenceImages {
		h.logger.Warn("too many reference images, truncating",
			"given", len(in.ReferenceImageURLs), "max", maxReferenceImages)
		in.ReferenceImageURLs = in.ReferenceImageURLs[:maxReferenceImages]
	}
	return in.asMap(), nil
}

func (h *imageHooks) ResolveEndpoint(args map[string]any) (string, error) {
	style, _ := args["style"].(string)
	st, err := h.styles.Resolve("image", style)
	if err != nil {
		return "", err
	}
	return st.Model, nil
}

func (h *imageHooks) SubmitJob(ctx context.Context, endpoint string, args map[string]any) (*fal.QueueSubmission, error) {
	var in imageArgs
	if err := job.DecodeArgs(args, &in); err != nil {
		return nil, err
	}
	st, err := h.styles.Resolve("image", in.Style)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"prompt":     prefixed(st.PromptPrefix, in.Prompt),
		"image_size": in.Size,
		"num_images": in.NumImages,
	}
	if len(in.ReferenceImageURLs) > 0 {
		payload["reference_image_urls"] = in.ReferenceImageURLs
	}
	return h.queue.Submit(ctx, endpoint, payload)
}

func imageTools(deps Deps, fin *job.Finalizer) []*tools.Tool {
	hooks := &imageHooks{styles: deps.Styles, queue: deps.Queue, logger: deps.Logger}
	adapter := &job.Adapter{
		Name:     "generate_image",
		Meter:    "image generation",
		Hooks:    hooks,
		Recorder: deps.Recorder,
		Logger:   deps.Logger,
	}
	tags := []string{"image generation"}

	return []*tools.Tool{
		{
			Name: "generate_image",
			Description: "Generate an image from a text prompt. Returns a job handle " +
				"immediately; call wait, then image_status, and repeat until the job " +
				"completes, then fetch the artifact with image_result. Use list_styles " +
				"to see the available image styles.",
			InputSchema: imageSchema(),
			Tags:        tags,
			Handler:     adapter.Execute,
		},
		{
			Name:        "image_status",
			Description: "Check the status of an image generation job.",
			InputSchema: handleSchema(nil),
			Tags:        tags,
			Handler:     job.NewStatusHandler(deps.Queue, deps.Logger),
		},
		{
			Name: "image_result",
			Description: "Fetch the finished image and store it. Set remove_background " +
				"to cut the subject out onto a transparent background.",
			InputSchema: handleSchema(map[string]*jsonschema.Schema{
				"filename": filenameSchema(),
				"remove_background": {
					Type:        "boolean",
					Description: "Remove the image background before storing.",
					Default:     json.RawMessage(`false`),
				},
			}),
			Tags:    tags,
			Handler: imageResultHandler(fin, deps.Syncer),
		},
	}
}

// imageResultHandler wires the optional background-removal pass into the
// shared result pipeline.
func imageResultHandler(fin *job.Finalizer, syncer Syncer) tools.HandlerFunc {
	base := job.FinalizeOptions{KindSegment: "images"}
	return func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
		var extra struct {
			RemoveBackground bool `json:"remove_background"`
		}
		if err := job.DecodeArgs(args, &extra); err != nil {
			return nil, tools.NewError(tools.CodeInvalidArgument, "%v", err)
		}

		opts := base
		if extra.RemoveBackground {
			opts.Process = removeBackground(syncer)
		}
		return job.NewResultHandler(fin, opts)(ctx, tc, args)
	}
}

func imageSchema() *jsonschema.Schema {
	minImages := float64(1)
	maxImages := float64(4)
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"prompt"},
		Properties: map[string]*jsonschema.Schema{
			"prompt": {
				Type:        "string",
				Description: "What the image should show.",
			},
			"style": styleSchema("image"),
			"size": {
				Type:        "string",
				Description: "Output aspect preset.",
				Enum:        []any{"square", "square_hd", "portrait_4_3", "portrait_16_9", "landscape_4_3", "landscape_16_9"},
				Default:     json.RawMessage(`"landscape_4_3"`),
			},
			"num_images": {
				Type:        "integer",
				Description: "How many variants to generate.",
				Default:     json.RawMessage(`1`),
				Minimum:     &minImages,
				Maximum:     &maxImages,
			},
			"reference_image_urls": {
				Type:        "array",
				Description: "Reference image URLs guiding the generation. Up to 3 are used; extras are dropped.",
				Items:       &jsonschema.Schema{Type: "string"},
			},
		},
	}
}
