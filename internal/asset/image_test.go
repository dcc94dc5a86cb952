package asset

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

func TestImageSanitizeDefaults(t *testing.T) {
	hooks := &imageHooks{styles: testStyles(t), logger: log.NewNop()}

	out, err := hooks.SanitizeArgs(map[string]any{"prompt": "  a red fox  "})
	if err != nil {
		t.Fatalf("SanitizeArgs: %v", err)
	}
	if out["prompt"] != "a red fox" {
		t.Errorf("prompt = %q, want trimmed", out["prompt"])
	}
	if out["size"] != "landscape_4_3" {
		t.Errorf("size = %q, want landscape_4_3 default", out["size"])
	}
	if out["num_images"] != 1 {
		t.Errorf("num_images = %v, want 1 default", out["num_images"])
	}
}

func TestImageSanitizeRejects(t *testing.T) {
	hooks := &imageHooks{styles: testStyles(t), logger: log.NewNop()}

	cases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing prompt", map[string]any{}, "prompt is required"},
		{"blank prompt", map[string]any{"prompt": "   "}, "prompt is required"},
		{"bad size", map[string]any{"prompt": "x", "size": "gigantic"}, "size must be one of"},
		{"too many images", map[string]any{"prompt": "x", "num_images": 5}, "num_images must be between 1 and 4"},
		{"negative images", map[string]any{"prompt": "x", "num_images": -1}, "num_images must be between 1 and 4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := hooks.SanitizeArgs(tc.args)
			if err == nil {
				t.Fatalf("SanitizeArgs(%v) succeeded, want error", tc.args)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestImageReferenceTruncation(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(&buf, log.Config{Level: slog.LevelWarn})

	var submitted map[string]any
	queue := &stubQueue{
		submitFn: func(ctx context.Context, model string, payload map[string]any) (*fal.QueueSubmission, error) {
			submitted = payload
			return &fal.QueueSubmission{RequestID: "req-1"}, nil
		},
	}
	deps := testDeps(t, queue)
	deps.Logger = logger

	generate := imageTools(deps, &job.Finalizer{Queue: queue, Logger: logger})[0]
	res, err := invokeGenerate(t, generate, map[string]any{
		"prompt": "a fox",
		"reference_image_urls": []any{
			"https://refs.example.com/1.png",
			"https://refs.example.com/2.png",
			"https://refs.example.com/3.png",
			"https://refs.example.com/4.png",
			"https://refs.example.com/5.png",
		},
	})
	if err != nil {
		t.Fatalf("generate_image failed instead of truncating: %v", err)
	}
	if res == nil || res.IsError {
		t.Fatal("generate_image returned an error envelope")
	}

	refs, ok := submitted["reference_image_urls"].([]string)
	if !ok {
		t.Fatalf("submitted reference_image_urls = %#v", submitted["reference_image_urls"])
	}
	if len(refs) != 3 {
		t.Fatalf("provider got %d reference images, want 3", len(refs))
	}
	for i, want := range []string{
		"https://refs.example.com/1.png",
		"https://refs.example.com/2.png",
		"https://refs.example.com/3.png",
	} {
		if refs[i] != want {
			t.Errorf("reference %d = %q, want %q", i, refs[i], want)
		}
	}
	if !strings.Contains(buf.String(), "truncating") {
		t.Error("truncation was not logged as a warning")
	}
}

func TestImageStyleRouting(t *testing.T) {
	hooks := &imageHooks{styles: testStyles(t), logger: log.NewNop()}

	cases := []struct {
		style string
		want  string
	}{
		{"", "fal-ai/flux-pro/v1.1"},
		{"pixel-art", "fal-ai/recraft-v3"},
		{"illustration", "fal-ai/flux/dev"},
	}
	for _, tc := range cases {
		got, err := hooks.ResolveEndpoint(map[string]any{"style": tc.style})
		if err != nil {
			t.Fatalf("ResolveEndpoint(%q): %v", tc.style, err)
		}
		if got != tc.want {
			t.Errorf("ResolveEndpoint(%q) = %q, want %q", tc.style, got, tc.want)
		}
	}

	if _, err := hooks.ResolveEndpoint(map[string]any{"style": "vaporwave"}); err == nil {
		t.Error("ResolveEndpoint(vaporwave) succeeded, want error")
	}
}

func TestImageSubmitPayload(t *testing.T) {
	var gotModel string
	var payload map[string]any
	queue := &stubQueue{
		submitFn: func(ctx context.Context, model string, p map[string]any) (*fal.QueueSubmission, error) {
			gotModel = model
			payload = p
			return &fal.QueueSubmission{RequestID: "req-2"}, nil
		},
	}
	hooks := &imageHooks{styles: testStyles(t), queue: queue, logger: log.NewNop()}

	args, err := hooks.SanitizeArgs(map[string]any{
		"prompt": "a fox",
		"style":  "pixel-art",
		"size":   "square",
	})
	if err != nil {
		t.Fatalf("SanitizeArgs: %v", err)
	}
	endpoint, err := hooks.ResolveEndpoint(args)
	if err != nil {
		t.Fatalf("ResolveEndpoint: %v", err)
	}
	if _, err := hooks.SubmitJob(context.Background(), endpoint, args); err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	if gotModel != "fal-ai/recraft-v3" {
		t.Errorf("submitted to %q", gotModel)
	}
	if payload["prompt"] != "pixel art, 16-bit, limited palette, a fox" {
		t.Errorf("prompt = %q, want style prefix applied", payload["prompt"])
	}
	if payload["image_size"] != "square" {
		t.Errorf("image_size = %v", payload["image_size"])
	}
	if payload["num_images"] != 1 {
		t.Errorf("num_images = %v", payload["num_images"])
	}
	if _, ok := payload["reference_image_urls"]; ok {
		t.Error("empty reference_image_urls should be omitted from the payload")
	}
}

func TestImageGenerateReturnsHandle(t *testing.T) {
	queue := acceptingQueue("img-123")
	deps := testDeps(t, queue)
	generate := imageTools(deps, &job.Finalizer{Queue: queue, Logger: deps.Logger})[0]

	res, err := invokeGenerate(t, generate, map[string]any{"prompt": "a fox", "style": "pixel-art"})
	if err != nil {
		t.Fatalf("generate_image: %v", err)
	}

	var handle job.Handle
	decodeResult(t, res, &handle)
	if handle.RequestID != "img-123" {
		t.Errorf("request_id = %q", handle.RequestID)
	}
	if handle.Model != "fal-ai/recraft-v3" {
		t.Errorf("model = %q", handle.Model)
	}
}

func TestImageResultRemoveBackground(t *testing.T) {
	queue := &stubQueue{
		resultFn: func(ctx context.Context, model, requestID string) (any, error) {
			return map[string]any{"images": []any{map[string]any{"url": "https://provider.example.com/raw.png"}}}, nil
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("raw-png"), "image/png", nil
		},
	}

	var rembgCalled bool
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			rembgCalled = true
			if model != rembgModel {
				t.Errorf("post-process model = %q, want %q", model, rembgModel)
			}
			return unmarshalInto(`{"image": {"url": "https://provider.example.com/cutout.png"}}`, out)
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			if url != "https://provider.example.com/cutout.png" {
				t.Errorf("downloaded %q after background removal", url)
			}
			return []byte("cutout-png"), "image/png", nil
		},
	}

	uploader := &stubUploader{url: "https://cdn.example.com/verse/images/cutout.png"}
	fin := &job.Finalizer{Queue: queue, Uploader: uploader, Logger: log.NewNop()}
	deps := testDeps(t, queue)
	deps.Syncer = syncer
	deps.Uploader = uploader

	result := imageTools(deps, fin)[2]
	res, err := result.Handler(context.Background(), tools.NewContext(), map[string]any{
		"request_id":        "img-123",
		"model":             "fal-ai/recraft-v3",
		"remove_background": true,
	})
	if err != nil {
		t.Fatalf("image_result: %v", err)
	}

	if !rembgCalled {
		t.Fatal("background removal endpoint was never called")
	}
	if string(uploader.gotData) != "cutout-png" {
		t.Errorf("uploaded %q, want the processed cut-out", uploader.gotData)
	}

	var payload struct {
		URL string `json:"url"`
	}
	decodeResult(t, res, &payload)
	if payload.URL != uploader.url {
		t.Errorf("result url = %q, want owned URL", payload.URL)
	}
}

func TestImageResultSkipsRemovalByDefault(t *testing.T) {
	queue := &stubQueue{
		resultFn: func(ctx context.Context, model, requestID string) (any, error) {
			return map[string]any{"images": []any{map[string]any{"url": "https://provider.example.com/raw.png"}}}, nil
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("raw-png"), "image/png", nil
		},
	}
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			t.Fatal("post-processing ran without remove_background")
			return nil
		},
	}

	uploader := &stubUploader{url: "https://cdn.example.com/verse/images/raw.png"}
	fin := &job.Finalizer{Queue: queue, Uploader: uploader, Logger: log.NewNop()}
	deps := testDeps(t, queue)
	deps.Syncer = syncer
	deps.Uploader = uploader

	result := imageTools(deps, fin)[2]
	if _, err := result.Handler(context.Background(), tools.NewContext(), map[string]any{
		"request_id": "img-123",
		"model":      "fal-ai/recraft-v3",
	}); err != nil {
		t.Fatalf("image_result: %v", err)
	}
	if string(uploader.gotData) != "raw-png" {
		t.Errorf("uploaded %q, want the raw artifact", uploader.gotData)
	}
}
