package asset

import (
	"context"
	"strings"
	"testing"

	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

func TestAudioSanitizeDuration(t *testing.T) {
	hooks := &audioHooks{styles: testStyles(t)}

	out, err := hooks.SanitizeArgs(map[string]any{"prompt": "soft rain"})
	if err != nil {
		t.Fatalf("SanitizeArgs: %v", err)
	}
	if out["duration_seconds"] != defaultAudioSeconds {
		t.Errorf("duration_seconds = %v, want %d default", out["duration_seconds"], defaultAudioSeconds)
	}

	for _, ok := range []int{1, 15, 30} {
		if _, err := hooks.SanitizeArgs(map[string]any{"prompt": "x", "duration_seconds": ok}); err != nil {
			t.Errorf("SanitizeArgs(duration=%d): %v", ok, err)
		}
	}

	for _, bad := range []int{-5, 31, 300} {
		_, err := hooks.SanitizeArgs(map[string]any{"prompt": "x", "duration_seconds": bad})
		if err == nil {
			t.Fatalf("SanitizeArgs(duration=%d) succeeded, want error", bad)
		}
		if err.Error() != "duration must be an integer between 1 and 30" {
			t.Errorf("SanitizeArgs(duration=%d) error = %q", bad, err)
		}
	}
}

func TestAudioSubmitPayload(t *testing.T) {
	var payload map[string]any
	queue := &stubQueue{
		submitFn: func(ctx context.Context, model string, p map[string]any) (*fal.QueueSubmission, error) {
			payload = p
			return &fal.QueueSubmission{RequestID: "aud-1"}, nil
		},
	}
	hooks := &audioHooks{styles: testStyles(t), queue: queue}

	args, err := hooks.SanitizeArgs(map[string]any{
		"prompt":           "wind through pines",
		"style":            "ambient",
		"duration_seconds": 20,
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

	if payload["prompt"] != "ambient background, wind through pines" {
		t.Errorf("prompt = %q", payload["prompt"])
	}
	if payload["seconds_total"] != 20 {
		t.Errorf("seconds_total = %v, want 20", payload["seconds_total"])
	}
}

func TestAudioDefaultStyleIsMusic(t *testing.T) {
	hooks := &audioHooks{styles: testStyles(t)}

	endpoint, err := hooks.ResolveEndpoint(map[string]any{"style": ""})
	if err != nil {
		t.Fatalf("ResolveEndpoint: %v", err)
	}
	if endpoint != "fal-ai/stable-audio" {
		t.Errorf("default audio endpoint = %q", endpoint)
	}
}

func TestAudioResultTranscodesWAV(t *testing.T) {
	queue := &stubQueue{
		resultFn: func(ctx context.Context, model, requestID string) (any, error) {
			return map[string]any{"audio_file": map[string]any{"url": "https://provider.example.com/take.wav"}}, nil
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("wav-bytes"), "audio/wav", nil
		},
	}
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			if model != transcodeModel {
				t.Errorf("transcode model = %q, want %q", model, transcodeModel)
			}
			if payload.(map[string]any)["format"] != "ogg" {
				t.Errorf("transcode payload = %#v", payload)
			}
			return unmarshalInto(`{"media": {"url": "https://provider.example.com/take.ogg"}}`, out)
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("ogg-bytes"), "audio/ogg", nil
		},
	}

	uploader := &stubUploader{url: "https://cdn.example.com/verse/audio/take.ogg"}
	fin := &job.Finalizer{Queue: queue, Uploader: uploader, Logger: log.NewNop()}
	deps := testDeps(t, queue)
	deps.Syncer = syncer
	deps.Uploader = uploader

	result := audioTools(deps, fin)[2]
	res, err := result.Handler(context.Background(), tools.NewContext(), map[string]any{
		"request_id": "aud-1",
		"model":      "fal-ai/stable-audio",
	})
	if err != nil {
		t.Fatalf("audio_result: %v", err)
	}

	if string(uploader.gotData) != "ogg-bytes" {
		t.Errorf("uploaded %q, want transcoded bytes", uploader.gotData)
	}
	if uploader.gotType != "audio/ogg" {
		t.Errorf("uploaded content type = %q", uploader.gotType)
	}

	var payload struct {
		URL string `json:"url"`
	}
	decodeResult(t, res, &payload)
	if payload.URL != uploader.url {
		t.Errorf("result url = %q", payload.URL)
	}
}

func TestAudioResultPassesThroughNonWAV(t *testing.T) {
	queue := &stubQueue{
		resultFn: func(ctx context.Context, model, requestID string) (any, error) {
			return map[string]any{"audio_file": map[string]any{"url": "https://provider.example.com/take.mp3"}}, nil
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("mp3-bytes"), "audio/mpeg", nil
		},
	}
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			t.Fatal("transcoding ran for non-WAV audio")
			return nil
		},
	}

	uploader := &stubUploader{url: "https://cdn.example.com/verse/audio/take.mp3"}
	fin := &job.Finalizer{Queue: queue, Uploader: uploader, Logger: log.NewNop()}
	deps := testDeps(t, queue)
	deps.Syncer = syncer
	deps.Uploader = uploader

	result := audioTools(deps, fin)[2]
	if _, err := result.Handler(context.Background(), tools.NewContext(), map[string]any{
		"request_id": "aud-2",
		"model":      "fal-ai/stable-audio",
	}); err != nil {
		t.Fatalf("audio_result: %v", err)
	}
	if string(uploader.gotData) != "mp3-bytes" {
		t.Errorf("uploaded %q, want untouched bytes", uploader.gotData)
	}
	if uploader.gotType != "audio/mpeg" {
		t.Errorf("uploaded content type = %q", uploader.gotType)
	}
}

func TestAudioBadDurationFailsBeforeSubmission(t *testing.T) {
	submitted := false
	queue := &stubQueue{
		submitFn: func(ctx context.Context, model string, payload map[string]any) (*fal.QueueSubmission, error) {
			submitted = true
			return &fal.QueueSubmission{RequestID: "x"}, nil
		},
	}
	deps := testDeps(t, queue)
	generate := audioTools(deps, &job.Finalizer{Queue: queue, Logger: deps.Logger})[0]

	_, err := invokeGenerate(t, generate, map[string]any{"prompt": "x", "duration_seconds": 99})
	if err == nil {
		t.Fatal("generate_audio succeeded with a bad duration")
	}
	if code := errCode(t, err); code != tools.CodeInvalidArgument {
		t.Errorf("code = %s, want %s", code, tools.CodeInvalidArgument)
	}
	if !strings.Contains(err.Error(), "duration must be an integer between 1 and 30") {
		t.Errorf("error = %v", err)
	}
	if submitted {
		t.Error("job was submitted despite failed validation")
	}
}
