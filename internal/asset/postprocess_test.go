package asset

import (
	"context"
	"strings"
	"testing"
)

func TestRemoveBackgroundFlow(t *testing.T) {
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			if model != rembgModel {
				t.Errorf("model = %q, want %q", model, rembgModel)
			}
			uri, _ := payload.(map[string]any)["image_url"].(string)
			if !strings.HasPrefix(uri, "data:image/png;base64,") {
				t.Errorf("image_url = %q, want a data URI", uri)
			}
			return unmarshalInto(`{"image": {"url": "https://provider.example.com/cutout.png"}}`, out)
		},
		downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
			return []byte("cutout"), "image/png", nil
		},
	}

	process := removeBackground(syncer)
	data, contentType, err := process(context.Background(), []byte("raw"), "image/png")
	if err != nil {
		t.Fatalf("removeBackground: %v", err)
	}
	if string(data) != "cutout" || contentType != "image/png" {
		t.Errorf("got (%q, %q)", data, contentType)
	}
}

func TestRemoveBackgroundNoImage(t *testing.T) {
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			return unmarshalInto(`{}`, out)
		},
	}

	process := removeBackground(syncer)
	_, _, err := process(context.Background(), []byte("raw"), "image/png")
	if err == nil {
		t.Fatal("removeBackground succeeded with an empty response")
	}
	if !strings.Contains(err.Error(), "no image") {
		t.Errorf("error = %v", err)
	}
}

func TestTranscodeToOggConverts(t *testing.T) {
	for _, wavType := range []string{"audio/wav", "audio/x-wav", "audio/wave", "Audio/WAV; charset=binary"} {
		syncer := &stubSyncer{
			runFn: func(ctx context.Context, model string, payload, out any) error {
				if model != transcodeModel {
					t.Errorf("model = %q, want %q", model, transcodeModel)
				}
				p := payload.(map[string]any)
				if p["format"] != "ogg" {
					t.Errorf("format = %v, want ogg", p["format"])
				}
				uri, _ := p["media_url"].(string)
				if !strings.HasPrefix(uri, "data:") {
					t.Errorf("media_url = %q, want a data URI", uri)
				}
				return unmarshalInto(`{"media": {"url": "https://provider.example.com/out.ogg"}}`, out)
			},
			downloadFn: func(ctx context.Context, url string) ([]byte, string, error) {
				return []byte("ogg"), "audio/ogg", nil
			},
		}

		process := transcodeToOgg(syncer)
		data, contentType, err := process(context.Background(), []byte("wav"), wavType)
		if err != nil {
			t.Fatalf("transcodeToOgg(%q): %v", wavType, err)
		}
		if string(data) != "ogg" || contentType != "audio/ogg" {
			t.Errorf("transcodeToOgg(%q) = (%q, %q)", wavType, data, contentType)
		}
	}
}

func TestTranscodeToOggPassesThrough(t *testing.T) {
	syncer := &stubSyncer{
		runFn: func(ctx context.Context, model string, payload, out any) error {
			t.Fatal("transcode ran for non-WAV input")
			return nil
		},
	}

	process := transcodeToOgg(syncer)
	for _, ct := range []string{"audio/ogg", "audio/mpeg", "video/mp4", ""} {
		data, contentType, err := process(context.Background(), []byte("bytes"), ct)
		if err != nil {
			t.Fatalf("transcodeToOgg(%q): %v", ct, err)
		}
		if string(data) != "bytes" || contentType != ct {
			t.Errorf("transcodeToOgg(%q) changed the artifact", ct)
		}
	}
}

func TestDataURI(t *testing.T) {
	got := dataURI([]byte{1, 2, 3}, "image/png")
	if got != "data:image/png;base64,AQID" {
		t.Errorf("dataURI = %q", got)
	}
	if !strings.HasPrefix(dataURI([]byte("x"), ""), "data:application/octet-stream;base64,") {
		t.Error("empty content type should fall back to octet-stream")
	}
}
