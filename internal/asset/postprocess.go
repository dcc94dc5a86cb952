package asset

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/miragelabs/mirage/internal/job"
)

// Provider utility endpoints used for post-processing. These run on the
// synchronous surface: they finish in seconds, not minutes.
const (
	rembgModel     = "fal-ai/imageutils/rembg"
	transcodeModel = "fal-ai/ffmpeg-api/convert"
)

// removeBackground returns a post-processor that strips the image
// background through the provider's rembg utility. The downloaded bytes
// go up as a data URI and the cut-out comes back as a fresh artifact.
func removeBackground(syncer Syncer) job.PostProcessor {
	return func(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
		var out struct {
			Image struct {
				URL string `json:"url"`
			} `json:"image"`
		}
		payload := map[string]any{"image_url": dataURI(data, contentType)}
		if err := syncer.Run(ctx, rembgModel, payload, &out); err != nil {
			return nil, "", fmt.Errorf("background removal failed: %w", err)
		}
		if out.Image.URL == "" {
			return nil, "", fmt.Errorf("background removal returned no image")
		}
		return syncer.Download(ctx, out.Image.URL)
	}
}

// transcodeToOgg returns a post-processor that converts WAV audio to OGG
// through the provider's media conversion utility. Anything that is not
// WAV passes through untouched.
func transcodeToOgg(syncer Syncer) job.PostProcessor {
	return func(ctx context.Context, data []byte, contentType string) ([]byte, string, error) {
		if !isWAV(contentType) {
			return data, contentType, nil
		}

		var out struct {
			Media struct {
				URL string `json:"url"`
			} `json:"media"`
		}
		payload := map[string]any{
			"media_url": dataURI(data, contentType),
			"format":    "ogg",
		}
		if err := syncer.Run(ctx, transcodeModel, payload, &out); err != nil {
			return nil, "", fmt.Errorf("audio transcoding failed: %w", err)
		}
		if out.Media.URL == "" {
			return nil, "", fmt.Errorf("audio transcoding returned no media")
		}
		return syncer.Download(ctx, out.Media.URL)
	}
}

func isWAV(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "audio/wav") || strings.Contains(ct, "audio/x-wav") ||
		strings.Contains(ct, "audio/wave")
}

func dataURI(data []byte, contentType string) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
