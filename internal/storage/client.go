// Package storage uploads generated artifacts to the owned storage service
// and hands back permanent public URLs.
//
// Provider-hosted artifact URLs expire, so every artifact the caller should
// keep gets re-uploaded here. The public URL is deterministic: public base,
// verse namespace, asset-kind segment, filename.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/miragelabs/mirage/internal/log"
)

// Config holds client construction parameters.
type Config struct {
	// BaseURL is the upload API root.
	BaseURL string

	// PublicBaseURL is the root under which uploaded objects are served.
	// Defaults to BaseURL.
	PublicBaseURL string

	// APIKey authenticates uploads.
	APIKey string

	// Verse is the namespace all objects for this deployment live under.
	Verse string

	// UploadTimeout bounds one upload call.
	UploadTimeout time.Duration
}

// Client talks to the storage service. Safe for concurrent use.
type Client struct {
	baseURL   string
	publicURL string
	apiKey    string
	verse     string
	http      *http.Client
	logger    log.Logger
}

// NewClient creates a storage client.
func NewClient(cfg Config, logger log.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("storage base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("storage API key is required")
	}
	if cfg.Verse == "" {
		return nil, fmt.Errorf("storage verse is required")
	}
	if cfg.PublicBaseURL == "" {
		cfg.PublicBaseURL = cfg.BaseURL
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 2 * time.Minute
	}

	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		publicURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		apiKey:    cfg.APIKey,
		verse:     cfg.Verse,
		http:      &http.Client{Timeout: cfg.UploadTimeout},
		logger:    logger,
	}, nil
}

// Upload stores data under the given asset-kind segment and returns the
// permanent public URL. An empty filename gets a generated one; a supplied
// filename is reduced to its base name so callers cannot steer the object
// key outside the verse.
func (c *Client) Upload(ctx context.Context, kindSegment, filename string, data []byte, contentType string) (string, error) {
	if kindSegment == "" {
		return "", fmt.Errorf("asset kind segment is required")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("artifact data is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if filename == "" {
		filename = uuid.NewString() + extensionFor(contentType)
	} else {
		filename = sanitizeFilename(filename)
	}

	key := c.verse + "/" + kindSegment + "/" + filename

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("key", key); err != nil {
		return "", fmt.Errorf("writing key field: %w", err)
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("creating file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("writing file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload rejected (status %d): %s", resp.StatusCode, string(body))
	}

	url := c.publicURL + "/" + key
	c.logger.Debug("artifact uploaded", "key", key, "bytes", len(data))
	return url, nil
}

// sanitizeFilename keeps only the base name and replaces characters that
// do not belong in an object key.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "." || name == ".." || name == "/" {
		return uuid.NewString()
	}
	return name
}

// extensionFor maps a content type to a file extension. The common
// generation formats are pinned because mime.ExtensionsByType orders its
// answers unpredictably.
func extensionFor(contentType string) string {
	base := contentType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
