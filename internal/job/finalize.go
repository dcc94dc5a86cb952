package job

import (
	"context"
	"fmt"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// PostProcessor transforms a downloaded artifact before upload, returning
// replacement bytes and content type. Used for audio transcoding and
// background removal.
type PostProcessor func(ctx context.Context, data []byte, contentType string) ([]byte, string, error)

// FinalizeOptions are the per-family knobs of result handling.
type FinalizeOptions struct {
	// KindSegment is the asset-kind path segment in owned storage.
	KindSegment string

	// Filename optionally names the stored object. Empty means generated.
	Filename string

	// Process optionally transforms the artifact before upload.
	Process PostProcessor

	// RequireOwned makes download, processing, and upload failures fatal
	// instead of falling back to the provider URL.
	RequireOwned bool
}

// Finalizer turns a completed job into an artifact URL the caller keeps.
// Provider URLs expire, so the artifact is downloaded and re-uploaded to
// owned storage; when that pipeline breaks the provider URL is returned
// as a best effort unless the family requires an owned one.
type Finalizer struct {
	Queue    Queue
	Uploader Uploader // nil leaves artifacts on provider URLs
	Logger   log.Logger
}

// Finalize fetches the result payload for handle, extracts the artifact
// URL, downloads the artifact, optionally post-processes it, and uploads
// it to owned storage.
//
// No completion precondition is checked here: a result fetched too early
// surfaces the provider's own error or an extraction failure as an
// ordinary tool error.
func (f *Finalizer) Finalize(ctx context.Context, tc *tools.Context, handle Handle, opts FinalizeOptions) (string, error) {
	logger := f.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	tc.Progress(30, 100, "fetching job result")
	payload, err := f.Queue.Result(ctx, handle.Model, handle.RequestID)
	if err != nil {
		logger.Error("result fetch failed", "model", handle.Model, "request_id", handle.RequestID, "error", err)
		return "", coerce(err, tools.CodeProviderError)
	}

	providerURL, err := ExtractURL(payload)
	if err != nil {
		logger.Error("artifact URL extraction failed", "model", handle.Model, "request_id", handle.RequestID)
		return "", err
	}

	// Without owned storage there is nowhere to put downloaded or
	// processed bytes, so the provider URL is the answer.
	if f.Uploader == nil {
		if opts.RequireOwned {
			return "", tools.NewError(tools.CodeStorageError, "this asset requires owned storage, which is not configured")
		}
		if opts.Process != nil {
			logger.Warn("post-processing skipped, owned storage is not configured", "model", handle.Model)
		}
		return providerURL, nil
	}

	tc.Progress(60, 100, "downloading artifact")
	data, contentType, err := f.Queue.Download(ctx, providerURL)
	if err != nil {
		return f.fallback(logger, providerURL, opts, "artifact download failed", err, tools.CodeProviderError)
	}

	if opts.Process != nil {
		tc.Progress(80, 100, "processing artifact")
		data, contentType, err = opts.Process(ctx, data, contentType)
		if err != nil {
			return f.fallback(logger, providerURL, opts, "artifact post-processing failed", err, tools.CodeInternal)
		}
	}

	tc.Progress(90, 100, "uploading artifact to storage")
	ownedURL, err := f.Uploader.Upload(ctx, opts.KindSegment, opts.Filename, data, contentType)
	if err != nil {
		return f.fallback(logger, providerURL, opts, "storage upload failed", err, tools.CodeStorageError)
	}
	logger.Info("artifact stored", "model", handle.Model, "request_id", handle.RequestID, "url", ownedURL)
	return ownedURL, nil
}

// fallback hands back the provider URL on a best-effort basis, unless the
// family requires an owned URL, in which case the failure is fatal.
func (f *Finalizer) fallback(logger log.Logger, providerURL string, opts FinalizeOptions, msg string, err error, code string) (string, error) {
	if opts.RequireOwned {
		return "", coerce(fmt.Errorf("%s: %w", msg, err), code)
	}
	logger.Warn(msg+", returning provider URL", "error", err)
	return providerURL, nil
}
