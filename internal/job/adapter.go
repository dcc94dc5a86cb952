// Package job implements the shared lifecycle of queue-backed generation
// work: submit, status, result, wait.
//
// Generation requests do not finish inside one tool call. A submission
// returns a job handle; the caller polls status, waits between polls, and
// fetches the artifact once the job completes. Every asset family reuses
// the same skeleton here and plugs in its own argument handling through
// the Hooks interface.
package job

import (
	"context"
	"errors"

	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/metering"
	"github.com/miragelabs/mirage/internal/tools"
)

// Queue is the provider surface job capabilities depend on.
type Queue interface {
	Submit(ctx context.Context, model string, payload map[string]any) (*fal.QueueSubmission, error)
	Status(ctx context.Context, model, requestID string) (*fal.QueueStatus, error)
	Result(ctx context.Context, model, requestID string) (any, error)
	Download(ctx context.Context, url string) ([]byte, string, error)
}

var _ Queue = (*fal.Client)(nil)

// Recorder records billable usage. A nil Recorder disables metering.
type Recorder interface {
	Record(ctx context.Context, ev metering.Event) error
}

// Uploader moves artifact bytes to owned storage and returns the public
// URL.
type Uploader interface {
	Upload(ctx context.Context, kindSegment, filename string, data []byte, contentType string) (string, error)
}

// Hooks are the family-specific points of a generation submission.
type Hooks interface {
	// SanitizeArgs validates caller arguments, applies defaults, and
	// returns the normalized set. Limits that can be repaired (too many
	// reference images) are repaired with a warning, not rejected.
	SanitizeArgs(args map[string]any) (map[string]any, error)

	// ResolveEndpoint picks the provider model path for the normalized
	// arguments. Some families route by style or asset type.
	ResolveEndpoint(args map[string]any) (string, error)

	// SubmitJob builds the provider payload and enqueues the job.
	SubmitJob(ctx context.Context, endpoint string, args map[string]any) (*fal.QueueSubmission, error)

	// ShapeResult turns the submission acknowledgment into the caller
	// envelope, usually the job handle.
	ShapeResult(ctx context.Context, tc *tools.Context, endpoint string, sub *fal.QueueSubmission) (*tools.Result, error)
}

// Adapter runs the submission skeleton shared by every generation tool.
// Steps run in a fixed order: progress, metering, sanitize, resolve,
// submit, shape. Metering runs before any provider work and a metering
// failure stops the job when the caller is identified.
type Adapter struct {
	// Name is the tool name, used in logs and metering events.
	Name string

	// Meter describes the usage being charged. Defaults to Name.
	Meter string

	Hooks    Hooks
	Recorder Recorder
	Logger   log.Logger
}

// Execute satisfies tools.HandlerFunc so an Adapter can be wired directly
// as a tool handler.
func (a *Adapter) Execute(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
	logger := a.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	tc.Progress(10, 100, "starting "+a.Name)

	if tc.Identity != nil {
		if err := a.meter(ctx, tc, logger); err != nil {
			return nil, err
		}
	}

	sanitized, err := a.Hooks.SanitizeArgs(args)
	if err != nil {
		return nil, coerce(err, tools.CodeInvalidArgument)
	}

	endpoint, err := a.Hooks.ResolveEndpoint(sanitized)
	if err != nil {
		return nil, coerce(err, tools.CodeInvalidArgument)
	}

	tc.Progress(30, 100, "submitting job to "+endpoint)
	sub, err := a.Hooks.SubmitJob(ctx, endpoint, sanitized)
	if err != nil {
		logger.Error("job submission failed", "tool", a.Name, "endpoint", endpoint, "error", err)
		return nil, coerce(err, tools.CodeProviderError)
	}
	logger.Info("job submitted", "tool", a.Name, "endpoint", endpoint, "request_id", sub.RequestID)

	tc.Progress(60, 100, "job queued")
	res, err := a.Hooks.ShapeResult(ctx, tc, endpoint, sub)
	if err != nil {
		return nil, coerce(err, tools.CodeProviderError)
	}

	tc.Progress(100, 100, "complete")
	return res, nil
}

// meter charges usage before the job runs. The caller is identified here,
// so a missing recorder or a failed record refuses the job rather than
// letting paid generation run unmetered.
func (a *Adapter) meter(ctx context.Context, tc *tools.Context, logger log.Logger) error {
	if a.Recorder == nil {
		return tools.NewError(tools.CodeMeteringError, "caller is identified but usage metering is not configured")
	}

	desc := a.Meter
	if desc == "" {
		desc = a.Name
	}
	ev := metering.Event{
		Subject:     tc.Identity.Subject,
		Verse:       tc.Identity.Verse,
		Plan:        tc.Identity.Plan,
		Tool:        a.Name,
		Description: desc,
		CallID:      tc.CallID,
	}
	if err := a.Recorder.Record(ctx, ev); err != nil {
		logger.Error("usage metering failed, refusing job", "tool", a.Name, "subject", tc.Identity.Subject, "error", err)
		return tools.NewError(tools.CodeMeteringError, "usage metering failed: %v", err)
	}
	return nil
}

// HandleResult is the standard submission envelope: the handle the caller
// needs for status and result lookups.
func HandleResult(endpoint string, sub *fal.QueueSubmission) *tools.Result {
	return tools.JSON(Handle{RequestID: sub.RequestID, Model: endpoint})
}

// coerce tags err with code unless it already carries one or is a
// cancellation the envelope layer maps itself.
func coerce(err error, code string) error {
	var te *tools.Error
	if errors.As(err, &te) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return tools.NewError(code, "%v", err)
}
