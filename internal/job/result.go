package job

import (
	"context"

	"github.com/miragelabs/mirage/internal/tools"
)

// NewResultHandler returns a handler that finalizes a completed job and
// reports the artifact URL. An optional filename argument overrides the
// generated object name.
func NewResultHandler(finalizer *Finalizer, opts FinalizeOptions) tools.HandlerFunc {
	return func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
		handle, err := HandleFromArgs(args)
		if err != nil {
			return nil, err
		}

		var extra struct {
			Filename string `json:"filename"`
		}
		if err := DecodeArgs(args, &extra); err != nil {
			return nil, tools.NewError(tools.CodeInvalidArgument, "%v", err)
		}
		callOpts := opts
		if extra.Filename != "" {
			callOpts.Filename = extra.Filename
		}

		tc.Progress(10, 100, "fetching result for "+handle.RequestID)
		url, err := finalizer.Finalize(ctx, tc, handle, callOpts)
		if err != nil {
			return nil, err
		}

		tc.Progress(100, 100, "complete")
		return tools.JSON(map[string]any{
			"request_id": handle.RequestID,
			"model":      handle.Model,
			"status":     StateCompleted,
			"url":        url,
		}), nil
	}
}
