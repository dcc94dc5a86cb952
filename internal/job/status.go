package job

import (
	"context"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// NewStatusHandler returns a handler reporting the lifecycle state of a
// submitted job. One non-blocking provider query per call; pacing is the
// caller's job via the wait tool.
func NewStatusHandler(queue Queue, logger log.Logger) tools.HandlerFunc {
	return func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
		handle, err := HandleFromArgs(args)
		if err != nil {
			return nil, err
		}

		st, err := queue.Status(ctx, handle.Model, handle.RequestID)
		if err != nil {
			logger.Error("status query failed", "model", handle.Model, "request_id", handle.RequestID, "error", err)
			return nil, coerce(err, tools.CodeProviderError)
		}

		state := MapStatus(st.Status, logger)
		payload := map[string]any{
			"request_id":  handle.RequestID,
			"model":       handle.Model,
			"status":      state,
			"is_complete": state.Complete(),
		}
		if st.QueuePosition != nil {
			payload["queue_position"] = *st.QueuePosition
		}
		if !state.Complete() {
			payload["hint"] = "job is not finished; call the wait tool, then check status again"
		}
		return tools.JSON(payload), nil
	}
}
