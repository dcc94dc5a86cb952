package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

const (
	minWaitSeconds     = 1
	maxWaitSeconds     = 120
	defaultWaitSeconds = 30
)

// NewWaitTool builds the wait capability shared by every job family. It
// holds the call open locally so the agent can pace its status polling;
// no network I/O happens here. The requested duration is clamped to
// [1,120] seconds and cancellation is checked once per second.
func NewWaitTool(logger log.Logger) *tools.Tool {
	return newWaitTool(logger, time.Second)
}

// newWaitTool exists so tests can shrink the tick.
func newWaitTool(logger log.Logger, tick time.Duration) *tools.Tool {
	return &tools.Tool{
		Name: "wait",
		Description: "Wait for a number of seconds before checking job status again. " +
			"Generation jobs take from seconds to minutes; after submitting, call wait, " +
			"then the status tool, and repeat until the job completes.",
		InputSchema: waitSchema(),
		Tags:        []string{"utility"},
		Handler: func(ctx context.Context, tc *tools.Context, args map[string]any) (*tools.Result, error) {
			in := struct {
				Seconds int `json:"seconds"`
			}{Seconds: defaultWaitSeconds}
			if err := DecodeArgs(args, &in); err != nil {
				return nil, tools.NewError(tools.CodeInvalidArgument, "%v", err)
			}

			seconds := clampSeconds(in.Seconds)
			if seconds != in.Seconds {
				logger.Debug("wait duration clamped", "requested", in.Seconds, "actual", seconds)
			}

			ticker := time.NewTicker(tick)
			defer ticker.Stop()
			for i := 1; i <= seconds; i++ {
				select {
				case <-ctx.Done():
					return nil, tools.NewError(tools.CodeAborted, "operation was aborted")
				case <-ticker.C:
					tc.Progress(float64(i), float64(seconds), fmt.Sprintf("waited %d of %d seconds", i, seconds))
				}
			}
			return tools.Textf("waited %d seconds; check the job status now", seconds), nil
		},
	}
}

func waitSchema() *jsonschema.Schema {
	minimum := float64(minWaitSeconds)
	maximum := float64(maxWaitSeconds)
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"seconds": {
				Type:        "integer",
				Description: "How many seconds to wait, between 1 and 120.",
				Default:     json.RawMessage(`30`),
				Minimum:     &minimum,
				Maximum:     &maximum,
			},
		},
	}
}

func clampSeconds(s int) int {
	if s < minWaitSeconds {
		return minWaitSeconds
	}
	if s > maxWaitSeconds {
		return maxWaitSeconds
	}
	return s
}
