package job

import (
	"strings"

	"github.com/miragelabs/mirage/internal/log"
)

// State is the normalized lifecycle state of a job. Providers report it
// under assorted spellings; callers only ever see these five.
type State string

const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateError      State = "ERROR"
	StateAborted    State = "ABORTED"
)

// Complete reports whether the job finished successfully and its result
// can be fetched.
func (s State) Complete() bool { return s == StateCompleted }

// MapStatus normalizes a provider status string. Unrecognized strings map
// to PENDING with a warning so the caller keeps polling instead of
// failing its workflow.
func MapStatus(raw string, logger log.Logger) State {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_QUEUE", "QUEUED", "PENDING":
		return StatePending
	case "IN_PROGRESS", "PROCESSING", "RUNNING":
		return StateProcessing
	case "COMPLETED", "SUCCESS":
		return StateCompleted
	case "ERROR", "FAILED", "FAILURE":
		return StateError
	case "ABORTED", "CANCELLED", "CANCELED":
		return StateAborted
	default:
		logger.Warn("unrecognized provider status, treating as pending", "status", raw)
		return StatePending
	}
}
