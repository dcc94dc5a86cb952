package job

import (
	"strings"

	"github.com/miragelabs/mirage/internal/tools"
)

// Handle identifies a submitted job. Status and result lookups are scoped
// per provider endpoint, so the model path travels with the request id;
// the id alone cannot be resolved.
type Handle struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
}

// HandleFromArgs reads a job handle out of raw call arguments.
func HandleFromArgs(args map[string]any) (Handle, error) {
	var h Handle
	if err := DecodeArgs(args, &h); err != nil {
		return Handle{}, tools.NewError(tools.CodeInvalidArgument, "invalid job handle: %v", err)
	}
	h.RequestID = strings.TrimSpace(h.RequestID)
	h.Model = strings.TrimSpace(h.Model)
	if h.RequestID == "" {
		return Handle{}, tools.NewError(tools.CodeInvalidArgument, "request_id is required; pass the value returned by the generate call")
	}
	if h.Model == "" {
		return Handle{}, tools.NewError(tools.CodeInvalidArgument, "model is required; pass the value returned by the generate call")
	}
	return h, nil
}
