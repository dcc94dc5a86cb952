// Package asset defines the generation tool families: image, audio,
// cinematic, and skybox.
//
// Each family contributes three tools — generate_<family>,
// <family>_status, <family>_result — built on the shared lifecycle in
// the job package. The families differ only in their argument contracts,
// provider payloads, style routing, and result post-processing; the
// submit/status/result/wait choreography is identical everywhere.
package asset

import (
	"context"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/miragelabs/mirage/internal/catalog"
	"github.com/miragelabs/mirage/internal/fal"
	"github.com/miragelabs/mirage/internal/job"
	"github.com/miragelabs/mirage/internal/log"
	"github.com/miragelabs/mirage/internal/tools"
)

// Syncer is the provider's synchronous surface, used for artifact
// post-processing utilities.
type Syncer interface {
	Run(ctx context.Context, model string, payload, out any) error
	Download(ctx context.Context, url string) ([]byte, string, error)
}

var _ Syncer = (*fal.Client)(nil)

// Deps carries everything the families need. Recorder and Uploader are
// optional: a nil Recorder disables metering for unauthenticated
// deployments and a nil Uploader leaves artifacts on provider URLs.
type Deps struct {
	Queue    job.Queue
	Syncer   Syncer
	Recorder job.Recorder
	Uploader job.Uploader
	Styles   *catalog.Catalog
	Logger   log.Logger
}

// RegisterAll wires every family's tools plus the shared wait tool.
func RegisterAll(reg *tools.Registry, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = log.NewNop()
	}
	fin := &job.Finalizer{Queue: deps.Queue, Uploader: deps.Uploader, Logger: deps.Logger}

	var all []*tools.Tool
	all = append(all, imageTools(deps, fin)...)
	all = append(all, audioTools(deps, fin)...)
	all = append(all, cinematicTools(deps, fin)...)
	all = append(all, skyboxTools(deps, fin)...)
	all = append(all, job.NewWaitTool(deps.Logger))

	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// handleShape is the submission envelope every family uses: hand the
// caller the job handle it needs for status and result calls.
type handleShape struct{}

func (handleShape) ShapeResult(ctx context.Context, tc *tools.Context, endpoint string, sub *fal.QueueSubmission) (*tools.Result, error) {
	return job.HandleResult(endpoint, sub), nil
}

// handleSchema builds the input contract shared by status and result
// tools: the job handle fields plus any family extras.
func handleSchema(extra map[string]*jsonschema.Schema) *jsonschema.Schema {
	props := map[string]*jsonschema.Schema{
		"request_id": {
			Type:        "string",
			Description: "Job request id returned by the generate call.",
		},
		"model": {
			Type:        "string",
			Description: "Provider model path returned by the generate call.",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return &jsonschema.Schema{
		Type:       "object",
		Required:   []string{"request_id", "model"},
		Properties: props,
	}
}

// filenameSchema is the optional storage-name override on result tools.
func filenameSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Optional filename for the stored artifact. Generated when omitted.",
	}
}

// prefixed joins a style's prompt prefix with the caller prompt.
func prefixed(prefix, prompt string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return prompt
	}
	return prefix + " " + prompt
}

// styleSchema describes the style argument of a generate tool.
func styleSchema(family string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "string",
		Description: "Style name from list_styles for " + family + " assets. " +
			"Omit for the family default.",
	}
}
