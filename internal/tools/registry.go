package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/miragelabs/mirage/internal/log"
)

var (
	// ErrNilTool indicates registration of a nil tool.
	ErrNilTool = errors.New("tool is nil")

	// ErrUnnamedTool indicates registration of a tool without a name.
	ErrUnnamedTool = errors.New("tool has no name")

	// ErrNilHandler indicates registration of a tool without a handler.
	ErrNilHandler = errors.New("tool has no handler")
)

// Registry owns the name→tool mapping and dispatches invocations.
//
// All registration happens during startup, before the server accepts
// invocations; afterwards the registry is read-only and therefore safe for
// concurrent dispatch without locking. Nothing registers or unregisters at
// runtime.
type Registry struct {
	logger log.Logger
	tracer trace.Tracer

	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger log.Logger) *Registry {
	return &Registry{
		logger: logger,
		tracer: otel.Tracer("mirage/tools"),
		tools:  make(map[string]*Tool),
		order:  make([]string, 0, 32),
	}
}

// Register inserts t, replacing any tool already registered under the same
// name. Replacement is legal (last write wins) but logged as a warning,
// since duplicate names at startup usually mean a wiring mistake.
func (r *Registry) Register(t *Tool) error {
	switch {
	case t == nil:
		return ErrNilTool
	case t.Name == "":
		return ErrUnnamedTool
	case t.Handler == nil:
		return fmt.Errorf("%w: %q", ErrNilHandler, t.Name)
	}

	if _, exists := r.tools[t.Name]; exists {
		r.logger.Warn("replacing registered tool", "tool", t.Name)
	} else {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// List returns descriptors for all registered tools in registration order.
// The executable side of each tool stays private to the registry.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}

// Get returns the named tool, or nil when absent. Lookup never fails
// harder than that; unknown names become error envelopes at dispatch.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Execute dispatches one invocation and always returns exactly one
// envelope. Unknown names, handler errors, and handler panics all come
// back as error envelopes; nothing propagates and nothing is delivered
// twice. Cancellation rides ctx; progress rides tc.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, tc *Context) (res *Result) {
	tc = tc.normalize()
	if tc.CallID == "" {
		tc.CallID = uuid.NewString()
	}
	if args == nil {
		args = map[string]any{}
	}

	logger := r.logger.With("tool", name, "call_id", tc.CallID)

	ctx, span := r.tracer.Start(ctx, "tools.execute",
		trace.WithAttributes(
			attribute.String("tool.name", name),
			attribute.String("call.id", tc.CallID),
		))
	defer span.End()

	// A panicking handler is a programming defect, but the caller still
	// gets its one envelope.
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool panicked", "panic", rec)
			span.SetStatus(otelcodes.Error, "panic")
			res = Errorf(CodeInternal, "tool %q failed unexpectedly", name)
		}
		if res != nil && len(res.Content) == 0 {
			res.Content = []Block{TextBlock("ok")}
		}
		if res != nil && res.IsError {
			span.SetStatus(otelcodes.Error, "tool error")
		}
	}()

	tool := r.Get(name)
	if tool == nil {
		logger.Warn("unknown tool requested")
		return Errorf(CodeNotFound, "unknown tool %q", name)
	}

	result, err := tool.Handler(ctx, tc, args)
	if err != nil {
		logger.Warn("tool returned error", "error", err)
		return FromError(err)
	}
	if result == nil {
		logger.Error("tool returned neither result nor error")
		return Errorf(CodeInternal, "tool %q produced no result", name)
	}
	return result
}
