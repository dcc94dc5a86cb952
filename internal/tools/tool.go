// Package tools provides capability registration and dispatch for the MCP
// server.
//
// A Tool bundles a descriptor (name, description, introspectable input
// schema, category tags) with its handler. The Registry owns the name→tool
// mapping and is the single dispatch chokepoint: Execute resolves a tool by
// name, fills in execution-context defaults, recovers panics, and converts
// every failure into the uniform result envelope. Handlers never throw past
// their boundary; callers always receive exactly one Result.
package tools

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// HandlerFunc executes one capability invocation. args is never nil; the
// dispatcher substitutes an empty map for missing arguments. Returning an
// error is equivalent to returning an error envelope: the dispatcher
// converts it and never lets it propagate.
type HandlerFunc func(ctx context.Context, tc *Context, args map[string]any) (*Result, error)

// Tool is one invocable capability.
type Tool struct {
	// Name is the unique registry key, stable across calls.
	Name string

	// Description is free-text usage documentation shown to the invoking
	// agent. May embed workflow instructions ("submit, then wait, then
	// poll, then fetch").
	Description string

	// InputSchema describes accepted arguments. It is exposed verbatim
	// through capability listing, so it must be introspectable rather
	// than a validation-only artifact.
	InputSchema *jsonschema.Schema

	// Tags classify the tool for filtering and discovery. No behavioral
	// weight.
	Tags []string

	// Handler performs the invocation.
	Handler HandlerFunc
}

// Descriptor is the caller-visible part of a Tool. Listing returns
// descriptors only; the executable never leaves the registry.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
}

// Descriptor returns the tool's caller-visible descriptor.
func (t *Tool) Descriptor() Descriptor {
	tags := make([]string, len(t.Tags))
	copy(tags, t.Tags)
	return Descriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Tags:        tags,
	}
}
