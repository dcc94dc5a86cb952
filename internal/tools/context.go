package tools

import (
	"github.com/miragelabs/mirage/internal/auth"
)

// ProgressFunc reports intermediate progress during one invocation.
// progress counts toward total; message is free text for display. It must
// never be called after the invocation has returned its final result.
type ProgressFunc func(progress, total float64, message string)

// NopProgress discards progress events. It is the default the dispatcher
// installs when the caller supplied no progress token, so handler code
// never needs a nil check.
func NopProgress(progress, total float64, message string) {}

// Context is the per-invocation bundle handed to every handler.
// Cancellation rides the standard context.Context alongside it.
type Context struct {
	// Progress reports progress outward. Never nil after dispatch.
	Progress ProgressFunc

	// Identity describes the authenticated caller. Nil means an
	// unauthenticated deployment: metering-aware tools skip metering
	// instead of failing.
	Identity *auth.Identity

	// CallID correlates log lines and spans for one invocation.
	// Assigned by the dispatcher.
	CallID string
}

// NewContext returns a Context with the no-op progress default applied.
func NewContext() *Context {
	return &Context{Progress: NopProgress}
}

// normalize fills defaults on a caller-constructed Context.
func (c *Context) normalize() *Context {
	if c == nil {
		return NewContext()
	}
	if c.Progress == nil {
		c.Progress = NopProgress
	}
	return c
}
