// Package auth carries caller identity across transport boundaries.
//
// The HTTP transport authenticates bearer tokens and attaches the verified
// identity to the request context; tool execution reads it back for
// metering and storage namespacing. The stdio transport runs with a static
// identity from configuration or with none at all, in which case metering
// is skipped entirely.
package auth

import "context"

// Identity describes an authenticated caller.
type Identity struct {
	// Subject uniquely identifies the caller (token "sub" claim).
	Subject string `json:"subject"`

	// Verse is the caller's asset namespace. Stored assets land under
	// this segment of the storage path.
	Verse string `json:"verse,omitempty"`

	// Plan names the caller's subscription tier, recorded with usage
	// events. Informational only; no quota logic lives here.
	Plan string `json:"plan,omitempty"`
}

// identityKey is an unexported context key for zero-allocation type safety.
type identityKey struct{}

// IdentityFromContext retrieves the caller identity from context.
// Returns nil when the caller is unauthenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// ContextWithIdentity stores the caller identity in context. The transport
// layer injects it after verification; tool execution reads it back.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}
