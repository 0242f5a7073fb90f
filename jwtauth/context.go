package jwtauth

import (
	"context"
	"time"
)

// Identity is the principal attached to a request after successful
// verification. It is scoped to a single request and never shared.
type Identity struct {
	Subject     string    // Username resolved from the credential store
	Authorities []string  // Granted authorities; empty when roles are not modelled
	ExpiresAt   time.Time // Expiry of the token that established the identity
}

// contextKey is an unexported type for context keys to prevent collisions
type contextKey string

const (
	identityContextKey  contextKey = "github.com/user/authgate/jwtauth:identity"
	requestIDContextKey contextKey = "github.com/user/authgate/jwtauth:request_id"
)

// WithIdentity stores the authenticated identity in the request context.
// The identity is immutable and should not be modified by downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// GetIdentity retrieves the authenticated identity from the request context.
// Returns nil, false if no identity has been established.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if identity == nil {
		return nil, false
	}
	return identity, ok
}

// MustGetIdentity retrieves the identity from context and panics if not present.
// Use only behind the gate, where an identity is guaranteed.
func MustGetIdentity(ctx context.Context) *Identity {
	identity, ok := GetIdentity(ctx)
	if !ok {
		panic("jwtauth: identity not found in context")
	}
	return identity
}

// WithRequestID stores a request ID in context for correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey).(string)
	return id, ok
}
