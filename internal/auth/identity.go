package auth

import "context"

// Identity is the authenticated caller extracted from a verified ID token.
type Identity struct {
	Subject string
	Email   string
}

type contextKey int

const (
	identityContextKey contextKey = iota
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext extracts the authenticated identity from the request context.
// Returns nil if no identity is present (unauthenticated request).
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey).(*Identity)
	return id
}
