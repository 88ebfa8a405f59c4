package auth

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrForbidden    = errors.New("forbidden")
)

// Scopes understood by the plugin host API.
const (
	ScopeExecute   = "plugins:execute"
	ScopeReadAudit = "audit:read"
)

// Identity is the authenticated caller of the host API.
type Identity struct {
	Subject      string   `json:"sub"`
	Organization string   `json:"org,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
}

// HasScope reports whether the identity was granted scope.
func (i *Identity) HasScope(scope string) bool {
	return i != nil && slices.Contains(i.Scopes, scope)
}

type identityContextKey struct{}

// WithIdentity returns a context carrying identity.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// GetIdentity retrieves the authenticated identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}

// SubjectFromContext returns the authenticated subject, or "".
func SubjectFromContext(ctx context.Context) string {
	if identity := GetIdentity(ctx); identity != nil {
		return identity.Subject
	}
	return ""
}
