// Package auth carries the authenticated identity through every
// operation and enforces per-row ownership rules in front of storage.
package auth

import (
	"context"

	"splitride/internal/core"
)

// Session is the authenticated caller. Every service operation receives
// one explicitly and checks it against row ownership before mutating.
type Session struct {
	UserID string
	Role   core.Role
}

type contextKey struct{}

// WithSession attaches a session to the context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SessionFromContext extracts the session placed by the HTTP middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

func (s Session) IsRider() bool {
	return s.Role == core.RoleRider
}

func (s Session) IsPartner() bool {
	return s.Role == core.RolePartner
}
