// Package auth resolves the landlord principal behind an API request. The principal id is the
// owner key for apartments and partner tokens.
package auth

import (
	"context"
	"slices"
	"strings"
)

// RoleAdmin gates marketplace app configuration.
const RoleAdmin = "admin"

type ctxKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	IsAdmin       bool
	Roles         []string
}

// HasRole reports whether the principal carries role. The isAdmin claim implies RoleAdmin.
func (p Principal) HasRole(role string) bool {
	if role == RoleAdmin && p.IsAdmin {
		return true
	}
	return slices.Contains(p.Roles, role)
}

// WithPrincipal stores p on the context. Tests and background jobs use it to act as a landlord.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFrom returns the principal stored on ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	if !ok || strings.TrimSpace(p.ID) == "" {
		return Principal{}, false
	}
	return p, true
}

// PrincipalID returns the id of the principal stored on ctx.
func PrincipalID(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return "", false
	}
	return p.ID, true
}
