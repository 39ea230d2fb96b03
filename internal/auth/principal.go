package auth

import (
	"context"

	"github.com/badgepay/badgepay/internal/models"
)

// PrincipalKind tags the two credential kinds accepted by the API. A
// card-scoped token must never be readable as a human session, so the
// distinction is carried at the type level rather than in a claims map.
type PrincipalKind string

const (
	PrincipalCard  PrincipalKind = "card"
	PrincipalHuman PrincipalKind = "human"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Kind PrincipalKind

	// Set when Kind is PrincipalCard.
	CardID string

	// AccountID is the card owner's account for card principals, the
	// session subject for human principals.
	AccountID string

	// Role is only meaningful for human principals.
	Role string
}

// IsAdmin reports whether the principal is an admin human session. Card
// principals are never admins regardless of the owning account's role.
func (p Principal) IsAdmin() bool {
	return p.Kind == PrincipalHuman && p.Role == models.RoleAdmin
}

type contextKey struct{}

// WithPrincipal returns a context carrying the principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext extracts the principal set by the authentication middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
