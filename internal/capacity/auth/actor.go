package auth

import (
	"context"

	"github.com/google/uuid"
)

// Role is what an authenticated caller may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleSupplier Role = "supplier"
	// RoleCompany is a supplier company's own user; it submits capacity for
	// its company only.
	RoleCompany Role = "company"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHR, RoleSupplier, RoleCompany:
		return true
	}
	return false
}

// Actor is the authenticated caller of a request.
type Actor struct {
	ID        string
	Role      Role
	CompanyID uuid.UUID
	Email     string
}

// CanActFor reports whether the actor may submit or edit data of companyID.
func (a *Actor) CanActFor(companyID uuid.UUID) bool {
	if a.Role != RoleCompany {
		return true
	}
	return a.CompanyID != uuid.Nil && a.CompanyID == companyID
}

// IsAdmin reports whether the actor may make elevated decisions.
func (a *Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type contextKey string

const actorContextKey contextKey = "actor"

func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, a)
}

func ActorFromContext(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(actorContextKey).(*Actor)
	return a, ok && a != nil
}
