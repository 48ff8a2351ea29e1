// Package actor identifies the user or system performing an action.
//
// This package is used for:
// - Audit entries (who edited an application and why)
// - Capability checks on workflow transitions
// - Attributing document verifications and billing actions
package actor

import (
	"context"
	"fmt"
)

// Role names recognised by the registry.
const (
	RoleApplicant   = "applicant"
	RoleReviewer    = "reviewer"
	RoleRegistrar   = "registrar"
	RoleAdmin       = "admin"
	RoleSystemAdmin = "system-admin"
)

// ValidRoles returns all roles an actor may carry.
func ValidRoles() []string {
	return []string{RoleApplicant, RoleReviewer, RoleRegistrar, RoleAdmin, RoleSystemAdmin}
}

// IsValidRole reports whether name is a recognised role.
func IsValidRole(name string) bool {
	for _, r := range ValidRoles() {
		if r == name {
			return true
		}
	}
	return false
}

// Actor represents the entity performing an action in the system.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID string `json:"id"`

	// FullName is the actor's display name
	FullName string `json:"full_name"`

	// Email is the actor's email address
	Email string `json:"email"`

	// Role is one of applicant, reviewer, registrar, admin, system-admin
	Role string `json:"role"`

	// Permissions are the capability strings granted to the actor
	Permissions []string `json:"permissions,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.FullName, a.Email)
}

// IdentityProvider supplies the actor for the current request or job.
// The HTTP layer implements this from verified token claims; background
// jobs use SystemActor.
type IdentityProvider interface {
	CurrentActor(ctx context.Context) *Actor
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// MustFromContext retrieves the Actor from the context.
// Panics if no actor is present. Use only when actor is guaranteed to exist.
func MustFromContext(ctx context.Context) *Actor {
	a := FromContext(ctx)
	if a == nil {
		panic("actor not found in context")
	}
	return a
}

const systemActorID = "00000000-0000-0000-0000-000000000000"

// SystemActor returns an Actor representing the system itself.
// Use this for sweep jobs and other system-initiated operations.
func SystemActor() *Actor {
	return &Actor{
		ID:          systemActorID,
		FullName:    "System",
		Email:       "system@certportal.local",
		Role:        RoleSystemAdmin,
		Permissions: []string{"*"},
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == systemActorID
}

// ContextProvider is an IdentityProvider that reads the actor previously
// attached to the request context by the auth middleware.
type ContextProvider struct{}

// CurrentActor implements IdentityProvider.
func (ContextProvider) CurrentActor(ctx context.Context) *Actor {
	return FromContext(ctx)
}
