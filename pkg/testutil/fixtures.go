package testutil

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// Actor creates an actor with the given role and that role's default
// capability set
func (f *FixtureFactory) Actor(role string) *actor.Actor {
	n := f.next()
	return &actor.Actor{
		ID:          uuid.New().String(),
		FullName:    fmt.Sprintf("Test %s %d", role, n),
		Email:       fmt.Sprintf("%s%d@certportal.test", role, n),
		Role:        role,
		Permissions: permissions.ForRole(role),
	}
}

// Applicant creates an applicant actor
func (f *FixtureFactory) Applicant() *actor.Actor {
	return f.Actor(actor.RoleApplicant)
}

// Reviewer creates a reviewer actor
func (f *FixtureFactory) Reviewer() *actor.Actor {
	return f.Actor(actor.RoleReviewer)
}

// Registrar creates a registrar actor
func (f *FixtureFactory) Registrar() *actor.Actor {
	return f.Actor(actor.RoleRegistrar)
}

// Admin creates an admin actor
func (f *FixtureFactory) Admin() *actor.Actor {
	return f.Actor(actor.RoleAdmin)
}

// Context returns a context carrying the given actor, the way the auth
// middleware would attach it
func Context(a *actor.Actor) context.Context {
	return actor.WithActor(context.Background(), a)
}

// SystemContext returns a context carrying the system actor
func SystemContext() context.Context {
	return actor.WithActor(context.Background(), actor.SystemActor())
}
