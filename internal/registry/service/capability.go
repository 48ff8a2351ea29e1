package service

import (
	"context"

	"github.com/certflow/certportal-backend/pkg/actor"
	"github.com/certflow/certportal-backend/pkg/errors"
	"github.com/certflow/certportal-backend/pkg/permissions"
)

// requireCapability resolves the acting user from the context and checks the
// required capability. Every service operation that mutates state calls this
// exactly once at its boundary.
func requireCapability(ctx context.Context, capability string) (*actor.Actor, error) {
	act := actor.FromContext(ctx)
	if act == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if !permissions.HasPermission(act.Permissions, capability) {
		return nil, errors.Forbidden("missing capability: " + capability)
	}
	return act, nil
}
