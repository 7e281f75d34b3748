package services

import (
	"context"
	"fmt"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

// Evaluator narrows edit_post grants using the item's custom access policy.
// It holds no state of its own and never writes.
type Evaluator struct {
	policies ports.PolicyReader
	roles    ports.RoleResolver
}

func NewEvaluator(policies ports.PolicyReader, roles ports.RoleResolver) *Evaluator {
	return &Evaluator{policies: policies, roles: roles}
}

// Evaluate returns base, or a copy of base with capability.DoNotAllow
// appended when the actor holds any role outside the item's allow-list.
func (e *Evaluator) Evaluate(ctx context.Context, itemID int64, capabilityName string, actorID int64, base []string) ([]string, error) {
	if capabilityName != capability.EditPost {
		return base, nil
	}

	policy, err := e.policies.GetPolicy(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("access: load policy for item %d: %w", itemID, err)
	}
	if !policy.Enabled {
		return base, nil
	}

	roles, err := e.roles.ResolveRoles(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("access: resolve roles for user %d: %w", actorID, err)
	}

	if !deniedByPolicy(policy, roles) {
		return base, nil
	}
	out := make([]string, len(base), len(base)+1)
	copy(out, base)
	return append(out, capability.DoNotAllow), nil
}

func (e *Evaluator) MapCapability(ctx context.Context, grants []string, req capability.Request) ([]string, error) {
	return e.Evaluate(ctx, req.ObjectID, req.Capability, req.UserID, grants)
}

// deniedByPolicy is the decision for an enabled policy. Holding a single role
// outside the allow-list denies, even when another held role is allowed.
func deniedByPolicy(policy types.AccessPolicy, roles []string) bool {
	if hasRole(roles, types.RoleAdministrator) {
		return false
	}
	if len(policy.AllowedRoles) == 0 {
		return false
	}
	allowed := make(map[string]struct{}, len(policy.AllowedRoles))
	for _, r := range policy.AllowedRoles {
		allowed[r] = struct{}{}
	}
	for _, r := range roles {
		if _, ok := allowed[r]; !ok {
			return true
		}
	}
	return false
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
