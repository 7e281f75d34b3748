package services

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

const editAccessRegoQuery = "data.eam.edit.deny"

const editAccessRego = `package eam.edit

default deny := false

deny if {
	input.enabled
	not "administrator" in input.roles
	count(input.allowed_roles) > 0
	some role in input.roles
	not role in input.allowed_roles
}
`

// RegoEvaluator makes the same decision as Evaluator with the rule expressed
// in Rego. The prepared query is safe for concurrent use.
type RegoEvaluator struct {
	policies ports.PolicyReader
	roles    ports.RoleResolver
	query    rego.PreparedEvalQuery
}

func NewRegoEvaluator(ctx context.Context, policies ports.PolicyReader, roles ports.RoleResolver) (*RegoEvaluator, error) {
	pq, err := rego.New(
		rego.Query(editAccessRegoQuery),
		rego.Module("eam_edit.rego", editAccessRego),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("access: prepare rego: %w", err)
	}
	return &RegoEvaluator{policies: policies, roles: roles, query: pq}, nil
}

func (e *RegoEvaluator) Evaluate(ctx context.Context, itemID int64, capabilityName string, actorID int64, base []string) ([]string, error) {
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

	rs, err := e.query.Eval(ctx, rego.EvalInput(regoInput(policy, roles)))
	if err != nil {
		return nil, fmt.Errorf("access: eval rego: %w", err)
	}
	if !rs.Allowed() {
		return base, nil
	}
	out := make([]string, len(base), len(base)+1)
	copy(out, base)
	return append(out, capability.DoNotAllow), nil
}

func (e *RegoEvaluator) MapCapability(ctx context.Context, grants []string, req capability.Request) ([]string, error) {
	return e.Evaluate(ctx, req.ObjectID, req.Capability, req.UserID, grants)
}

func regoInput(policy types.AccessPolicy, roles []string) map[string]any {
	return map[string]any{
		"enabled":       policy.Enabled,
		"roles":         stringsToAny(roles),
		"allowed_roles": stringsToAny(policy.AllowedRoles),
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, 0, len(in))
	for _, s := range in {
		out = append(out, s)
	}
	return out
}
