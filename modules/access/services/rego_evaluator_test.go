package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

func TestRegoEvaluator_MatchesEvaluator(t *testing.T) {
	ctx := context.Background()
	native := NewEvaluator(evaluatorPolicies(), evaluatorRoles())
	rg, err := NewRegoEvaluator(ctx, evaluatorPolicies(), evaluatorRoles())
	if err != nil {
		t.Fatalf("err=%v", err)
	}

	base := []string{"edit_posts"}
	for _, tc := range decisionCases() {
		want, err := native.Evaluate(ctx, tc.item, tc.cap, tc.actor, base)
		if err != nil {
			t.Fatalf("%s: native err=%v", tc.name, err)
		}
		got, err := rg.Evaluate(ctx, tc.item, tc.cap, tc.actor, base)
		if err != nil {
			t.Fatalf("%s: rego err=%v", tc.name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s (actor %d): rego=%v native=%v", tc.name, tc.actor, got, want)
		}
	}
}

func TestRegoEvaluator_PropagatesUpstreamErrors(t *testing.T) {
	ctx := context.Background()
	rg, err := NewRegoEvaluator(ctx, evaluatorPolicies(), rolesErr{err: errUpstream})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rg.Evaluate(ctx, itemEditorOnly, capability.EditPost, userEditor, nil); !errors.Is(err, errUpstream) {
		t.Fatalf("err=%v", err)
	}

	rg, err = NewRegoEvaluator(ctx, policyErr{err: errUpstream}, evaluatorRoles())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rg.MapCapability(ctx, nil, capability.Request{Capability: capability.EditPost, UserID: userEditor, ObjectID: itemEditorOnly}); !errors.Is(err, errUpstream) {
		t.Fatalf("err=%v", err)
	}
}
