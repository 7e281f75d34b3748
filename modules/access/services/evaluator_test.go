package services

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

type decisionCase struct {
	name   string
	item   int64
	cap    string
	actor  int64
	denied bool
}

func decisionCases() []decisionCase {
	var cases []decisionCase
	actors := []int64{userAdmin, userEditor, userEditorAuthor, userAuthor, userNoRoles, userAdminAuthor}
	for _, a := range actors {
		cases = append(cases,
			decisionCase{name: "no policy", item: itemNoPolicy, cap: capability.EditPost, actor: a},
			decisionCase{name: "disabled", item: itemDisabled, cap: capability.EditPost, actor: a},
			decisionCase{name: "enabled without roles", item: itemEnabledNoRoles, cap: capability.EditPost, actor: a},
			decisionCase{name: "other capability", item: itemEditorOnly, cap: "delete_post", actor: a},
		)
	}
	cases = append(cases,
		decisionCase{name: "admin override", item: itemEditorOnly, cap: capability.EditPost, actor: userAdmin},
		decisionCase{name: "admin with extra role", item: itemEditorOnly, cap: capability.EditPost, actor: userAdminAuthor},
		decisionCase{name: "editor allowed", item: itemEditorOnly, cap: capability.EditPost, actor: userEditor},
		decisionCase{name: "extra role denies", item: itemEditorOnly, cap: capability.EditPost, actor: userEditorAuthor, denied: true},
		decisionCase{name: "author denied", item: itemEditorOnly, cap: capability.EditPost, actor: userAuthor, denied: true},
		decisionCase{name: "multi role subset", item: itemEditorAuthor, cap: capability.EditPost, actor: userEditorAuthor},
		decisionCase{name: "zero roles permitted", item: itemEditorOnly, cap: capability.EditPost, actor: userNoRoles},
		decisionCase{name: "allowed users not consulted", item: itemUsersOnly, cap: capability.EditPost, actor: userAuthor, denied: true},
	)
	return cases
}

func TestEvaluator_Decisions(t *testing.T) {
	ev := NewEvaluator(evaluatorPolicies(), evaluatorRoles())
	base := []string{"edit_others_posts"}

	for _, tc := range decisionCases() {
		got, err := ev.Evaluate(context.Background(), tc.item, tc.cap, tc.actor, base)
		if err != nil {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if tc.denied {
			want := []string{"edit_others_posts", capability.DoNotAllow}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("%s (actor %d): got=%v want=%v", tc.name, tc.actor, got, want)
			}
			continue
		}
		if !reflect.DeepEqual(got, base) {
			t.Fatalf("%s (actor %d): got=%v want unchanged", tc.name, tc.actor, got)
		}
	}
}

func TestEvaluator_DoesNotMutateBase(t *testing.T) {
	ev := NewEvaluator(evaluatorPolicies(), evaluatorRoles())
	base := make([]string, 1, 8)
	base[0] = "edit_posts"

	got, err := ev.Evaluate(context.Background(), itemEditorOnly, capability.EditPost, userAuthor, base)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(base) != 1 || base[:2][1] != "" {
		t.Fatalf("base mutated: %v", base[:2])
	}
	if !slices.Contains(got, capability.DoNotAllow) {
		t.Fatalf("got=%v", got)
	}
}

func TestEvaluator_Idempotent(t *testing.T) {
	ev := NewEvaluator(evaluatorPolicies(), evaluatorRoles())
	ctx := context.Background()
	base := []string{"edit_posts"}

	first, err := ev.Evaluate(ctx, itemEditorOnly, capability.EditPost, userEditorAuthor, base)
	if err != nil {
		t.Fatal(err)
	}
	second, err := ev.Evaluate(ctx, itemEditorOnly, capability.EditPost, userEditorAuthor, base)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("first=%v second=%v", first, second)
	}
}

func TestEvaluator_SkipsRoleLookupWhenNotNeeded(t *testing.T) {
	roles := &countingRoles{rolesFixture: evaluatorRoles()}
	ev := NewEvaluator(evaluatorPolicies(), roles)
	ctx := context.Background()

	if _, err := ev.Evaluate(ctx, itemDisabled, capability.EditPost, userAuthor, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := ev.Evaluate(ctx, itemEditorOnly, "read_post", userAuthor, nil); err != nil {
		t.Fatal(err)
	}
	if roles.calls != 0 {
		t.Fatalf("calls=%d", roles.calls)
	}
}

func TestEvaluator_PropagatesUpstreamErrors(t *testing.T) {
	ctx := context.Background()

	ev := NewEvaluator(policyErr{err: errUpstream}, evaluatorRoles())
	if _, err := ev.Evaluate(ctx, itemEditorOnly, capability.EditPost, userEditor, nil); !errors.Is(err, errUpstream) {
		t.Fatalf("err=%v", err)
	}

	ev = NewEvaluator(evaluatorPolicies(), rolesErr{err: errUpstream})
	got, err := ev.Evaluate(ctx, itemEditorOnly, capability.EditPost, userEditor, []string{"edit_posts"})
	if !errors.Is(err, errUpstream) {
		t.Fatalf("err=%v", err)
	}
	if got != nil {
		t.Fatalf("got=%v, want no decision on error", got)
	}
}

func TestEvaluator_AsPipelineStage(t *testing.T) {
	ev := NewEvaluator(evaluatorPolicies(), evaluatorRoles())
	p := capability.NewPipeline(ev)

	got, err := p.Apply(context.Background(), []string{"edit_posts"}, capability.Request{
		Capability: capability.EditPost,
		UserID:     userEditorAuthor,
		ObjectID:   itemEditorOnly,
	})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !reflect.DeepEqual(got, []string{"edit_posts", capability.DoNotAllow}) {
		t.Fatalf("got=%v", got)
	}
}
