package capability

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcochiesi/editorial-access-manager/pkg/authz"
)

type rolesFixture map[int64][]string

func (r rolesFixture) ResolveRoles(_ context.Context, userID int64) ([]string, error) {
	return r[userID], nil
}

type stubAuthorizer struct {
	err error
}

func (a stubAuthorizer) Authorize(string, string, string, string) (bool, bool, error) {
	return false, true, a.err
}

func newTestAuthorizer(t *testing.T, mode authz.Mode) *authz.Authorizer {
	t.Helper()
	dir := t.TempDir()
	model := filepath.Join(dir, "model.conf")
	policy := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(model, []byte(`
[request_definition]
r = sub, dom, obj, act
[policy_definition]
p = sub, dom, obj, act
[policy_effect]
e = some(where (p.eft == allow))
[matchers]
m = r.sub == p.sub && r.dom == p.dom && (r.obj == p.obj || p.obj == "*") && r.act == p.act
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(policy, []byte(`p, role:administrator, global, *, grant
p, role:editor, global, edit_posts, grant
p, role:editor, global, edit_others_posts, grant
p, role:editor, global, edit_published_posts, grant
p, role:author, global, edit_posts, grant
p, role:author, global, edit_published_posts, grant
`), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := authz.NewAuthorizer(model, policy, mode)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	return a
}

func newTestChecker(t *testing.T, mode authz.Mode, stages ...Stage) *Checker {
	t.Helper()
	rs, err := ParseRulesYAML([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	mapper := NewMapper(rs, objectsFixture(
		Object{ID: 10, Type: "post", Status: "draft", AuthorID: 2},
		Object{ID: 11, Type: "post", Status: "publish", AuthorID: 3},
	))
	roles := rolesFixture{
		1: {"administrator"},
		2: {"author"},
		3: {"editor"},
		4: nil,
	}
	return NewChecker(mapper, NewPipeline(stages...), roles, newTestAuthorizer(t, mode))
}

func TestChecker_UserCan(t *testing.T) {
	c := newTestChecker(t, authz.ModeEnforce)

	cases := []struct {
		name   string
		userID int64
		item   int64
		want   bool
	}{
		{name: "author own draft", userID: 2, item: 10, want: true},
		{name: "author other item", userID: 2, item: 11, want: false},
		{name: "editor other draft", userID: 3, item: 10, want: true},
		{name: "administrator", userID: 1, item: 11, want: true},
		{name: "role-less", userID: 4, item: 10, want: false},
		{name: "missing item", userID: 1, item: 99, want: false},
	}
	for _, tc := range cases {
		got, err := c.UserCan(context.Background(), tc.userID, EditPost, tc.item)
		if err != nil {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got=%v want=%v", tc.name, got, tc.want)
		}
	}
}

func TestChecker_StageDenialWinsOverAnyMode(t *testing.T) {
	deny := StageFunc(func(_ context.Context, grants []string, _ Request) ([]string, error) {
		return append(grants, DoNotAllow), nil
	})
	for _, mode := range []authz.Mode{authz.ModeEnforce, authz.ModeShadow, authz.ModeDisabled} {
		c := newTestChecker(t, mode, deny)
		got, err := c.UserCan(context.Background(), 1, EditPost, 10)
		if err != nil {
			t.Fatalf("mode=%s err=%v", mode, err)
		}
		if got {
			t.Fatalf("mode=%s expected deny", mode)
		}
	}
}

func TestChecker_ShadowModeDoesNotEnforceRoleGrants(t *testing.T) {
	c := newTestChecker(t, authz.ModeShadow)
	got, err := c.UserCan(context.Background(), 2, EditPost, 11)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !got {
		t.Fatal("shadow mode should not enforce")
	}
}

func TestChecker_Grants(t *testing.T) {
	c := newTestChecker(t, authz.ModeEnforce)
	got, err := c.Grants(context.Background(), Request{Capability: EditPost, UserID: 3, ObjectID: 11})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 2 || got[0] != "edit_posts" || got[1] != "edit_published_posts" {
		t.Fatalf("got=%v", got)
	}
}

func TestChecker_AuthorizerError(t *testing.T) {
	rs, err := ParseRulesYAML([]byte(testRulesYAML))
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	boom := errors.New("enforcer failed")
	c := NewChecker(NewMapper(rs, objectsFixture(Object{ID: 10, AuthorID: 2})), nil, rolesFixture{2: {"author"}}, stubAuthorizer{err: boom})
	if _, err := c.UserCan(context.Background(), 2, EditPost, 10); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
