package services

import (
	"context"
	"errors"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
)

type policyFixture map[int64]types.AccessPolicy

func (p policyFixture) GetPolicy(_ context.Context, itemID int64) (types.AccessPolicy, error) {
	return p[itemID], nil
}

type rolesFixture map[int64][]string

func (r rolesFixture) ResolveRoles(_ context.Context, userID int64) ([]string, error) {
	return r[userID], nil
}

type policyErr struct{ err error }

func (p policyErr) GetPolicy(context.Context, int64) (types.AccessPolicy, error) {
	return types.AccessPolicy{}, p.err
}

type rolesErr struct{ err error }

func (r rolesErr) ResolveRoles(context.Context, int64) ([]string, error) { return nil, r.err }

type countingRoles struct {
	rolesFixture
	calls int
}

func (r *countingRoles) ResolveRoles(ctx context.Context, userID int64) ([]string, error) {
	r.calls++
	return r.rolesFixture.ResolveRoles(ctx, userID)
}

var errUpstream = errors.New("upstream unavailable")

const (
	itemNoPolicy int64 = iota + 100
	itemDisabled
	itemEnabledNoRoles
	itemEditorOnly
	itemEditorAuthor
	itemUsersOnly
)

const (
	userAdmin int64 = iota + 1
	userEditor
	userEditorAuthor
	userAuthor
	userNoRoles
	userAdminAuthor
)

func evaluatorPolicies() policyFixture {
	return policyFixture{
		itemDisabled:       {Enabled: false, AllowedRoles: []string{"editor"}},
		itemEnabledNoRoles: {Enabled: true},
		itemEditorOnly:     {Enabled: true, AllowedRoles: []string{"editor"}},
		itemEditorAuthor:   {Enabled: true, AllowedRoles: []string{"editor", "author"}},
		itemUsersOnly:      {Enabled: true, AllowedRoles: []string{"editor"}, AllowedUsers: []int64{userAuthor}},
	}
}

func evaluatorRoles() rolesFixture {
	return rolesFixture{
		userAdmin:        {"administrator"},
		userEditor:       {"editor"},
		userEditorAuthor: {"editor", "author"},
		userAuthor:       {"author"},
		userAdminAuthor:  {"author", "administrator"},
	}
}
