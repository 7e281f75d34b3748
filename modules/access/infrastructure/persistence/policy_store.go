package persistence

import (
	"context"
	"fmt"
	"strconv"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
)

// PolicyStore reads and writes AccessPolicy fields as individual meta keys.
type PolicyStore struct {
	meta ports.MetaStore
}

func NewPolicyStore(meta ports.MetaStore) *PolicyStore {
	return &PolicyStore{meta: meta}
}

var _ ports.PolicyStore = (*PolicyStore)(nil)

func (s *PolicyStore) GetPolicy(ctx context.Context, itemID int64) (types.AccessPolicy, error) {
	var p types.AccessPolicy

	enabled, found, err := s.meta.GetMeta(ctx, itemID, types.MetaEnableCustomAccess)
	if err != nil {
		return types.AccessPolicy{}, err
	}
	p.Enabled = found && enabled != "" && enabled != "0"

	rawRoles, found, err := s.meta.GetMeta(ctx, itemID, types.MetaAllowedRoles)
	if err != nil {
		return types.AccessPolicy{}, err
	}
	if found && rawRoles != "" {
		p.AllowedRoles, err = decodeStringList(rawRoles)
		if err != nil {
			return types.AccessPolicy{}, fmt.Errorf("%s: %w", types.MetaAllowedRoles, err)
		}
	}

	rawUsers, found, err := s.meta.GetMeta(ctx, itemID, types.MetaAllowedUsers)
	if err != nil {
		return types.AccessPolicy{}, err
	}
	if found && rawUsers != "" {
		p.AllowedUsers, err = decodeIntList(rawUsers)
		if err != nil {
			return types.AccessPolicy{}, fmt.Errorf("%s: %w", types.MetaAllowedUsers, err)
		}
	}
	return p, nil
}

func (s *PolicyStore) SetEnabled(ctx context.Context, itemID int64, value int64) error {
	return s.meta.UpdateMeta(ctx, itemID, types.MetaEnableCustomAccess, strconv.FormatInt(value, 10))
}

func (s *PolicyStore) ClearEnabled(ctx context.Context, itemID int64) error {
	return s.meta.DeleteMeta(ctx, itemID, types.MetaEnableCustomAccess)
}

func (s *PolicyStore) SetAllowedRoles(ctx context.Context, itemID int64, roles []string) error {
	return s.meta.UpdateMeta(ctx, itemID, types.MetaAllowedRoles, encodeStringList(roles))
}

func (s *PolicyStore) ClearAllowedRoles(ctx context.Context, itemID int64) error {
	return s.meta.DeleteMeta(ctx, itemID, types.MetaAllowedRoles)
}

func (s *PolicyStore) SetAllowedUsers(ctx context.Context, itemID int64, userIDs []int64) error {
	return s.meta.UpdateMeta(ctx, itemID, types.MetaAllowedUsers, encodeIntList(userIDs))
}

func (s *PolicyStore) ClearAllowedUsers(ctx context.Context, itemID int64) error {
	return s.meta.DeleteMeta(ctx, itemID, types.MetaAllowedUsers)
}
