package ports

import (
	"context"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
)

// MetaStore is the host's raw per-item key/value metadata.
type MetaStore interface {
	GetMeta(ctx context.Context, itemID int64, key string) (value string, found bool, err error)
	UpdateMeta(ctx context.Context, itemID int64, key string, value string) error
	DeleteMeta(ctx context.Context, itemID int64, key string) error
}

type PolicyReader interface {
	GetPolicy(ctx context.Context, itemID int64) (types.AccessPolicy, error)
}

type PolicyStore interface {
	PolicyReader
	SetEnabled(ctx context.Context, itemID int64, value int64) error
	ClearEnabled(ctx context.Context, itemID int64) error
	SetAllowedRoles(ctx context.Context, itemID int64, roles []string) error
	ClearAllowedRoles(ctx context.Context, itemID int64) error
	SetAllowedUsers(ctx context.Context, itemID int64, userIDs []int64) error
	ClearAllowedUsers(ctx context.Context, itemID int64) error
}

type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID int64) ([]string, error)
}

type ItemStore interface {
	GetItem(ctx context.Context, itemID int64) (types.Item, bool, error)
}

type Directory interface {
	EditableRoles(ctx context.Context) ([]string, error)
	ListUsers(ctx context.Context) ([]types.User, error)
}

type CapabilityChecker interface {
	UserCan(ctx context.Context, userID int64, capability string, objectID int64) (bool, error)
}
