package persistence

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
)

// MemoryStore is an in-process content store: item meta, items, users and
// their roles. Used when no database is configured and in tests.
type MemoryStore struct {
	mu       sync.Mutex
	meta     map[int64]map[string]string
	items    map[int64]types.Item
	users    map[int64]types.User
	roles    map[int64][]string
	editable []string
}

var (
	_ ports.MetaStore    = (*MemoryStore)(nil)
	_ ports.ItemStore    = (*MemoryStore)(nil)
	_ ports.RoleResolver = (*MemoryStore)(nil)
	_ ports.Directory    = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meta:  map[int64]map[string]string{},
		items: map[int64]types.Item{},
		users: map[int64]types.User{},
		roles: map[int64][]string{},
	}
}

func (s *MemoryStore) GetMeta(_ context.Context, itemID int64, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.meta[itemID][key]
	return v, ok, nil
}

func (s *MemoryStore) UpdateMeta(_ context.Context, itemID int64, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta[itemID] == nil {
		s.meta[itemID] = map[string]string{}
	}
	s.meta[itemID][key] = value
	return nil
}

func (s *MemoryStore) DeleteMeta(_ context.Context, itemID int64, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.meta[itemID], key)
	return nil
}

func (s *MemoryStore) PutItem(item types.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = item
}

func (s *MemoryStore) GetItem(_ context.Context, itemID int64) (types.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[itemID]
	return it, ok, nil
}

func (s *MemoryStore) PutUser(user types.User, roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.ID] = user
	s.roles[user.ID] = slices.Clone(roles)
}

func (s *MemoryStore) SetEditableRoles(roles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.editable = slices.Clone(roles)
}

func (s *MemoryStore) ResolveRoles(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.roles[userID]), nil
}

func (s *MemoryStore) EditableRoles(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.editable), nil
}

func (s *MemoryStore) ListUsers(context.Context) ([]types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Login != out[j].Login {
			return out[i].Login < out[j].Login
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
