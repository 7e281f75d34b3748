package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
)

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DirectoryPGStore reads items, users and role assignments owned by the host.
type DirectoryPGStore struct {
	q queryer
}

func NewDirectoryPGStore(q queryer) *DirectoryPGStore {
	return &DirectoryPGStore{q: q}
}

func (s *DirectoryPGStore) GetItem(ctx context.Context, itemID int64) (types.Item, bool, error) {
	var it types.Item
	err := s.q.QueryRow(ctx, `
SELECT id, item_type, status, author_id
FROM content.items
WHERE id = $1;
`, itemID).Scan(&it.ID, &it.Type, &it.Status, &it.AuthorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Item{}, false, nil
		}
		return types.Item{}, false, err
	}
	return it, true, nil
}

func (s *DirectoryPGStore) ResolveRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.q.Query(ctx, `
SELECT role_slug
FROM iam.user_roles
WHERE user_id = $1
ORDER BY ordinal ASC, role_slug ASC;
`, userID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func (s *DirectoryPGStore) EditableRoles(ctx context.Context) ([]string, error) {
	rows, err := s.q.Query(ctx, `
SELECT slug
FROM iam.roles
WHERE editable
ORDER BY position ASC, slug ASC;
`)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func (s *DirectoryPGStore) ListUsers(ctx context.Context) ([]types.User, error) {
	rows, err := s.q.Query(ctx, `
SELECT id, login
FROM iam.users
ORDER BY login ASC, id ASC;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.User
	for rows.Next() {
		var u types.User
		if err := rows.Scan(&u.ID, &u.Login); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
