package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
)

type pgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// MetaPGStore keeps item meta in content.item_meta. A key may have several
// rows; reads return the oldest, updates rewrite all of them.
type MetaPGStore struct {
	pool pgPool
}

func NewMetaPGStore(pool pgPool) ports.MetaStore {
	return &MetaPGStore{pool: pool}
}

func (s *MetaPGStore) GetMeta(ctx context.Context, itemID int64, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `
SELECT meta_value
FROM content.item_meta
WHERE item_id = $1 AND meta_key = $2
ORDER BY meta_id ASC
LIMIT 1;
`, itemID, key).Scan(&v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *MetaPGStore) UpdateMeta(ctx context.Context, itemID int64, key string, value string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	tag, err := tx.Exec(ctx, `
UPDATE content.item_meta
SET meta_value = $3
WHERE item_id = $1 AND meta_key = $2;
`, itemID, key, value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `
INSERT INTO content.item_meta (item_id, meta_key, meta_value)
VALUES ($1, $2, $3);
`, itemID, key, value); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *MetaPGStore) DeleteMeta(ctx context.Context, itemID int64, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM content.item_meta WHERE item_id = $1 AND meta_key = $2;`, itemID, key)
	return err
}
