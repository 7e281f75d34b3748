package persistence

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type execCall struct {
	sql  string
	args []any
}

type stubPool struct {
	tx         *stubTx
	beginErr   error
	queryRowFn func(sql string, args ...any) pgx.Row
	queryFn    func(sql string, args ...any) (pgx.Rows, error)
	execErr    error
	execs      []execCall
}

func (p *stubPool) Begin(context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}

func (p *stubPool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if p.queryRowFn != nil {
		return p.queryRowFn(sql, args...)
	}
	return stubRow{err: errors.New("unexpected QueryRow")}
}

func (p *stubPool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if p.queryFn != nil {
		return p.queryFn(sql, args...)
	}
	return nil, errors.New("unexpected Query")
}

func (p *stubPool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, p.execErr
}

type stubTx struct {
	execTags  []string
	execErrAt int
	execErr   error
	execs     []execCall
	commitErr error
	committed bool
}

func (t *stubTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *stubTx) Commit(context.Context) error {
	t.committed = t.commitErr == nil
	return t.commitErr
}
func (t *stubTx) Rollback(context.Context) error { return nil }
func (t *stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *stubTx) Conn() *pgx.Conn { return nil }

func (t *stubTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	n := len(t.execs)
	if t.execErr != nil && t.execErrAt == n {
		return pgconn.CommandTag{}, t.execErr
	}
	if n <= len(t.execTags) {
		return pgconn.NewCommandTag(t.execTags[n-1]), nil
	}
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected Query")
}

func (t *stubTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return stubRow{err: errors.New("unexpected QueryRow")}
}

type stubRow struct {
	vals []any
	err  error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

type stubRows struct {
	vals      [][]any
	idx       int
	scanErrAt int
	scanN     int
	err       error
	closed    bool
}

func (r *stubRows) Close()                                       { r.closed = true }
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Next() bool {
	if r.idx >= len(r.vals) {
		return false
	}
	r.idx++
	return true
}
func (r *stubRows) Scan(dest ...any) error {
	r.scanN++
	if r.scanErrAt > 0 && r.scanN == r.scanErrAt {
		return errors.New("scan error")
	}
	return scanInto(r.vals[r.idx-1], dest)
}
func (r *stubRows) Values() ([]any, error) { return nil, nil }
func (r *stubRows) RawValues() [][]byte    { return nil }
func (r *stubRows) Conn() *pgx.Conn        { return nil }

func scanInto(row []any, dest []any) error {
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		case *int64:
			*d = row[i].(int64)
		case *bool:
			*d = row[i].(bool)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}
