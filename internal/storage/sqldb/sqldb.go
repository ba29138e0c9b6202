// Package sqldb is the database/sql implementation of storage.Repository
// shared by the sqlite, mysql and mssql backends. A backend supplies a
// Dialect with its quoting, placeholder and statement syntax; everything
// about transactions and row error reporting lives here.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"batchetl/internal/schema"
	"batchetl/internal/storage"
)

// Dialect renders backend-specific SQL.
type Dialect interface {
	// Name is the storage kind, used as an error prefix.
	Name() string
	QuoteIdent(id string) string
	QuoteFQN(fqn string) string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string
	// CreateTableSQL returns an idempotent create statement for c.
	CreateTableSQL(c schema.Contract, table string) (string, error)
	// ClearSQL empties table inside a transaction.
	ClearSQL(table string) string
	// UpsertSQL inserts one row or updates the non-key columns of the row
	// that already holds the same key.
	UpsertSQL(table string, cols, key []string) string
	// TopNSQL selects (label, SUM(value)) grouped by label, largest first,
	// ties by label, at most n rows.
	TopNSQL(table, label, value string, n int) string
}

// BulkInserter is implemented by dialects with a faster path than one
// INSERT per row for replace loads.
type BulkInserter interface {
	BulkInsert(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) (int64, error)
}

// IdentityResetter is implemented by dialects whose ClearSQL leaves the
// identity counter where it was. ResetIdentitySQL runs right after ClearSQL
// in the replace transaction so the reloaded rows are numbered from 1.
type IdentityResetter interface {
	ResetIdentitySQL(table string) string
}

// IdentityNumberer is implemented by dialects that cannot reset the counter
// inside a transaction. Replace loads then write the identity column
// explicitly as 1..n.
type IdentityNumberer interface {
	NumberIdentity()
}

// Repository implements storage.Repository over a *sql.DB.
type Repository struct {
	db    *sql.DB
	d     Dialect
	table string
}

var _ storage.Repository = (*Repository)(nil)

// New wraps an open database. The Repository owns db and closes it.
func New(db *sql.DB, d Dialect, table string) *Repository {
	return &Repository{db: db, d: d, table: table}
}

// Open opens driver with dsn and pings it with a bounded timeout so that a
// bad address fails here rather than at the first statement.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}
	return db, nil
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

// Close releases the connection pool.
func (r *Repository) Close() { _ = r.db.Close() }

// EnsureSchema creates the table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context, c schema.Contract) error {
	stmt, err := r.d.CreateTableSQL(c, r.table)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: create table %s: %w", r.d.Name(), r.table, err)
	}
	return nil
}

// Write persists rows in one transaction.
func (r *Repository) Write(ctx context.Context, c schema.Contract, rows [][]any, mode storage.Mode) (n int64, err error) {
	cols := c.Columns()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", r.d.Name(), err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	switch mode {
	case storage.Replace:
		if _, err = tx.ExecContext(ctx, r.d.ClearSQL(r.table)); err != nil {
			return 0, fmt.Errorf("%s: clear %s: %w", r.d.Name(), r.table, err)
		}
		if ir, ok := r.d.(IdentityResetter); ok && c.Identity != "" {
			if _, err = tx.ExecContext(ctx, ir.ResetIdentitySQL(r.table)); err != nil {
				return 0, fmt.Errorf("%s: reset identity %s: %w", r.d.Name(), r.table, err)
			}
		}
		insCols, insRows := cols, rows
		if _, ok := r.d.(IdentityNumberer); ok && c.Identity != "" {
			insCols, insRows = withIdentity(c.Identity, cols, rows)
		}
		if b, ok := r.d.(BulkInserter); ok {
			n, err = b.BulkInsert(ctx, tx, r.table, insCols, insRows)
		} else {
			n, err = execEach(ctx, tx, InsertSQL(r.d, r.table, insCols), insRows)
		}
	case storage.Append:
		n, err = execEach(ctx, tx, r.d.UpsertSQL(r.table, cols, c.Key), rows)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %s %s: %w", r.d.Name(), mode, r.table, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", r.d.Name(), err)
	}
	return n, nil
}

// TopN runs the ranking query.
func (r *Repository) TopN(ctx context.Context, label, value string, n int) ([]storage.Ranked, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%s: top n must be positive, got %d", r.d.Name(), n)
	}
	rows, err := r.db.QueryContext(ctx, r.d.TopNSQL(r.table, label, value, n))
	if err != nil {
		return nil, fmt.Errorf("%s: rank %s by %s: %w", r.d.Name(), label, value, err)
	}
	defer rows.Close()

	var out []storage.Ranked
	for rows.Next() {
		var lbl sql.NullString
		var v sql.NullFloat64
		if err := rows.Scan(&lbl, &v); err != nil {
			return nil, fmt.Errorf("%s: scan ranking: %w", r.d.Name(), err)
		}
		out = append(out, storage.Ranked{Label: lbl.String, Value: v.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: read ranking: %w", r.d.Name(), err)
	}
	return out, nil
}

// withIdentity prepends the identity column to cols and numbers rows 1..n.
func withIdentity(identity string, cols []string, rows [][]any) ([]string, [][]any) {
	outCols := append([]string{identity}, cols...)
	outRows := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, 0, len(row)+1)
		r = append(r, int64(i+1))
		outRows[i] = append(r, row...)
	}
	return outCols, outRows
}

func execEach(ctx context.Context, tx *sql.Tx, stmtSQL string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	var n int64
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return n, &storage.RowError{Index: i, Err: err}
		}
		n++
	}
	return n, nil
}

// InsertSQL renders a plain single-row INSERT for d.
func InsertSQL(d Dialect, table string, cols []string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteFQN(table), QuoteList(d, cols), Placeholders(d, len(cols)))
}

// QuoteList quotes and joins column names.
func QuoteList(d Dialect, cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = d.QuoteIdent(c)
	}
	return strings.Join(q, ", ")
}

// Placeholders renders n bind markers.
func Placeholders(d Dialect, n int) string {
	p := make([]string, n)
	for i := range p {
		p[i] = d.Placeholder(i + 1)
	}
	return strings.Join(p, ", ")
}

// NonKey returns cols minus key, order preserved.
func NonKey(cols, key []string) []string {
	isKey := make(map[string]bool, len(key))
	for _, k := range key {
		isKey[k] = true
	}
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !isKey[c] {
			out = append(out, c)
		}
	}
	return out
}

// LimitTopNSQL is the LIMIT-based ranking query shared by dialects that
// support it.
func LimitTopNSQL(d Dialect, table, label, value string, n int) string {
	l, v := d.QuoteIdent(label), d.QuoteIdent(value)
	return fmt.Sprintf(
		"SELECT %s, COALESCE(SUM(%s), 0) AS total FROM %s GROUP BY %s ORDER BY total DESC, %s ASC LIMIT %d",
		l, v, d.QuoteFQN(table), l, l, n)
}
