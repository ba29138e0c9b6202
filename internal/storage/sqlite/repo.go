// Package sqlite is the embedded store backend: a single database file
// driven through modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"batchetl/internal/schema"
	"batchetl/internal/storage/sqldb"
	sqliteddl "batchetl/internal/storage/sqlite/ddl"
)

// Dialect is the SQLite flavor of sqldb.Dialect.
type Dialect struct{}

var (
	_ sqldb.Dialect          = Dialect{}
	_ sqldb.IdentityResetter = Dialect{}
)

func (Dialect) Name() string               { return "sqlite" }
func (Dialect) QuoteIdent(id string) string { return sqliteddl.QuoteIdent(id) }
func (Dialect) QuoteFQN(fqn string) string  { return sqliteddl.QuoteFQN(fqn) }
func (Dialect) Placeholder(int) string      { return "?" }

func (Dialect) CreateTableSQL(c schema.Contract, table string) (string, error) {
	return sqliteddl.BuildCreateTableSQL(sqliteddl.FromContract(c, table))
}

// ClearSQL uses DELETE: SQLite has no TRUNCATE, and DELETE is transactional.
func (d Dialect) ClearSQL(table string) string {
	return "DELETE FROM " + d.QuoteFQN(table)
}

// ResetIdentitySQL forgets the AUTOINCREMENT high-water mark of table.
// sqlite_sequence keys on the bare table name; a schema prefix selects the
// attached database that holds it.
func (Dialect) ResetIdentitySQL(table string) string {
	name, prefix := strings.TrimSpace(table), ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		prefix = sqliteddl.QuoteIdent(name[:i]) + "."
		name = name[i+1:]
	}
	return fmt.Sprintf("DELETE FROM %ssqlite_sequence WHERE name = '%s'", prefix, strings.ReplaceAll(name, "'", "''"))
}

func (d Dialect) UpsertSQL(table string, cols, key []string) string {
	set := sqldb.NonKey(cols, key)
	conflict := fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING", sqldb.QuoteList(d, key))
	if len(set) > 0 {
		parts := make([]string, len(set))
		for i, c := range set {
			q := d.QuoteIdent(c)
			parts[i] = q + " = excluded." + q
		}
		conflict = fmt.Sprintf(" ON CONFLICT (%s) DO UPDATE SET %s", sqldb.QuoteList(d, key), strings.Join(parts, ", "))
	}
	return sqldb.InsertSQL(d, table, cols) + conflict
}

func (d Dialect) TopNSQL(table, label, value string, n int) string {
	return sqldb.LimitTopNSQL(d, table, label, value, n)
}

// NewRepository opens the database file at dsn (a path, ":memory:" or a
// "file:" URI), creating the parent directory of a plain path first.
func NewRepository(ctx context.Context, dsn, table string) (*sqldb.Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: database path must not be empty")
	}
	if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
			}
		}
	}

	db, err := sqldb.Open(ctx, "sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; a second pooled connection would see
	// SQLITE_BUSY while the load transaction is open.
	db.SetMaxOpenConns(1)
	if err := pragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqldb.New(db, Dialect{}, table), nil
}

func pragmas(ctx context.Context, db *sql.DB) error {
	for _, p := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}
