// Package postgres implements storage.Repository on PostgreSQL using pgx v5.
// Replace loads TRUNCATE and COPY inside one transaction; append loads send
// one INSERT ... ON CONFLICT DO UPDATE per row as a single pgx batch.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"batchetl/internal/schema"
	"batchetl/internal/storage"
	pgddl "batchetl/internal/storage/postgres/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // target table name, e.g. "public.sales"
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens a pool and pings it so an unreachable server fails
// here and not at the first statement.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: parse dsn: %w", err)
	}
	pcfg.MaxConns = 2
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping %s: %w", pcfg.ConnConfig.Host, err)
	}
	return &Repository{pool: pool, cfg: cfg}, nil
}

// BuildDSN renders a postgres:// URL from the networked store fields.
func BuildDSN(c storage.Config) string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	switch {
	case c.User != "" && c.Password != "":
		u.User = url.UserPassword(c.User, c.Password)
	case c.User != "":
		u.User = url.User(c.User)
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// EnsureSchema runs CREATE TABLE IF NOT EXISTS for c.
func (r *Repository) EnsureSchema(ctx context.Context, c schema.Contract) error {
	stmt, err := pgddl.BuildCreateTableSQL(pgddl.FromContract(c, r.cfg.Table))
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", r.cfg.Table, pgDetail(err))
	}
	return nil
}

// Write persists rows in one transaction.
func (r *Repository) Write(ctx context.Context, c schema.Contract, rows [][]any, mode storage.Mode) (n int64, err error) {
	cols := c.Columns()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	switch mode {
	case storage.Replace:
		n, err = r.replace(ctx, tx, cols, rows)
	case storage.Append:
		n, err = r.upsert(ctx, tx, cols, c.Key, rows)
	default:
		err = fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: %s %s: %w", mode, r.cfg.Table, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return n, nil
}

// truncateSQL empties table and restarts its identity sequence so a replace
// load numbers rows from 1 again.
func truncateSQL(table string) string {
	return "TRUNCATE TABLE " + pgddl.QuoteFQN(table) + " RESTART IDENTITY"
}

func (r *Repository) replace(ctx context.Context, tx pgx.Tx, cols []string, rows [][]any) (int64, error) {
	if _, err := tx.Exec(ctx, truncateSQL(r.cfg.Table)); err != nil {
		return 0, fmt.Errorf("truncate: %w", pgDetail(err))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, splitFQN(r.cfg.Table), cols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy: %w", pgDetail(err))
	}
	slog.Debug("postgres: copied rows", "table", r.cfg.Table, "rows", n)
	return n, nil
}

func (r *Repository) upsert(ctx context.Context, tx pgx.Tx, cols, key []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt := UpsertSQL(r.cfg.Table, cols, key)

	b := &pgx.Batch{}
	for _, row := range rows {
		b.Queue(stmt, row...)
	}
	br := tx.SendBatch(ctx, b)

	var n int64
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return n, &storage.RowError{Index: i, Err: pgDetail(err)}
		}
		n += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return n, pgDetail(err)
	}
	return n, nil
}

// TopN runs the ranking query.
func (r *Repository) TopN(ctx context.Context, label, value string, n int) ([]storage.Ranked, error) {
	if n <= 0 {
		return nil, fmt.Errorf("postgres: top n must be positive, got %d", n)
	}
	rows, err := r.pool.Query(ctx, TopNSQL(r.cfg.Table, label, value, n))
	if err != nil {
		return nil, fmt.Errorf("postgres: rank %s by %s: %w", label, value, pgDetail(err))
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (storage.Ranked, error) {
		var lbl *string
		var v float64
		if err := row.Scan(&lbl, &v); err != nil {
			return storage.Ranked{}, err
		}
		if lbl == nil {
			return storage.Ranked{Value: v}, nil
		}
		return storage.Ranked{Label: *lbl, Value: v}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: read ranking: %w", err)
	}
	return out, nil
}

// UpsertSQL renders an INSERT ... ON CONFLICT on key. Non-key columns take
// the incoming values.
func UpsertSQL(table string, cols, key []string) string {
	ph := make([]string, len(cols))
	for i := range cols {
		ph[i] = "$" + strconv.Itoa(i+1)
	}
	isKey := make(map[string]bool, len(key))
	for _, k := range key {
		isKey[k] = true
	}
	var set []string
	for _, c := range cols {
		if !isKey[c] {
			set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", pgddl.QuoteIdent(c), pgddl.QuoteIdent(c)))
		}
	}

	action := "DO NOTHING"
	if len(set) > 0 {
		action = "DO UPDATE SET " + strings.Join(set, ", ")
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		pgddl.QuoteFQN(table),
		strings.Join(mapIdent(cols), ", "),
		strings.Join(ph, ", "),
		strings.Join(mapIdent(key), ", "),
		action,
	)
}

// TopNSQL selects (label, SUM(value)) largest first, ties by label.
func TopNSQL(table, label, value string, n int) string {
	l, v := pgddl.QuoteIdent(label), pgddl.QuoteIdent(value)
	return fmt.Sprintf(
		"SELECT %s, COALESCE(SUM(%s), 0)::double precision AS total FROM %s GROUP BY %s ORDER BY total DESC, %s ASC LIMIT %d",
		l, v, pgddl.QuoteFQN(table), l, l, n)
}

// pgDetail folds the server's DETAIL line (e.g. the offending key of a
// unique violation) into the error text while keeping err in the chain.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}

// mapIdent maps a list of column names to their quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgddl.QuoteIdent(c)
	}
	return out
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
