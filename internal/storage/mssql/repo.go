// Package mssql implements the SQL Server store backend on database/sql with
// github.com/microsoft/go-mssqldb. Replace loads use the driver's bulk copy
// API inside the load transaction; append loads MERGE one row at a time.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"batchetl/internal/schema"
	"batchetl/internal/storage"
	msddl "batchetl/internal/storage/mssql/ddl"
	"batchetl/internal/storage/sqldb"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string
}

// Dialect is the T-SQL flavor of sqldb.Dialect.
type Dialect struct{}

var (
	_ sqldb.Dialect          = Dialect{}
	_ sqldb.BulkInserter     = Dialect{}
	_ sqldb.IdentityResetter = Dialect{}
)

func (Dialect) Name() string               { return "mssql" }
func (Dialect) QuoteIdent(id string) string { return msIdent(id) }
func (Dialect) QuoteFQN(fqn string) string  { return msFQN(fqn) }
func (Dialect) Placeholder(n int) string    { return "@p" + strconv.Itoa(n) }

func (Dialect) CreateTableSQL(c schema.Contract, table string) (string, error) {
	return msddl.BuildCreateTableSQL(msddl.FromContract(c, table))
}

// ClearSQL uses DELETE; TRUNCATE is refused on tables referenced by foreign
// keys and needs ALTER permission.
func (Dialect) ClearSQL(table string) string {
	return "DELETE FROM " + msFQN(table)
}

// ResetIdentitySQL reseeds the identity so the next row gets 1. Only a
// table whose identity has been used is reseeded: on a fresh table RESEED 0
// would hand out 0 first.
func (Dialect) ResetIdentitySQL(table string) string {
	lit := "N'" + strings.ReplaceAll(msFQN(table), "'", "''") + "'"
	return fmt.Sprintf("IF EXISTS (SELECT 1 FROM sys.identity_columns WHERE object_id = OBJECT_ID(%s) AND last_value IS NOT NULL) "+
		"DBCC CHECKIDENT (%s, RESEED, 0) WITH NO_INFOMSGS;", lit, lit)
}

// UpsertSQL renders a single-row MERGE on key. HOLDLOCK serializes
// concurrent upserts of the same key.
func (d Dialect) UpsertSQL(table string, cols, key []string) string {
	src := make([]string, len(cols))
	vals := make([]string, len(cols))
	set := make([]string, 0, len(cols))
	for i, c := range cols {
		src[i] = fmt.Sprintf("%s AS %s", d.Placeholder(i+1), msIdent(c))
		vals[i] = "S." + msIdent(c)
		set = append(set, fmt.Sprintf("%s = S.%s", msIdent(c), msIdent(c)))
	}
	set = filterConflictKeys(set, key)

	var sb strings.Builder
	fmt.Fprintf(&sb, "MERGE INTO %s WITH (HOLDLOCK) AS T USING (SELECT %s) AS S ON %s",
		msFQN(table), strings.Join(src, ", "), buildMatchCondition(key))
	if len(set) > 0 {
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET ")
		for i, s := range set {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("T.")
			sb.WriteString(s)
		}
	}
	fmt.Fprintf(&sb, " WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		strings.Join(mapIdent(cols), ", "), strings.Join(vals, ", "))
	return sb.String()
}

// TopNSQL uses TOP (n); T-SQL has no LIMIT.
func (Dialect) TopNSQL(table, label, value string, n int) string {
	l, v := msIdent(label), msIdent(value)
	return fmt.Sprintf(
		"SELECT TOP (%d) %s, COALESCE(SUM(%s), 0) AS total FROM %s GROUP BY %s ORDER BY total DESC, %s ASC",
		n, l, v, msFQN(table), l, l)
}

// BulkInsert streams rows through the TDS bulk copy protocol on tx.
func (Dialect) BulkInsert(ctx context.Context, tx *sql.Tx, table string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{CheckConstraints: true}, cols...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, &storage.RowError{Index: i, Err: err}
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// NewRepository validates the DSN, then opens and pings the server.
func NewRepository(ctx context.Context, cfg Config) (*sqldb.Repository, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqldb.New(db, Dialect{}, cfg.Table), nil
}

// BuildDSN renders a sqlserver:// URL from the networked store fields.
// SSLMode "disable" turns TLS off; any other non-empty value requires it.
func BuildDSN(c storage.Config) string {
	port := c.Port
	if port == 0 {
		port = 1433
	}
	q := url.Values{}
	if c.Database != "" {
		q.Set("database", c.Database)
	}
	switch c.SSLMode {
	case "":
	case "disable":
		q.Set("encrypt", "disable")
	default:
		q.Set("encrypt", "true")
	}
	u := url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	return u.String()
}

// buildMatchCondition builds the T=S equality join for the provided key columns.
func buildMatchCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
	}
	return strings.Join(conds, " AND ")
}

// filterConflictKeys drops SET parts whose target is a key column.
func filterConflictKeys(setParts []string, keys []string) []string {
	keySet := make(map[string]struct{}, len(keys)*2)
	for _, k := range keys {
		keySet[k] = struct{}{}
		keySet[msIdent(k)] = struct{}{}
	}
	var out []string
	for _, part := range setParts {
		col := strings.Split(part, " = ")[0]
		if _, isKey := keySet[col]; !isKey {
			out = append(out, part)
		}
	}
	return out
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.sales" to
// "[dbo].[sales]".
func msFQN(name string) string { return msddl.QuoteFQN(name) }

// mapIdent maps a list of column names to their bracket-quoted forms.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
