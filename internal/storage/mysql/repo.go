// Package mysql is the MySQL/MariaDB store backend on database/sql with
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"batchetl/internal/schema"
	"batchetl/internal/storage"
	"batchetl/internal/storage/sqldb"
	myddl "batchetl/internal/storage/mysql/ddl"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN: user:pass@tcp(host:3306)/db
	Table string
}

// Dialect is the MySQL flavor of sqldb.Dialect.
type Dialect struct{}

var (
	_ sqldb.Dialect          = Dialect{}
	_ sqldb.IdentityNumberer = Dialect{}
)

func (Dialect) Name() string               { return "mysql" }
func (Dialect) QuoteIdent(id string) string { return myIdent(id) }
func (Dialect) QuoteFQN(fqn string) string  { return myFQN(fqn) }
func (Dialect) Placeholder(int) string      { return "?" }

func (Dialect) CreateTableSQL(c schema.Contract, table string) (string, error) {
	return myddl.BuildCreateTableSQL(myddl.FromContract(c, table))
}

// ClearSQL uses DELETE: TRUNCATE commits implicitly and would break the
// replace transaction.
func (Dialect) ClearSQL(table string) string {
	return "DELETE FROM " + myFQN(table)
}

// NumberIdentity makes replace loads write ids 1..n explicitly. Resetting
// AUTO_INCREMENT needs ALTER TABLE, which commits implicitly.
func (Dialect) NumberIdentity() {}

func (d Dialect) UpsertSQL(table string, cols, key []string) string {
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		set = append(set, fmt.Sprintf("%s = VALUES(%s)", myIdent(c), myIdent(c)))
	}
	set = filterConflictKeys(set, key)
	if len(set) == 0 {
		// Key-only tables: a no-op assignment keeps duplicates silent.
		set = []string{fmt.Sprintf("%s = %s", myIdent(key[0]), myIdent(key[0]))}
	}
	return sqldb.InsertSQL(d, table, cols) + " ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
}

func (d Dialect) TopNSQL(table, label, value string, n int) string {
	return sqldb.LimitTopNSQL(d, table, label, value, n)
}

// NewRepository opens and pings the server.
func NewRepository(ctx context.Context, cfg Config) (*sqldb.Repository, error) {
	if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mysql: parse dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "mysql", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)
	return sqldb.New(db, Dialect{}, cfg.Table), nil
}

// BuildDSN renders a driver DSN from the networked store fields.
func BuildDSN(c storage.Config) string {
	port := c.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(port))
	mc.DBName = c.Database
	if c.SSLMode != "" && c.SSLMode != "disable" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// myIdent backtick-quotes an identifier.
func myIdent(id string) string { return myddl.QuoteIdent(id) }

// myFQN quotes a possibly schema-qualified name.
func myFQN(fqn string) string { return myddl.QuoteFQN(fqn) }

// filterConflictKeys drops assignments whose target column is part of the
// conflict key.
func filterConflictKeys(setParts []string, keys []string) []string {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[myIdent(k)] = struct{}{}
		keySet[k] = struct{}{}
	}

	var result []string
	for _, part := range setParts {
		col := strings.Split(part, " = ")[0]
		if _, isKey := keySet[col]; !isKey {
			result = append(result, part)
		}
	}
	return result
}
