// Package storage defines the persistence contract every store backend
// implements, a registry that lets callers open a backend by kind, and the
// Loader that moves a normalized artifact into a store.
//
// Backends live in subpackages and register themselves in init; import
// internal/storage/all to link every backend.
package storage

import (
	"context"
	"fmt"
	"strings"

	"batchetl/internal/schema"
)

// Mode selects the persistence strategy of a load.
type Mode string

const (
	// Replace empties the table and writes the artifact, in one transaction.
	Replace Mode = "replace"
	// Append upserts the artifact on the contract's natural key.
	Append Mode = "append"
)

// ParseMode accepts "replace" or "append" in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case Replace, Append:
		return m, nil
	}
	return "", fmt.Errorf("storage: unknown load mode %q (want replace or append)", s)
}

// Config selects and addresses a store.
//
// A non-empty DSN is passed to the driver as-is. Otherwise each backend
// builds its connection string from Path (sqlite) or the networked fields.
type Config struct {
	// Kind is the registered backend name: sqlite, postgres, mysql, mssql.
	Kind string
	DSN  string
	// Table is the target table, optionally schema-qualified.
	Table string

	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Redacted returns a copy of c safe to log.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "xxxxx"
	}
	if c.DSN != "" {
		c.DSN = "xxxxx"
	}
	return c
}

// Ranked is one entry of a ranking query.
type Ranked struct {
	Label string
	Value float64
}

// Repository is the capability set every backend provides.
//
// Rows passed to Write are aligned with c.Columns() and already typed
// (string, float64, int64 or nil). Write runs in a single transaction: it
// either persists all rows or none.
type Repository interface {
	EnsureSchema(ctx context.Context, c schema.Contract) error
	Write(ctx context.Context, c schema.Contract, rows [][]any, mode Mode) (int64, error)
	TopN(ctx context.Context, label, value string, n int) ([]Ranked, error)
	Close()
}

// RowError reports the 0-based index of the row that made Write fail.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Index, e.Err) }
func (e *RowError) Unwrap() error { return e.Err }
