// Package ddl defines a small, backend-agnostic model for SQL DDL and a
// builder that derives it from a schema.Contract.
//
// Backend packages (internal/storage/<kind>/ddl) reuse TableDef/ColumnDef
// and render their own dialect: identifier quoting, identity syntax and the
// create-if-absent guard.
package ddl

import (
	"fmt"
	"strings"

	"batchetl/internal/schema"
)

// FromContract builds the TableDef for c stored under table. mapType
// translates schema field types into the backend's SQL types; idType is the
// SQL type of the identity column.
//
// Required fields and key columns are NOT NULL. Optional fields with a
// numeric default get a matching SQL DEFAULT so rows inserted outside the
// pipeline follow the same null policy.
func FromContract(c schema.Contract, table string, mapType func(kind string) string, idType string) TableDef {
	if table == "" {
		table = c.Name
	}
	cols := make([]ColumnDef, 0, len(c.Fields)+1)
	if c.Identity != "" {
		cols = append(cols, ColumnDef{
			Name:       c.Identity,
			SQLType:    idType,
			PrimaryKey: true,
			Identity:   true,
		})
	}
	for _, f := range c.Fields {
		col := ColumnDef{
			Name:     f.Name,
			SQLType:  mapType(f.Type),
			Nullable: !f.Required,
		}
		switch d := f.Default.(type) {
		case float64, int, int64:
			col.Default = schema.Format(d)
		}
		cols = append(cols, col)
	}
	return TableDef{
		FQN:     table,
		Columns: cols,
		Unique:  append([]string(nil), c.Key...),
	}
}

// Validate checks the parts every renderer relies on.
func Validate(t TableDef) error {
	if strings.TrimSpace(t.FQN) == "" {
		return fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("ddl: at least one column is required")
	}
	names := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("ddl: column with empty name in table %s", t.FQN)
		}
		if strings.TrimSpace(c.SQLType) == "" {
			return fmt.Errorf("ddl: column %s missing SQLType", c.Name)
		}
		names[c.Name] = true
	}
	for _, u := range t.Unique {
		if !names[u] {
			return fmt.Errorf("ddl: unique column %s is not a column of %s", u, t.FQN)
		}
	}
	return nil
}
