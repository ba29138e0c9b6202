// Package ddl renders SQLite DDL from the generic ddl.TableDef model.
package ddl

import "strings"

// MapType maps a schema field type onto a SQLite column affinity.
//
//   - integer-ish types -> INTEGER
//   - float/double/real -> REAL
//   - everything else   -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	default:
		return "TEXT"
	}
}
