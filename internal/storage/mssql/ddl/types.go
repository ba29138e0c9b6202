// Package ddl contains MSSQL-specific helpers for generating DDL.
//
// It maps logical types from schema contracts into SQL Server types. The
// mapping is biased toward safe, widely-supported choices.
package ddl

import "strings"

// MapType maps a logical type string into a SQL Server column type.
//
// Text maps to NVARCHAR(255) rather than NVARCHAR(MAX) because MAX columns
// cannot take part in a UNIQUE constraint. Unknown or empty kinds are text.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "date":
		return "DATE"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME2"
	case "float", "double", "real":
		return "FLOAT"
	case "numeric", "decimal":
		return "DECIMAL(38, 10)"
	case "uuid":
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(255)"
	}
}
