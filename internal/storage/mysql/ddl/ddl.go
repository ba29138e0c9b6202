// Package ddl renders MySQL DDL for a generic ddl.TableDef.
package ddl

import (
	"fmt"
	"strings"

	gddl "batchetl/internal/ddl"
	"batchetl/internal/schema"
)

// MapType maps logical types to MySQL column types. Text is VARCHAR(255) so
// it can take part in the UNIQUE natural key without a prefix length.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "float", "double", "real", "numeric":
		return "DOUBLE"
	case "bool", "boolean":
		return "TINYINT(1)"
	case "date":
		return "DATE"
	case "timestamp", "datetime":
		return "DATETIME(6)"
	default:
		return "VARCHAR(255)"
	}
}

// FromContract builds the MySQL TableDef for c.
func FromContract(c schema.Contract, table string) gddl.TableDef {
	return gddl.FromContract(c, table, MapType, "BIGINT")
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement with
// backtick quoting, AUTO_INCREMENT identity and a named UNIQUE KEY.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	if err := gddl.Validate(t); err != nil {
		return "", fmt.Errorf("mysql %w", err)
	}

	cols := make([]string, 0, len(t.Columns)+2)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)

		var sb strings.Builder
		sb.WriteString(QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimSpace(c.SQLType))
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if c.Identity {
			sb.WriteString(" AUTO_INCREMENT")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	if len(t.Unique) > 0 {
		u := make([]string, len(t.Unique))
		for i, c := range t.Unique {
			u[i] = QuoteIdent(c)
		}
		cols = append(cols, fmt.Sprintf("UNIQUE KEY %s (%s)",
			QuoteIdent("uq_"+strings.Join(t.Unique, "_")), strings.Join(u, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;",
		QuoteFQN(t.FQN), strings.Join(cols, ",\n  ")), nil
}

// QuoteIdent backtick-quotes one identifier, doubling embedded backticks.
func QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// QuoteFQN quotes each dotted segment: db.table -> `db`.`table`.
func QuoteFQN(fqn string) string {
	parts := strings.Split(strings.TrimSpace(fqn), ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(p))
	}
	return strings.Join(out, ".")
}
