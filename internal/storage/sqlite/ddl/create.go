package ddl

import (
	"fmt"
	"strings"

	gddl "batchetl/internal/ddl"
	"batchetl/internal/schema"
)

// FromContract builds the SQLite TableDef for c.
func FromContract(c schema.Contract, table string) gddl.TableDef {
	return gddl.FromContract(c, table, MapType, "INTEGER")
}

// BuildCreateTableSQL returns a SQLite CREATE TABLE IF NOT EXISTS statement:
//
//	CREATE TABLE IF NOT EXISTS "crypto_data" (
//	  "id" INTEGER PRIMARY KEY AUTOINCREMENT,
//	  "name" TEXT NOT NULL,
//	  "market_cap" REAL DEFAULT 0,
//	  UNIQUE ("name")
//	);
//
// SQLite only accepts AUTOINCREMENT on an inline INTEGER PRIMARY KEY, so an
// identity column is rendered that way and excluded from any table-level
// PRIMARY KEY clause.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	if err := gddl.Validate(t); err != nil {
		return "", fmt.Errorf("sqlite ddl: %w", err)
	}

	cols := make([]string, 0, len(t.Columns)+2)
	var pks []string

	for _, c := range t.Columns {
		name := QuoteIdent(strings.TrimSpace(c.Name))
		if c.Identity {
			cols = append(cols, name+" INTEGER PRIMARY KEY AUTOINCREMENT")
			continue
		}

		var sb strings.Builder
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimSpace(c.SQLType))
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, name)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	if len(t.Unique) > 0 {
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", quoteList(t.Unique)))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		QuoteFQN(t.FQN), strings.Join(cols, ",\n  ")), nil
}

// QuoteIdent double-quotes one identifier.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes every dotted segment of fqn: main.events -> "main"."events".
func QuoteFQN(fqn string) string {
	parts := strings.Split(strings.TrimSpace(fqn), ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

func quoteList(ids []string) string {
	q := make([]string, len(ids))
	for i, id := range ids {
		q[i] = QuoteIdent(id)
	}
	return strings.Join(q, ", ")
}
