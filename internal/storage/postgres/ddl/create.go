package ddl

import (
	"fmt"
	"sort"
	"strings"

	gddl "batchetl/internal/ddl"
	"batchetl/internal/schema"
)

// FromContract builds the Postgres TableDef for c.
func FromContract(c schema.Contract, table string) gddl.TableDef {
	return gddl.FromContract(c, table, MapType, "BIGINT")
}

// BuildCreateTableSQL builds a deterministic Postgres CREATE TABLE statement
// for the given table definition.
//
// Rules:
//   - t.FQN (fully-qualified table name) must be non-empty.
//   - Each column must have a non-empty Name and SQLType.
//   - Identity columns render as GENERATED BY DEFAULT AS IDENTITY.
//   - Primary-key columns are always rendered as NOT NULL, even if Nullable=true.
//   - PRIMARY KEY is rendered as a separate constraint clause using quoted
//     column names, sorted alphabetically for determinism.
//   - UNIQUE keeps the declared column order (it is the upsert target).
//   - Identifiers are double-quoted; embedded double-quotes are escaped.
//   - The statement uses CREATE TABLE IF NOT EXISTS.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	if err := gddl.Validate(t); err != nil {
		return "", fmt.Errorf("postgres %w", err)
	}

	cols := make([]string, 0, len(t.Columns)+2)
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)

		// "colname" TYPE [GENERATED ...] [NOT NULL] [DEFAULT expr]
		var sb strings.Builder
		sb.WriteString(QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimSpace(c.SQLType))
		if c.Identity {
			sb.WriteString(" GENERATED BY DEFAULT AS IDENTITY")
		}
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			// default is raw SQL, no quoting here
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		sort.Strings(pks)
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	if len(t.Unique) > 0 {
		u := make([]string, len(t.Unique))
		for i, c := range t.Unique {
			u[i] = QuoteIdent(c)
		}
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", strings.Join(u, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		QuoteFQN(t.FQN),
		strings.Join(cols, ",\n  "),
	), nil
}

// QuoteIdent quotes a single identifier segment for Postgres, e.g.:
//
//	QuoteIdent(`name`)       => `"name"`
//	QuoteIdent(`weird"name`) => `"weird""name"`
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// QuoteFQN quotes a possibly schema-qualified name like "public.sales" to
// `"public"."sales"`. Empty segments are ignored.
func QuoteFQN(f string) string {
	parts := strings.Split(strings.TrimSpace(f), ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(p))
	}
	return strings.Join(out, ".")
}
