// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// The builder here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
//   - Renders identity columns as IDENTITY(1,1).
//   - Treats ColumnDef.Default as raw SQL.
package ddl

import (
	"fmt"
	"strings"

	gddl "batchetl/internal/ddl"
	"batchetl/internal/schema"
)

// FromContract builds the SQL Server TableDef for c.
func FromContract(c schema.Contract, table string) gddl.TableDef {
	return gddl.FromContract(c, table, MapType, "BIGINT")
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist:
//
//	IF OBJECT_ID(N'[dbo].[sales]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[sales] (
//	    [id] BIGINT IDENTITY(1,1) NOT NULL,
//	    [country] NVARCHAR(255) NOT NULL,
//	    ...
//	    PRIMARY KEY ([id]),
//	    UNIQUE ([country], [productline])
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	if err := gddl.Validate(t); err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}

	cols := make([]string, 0, len(t.Columns)+2)
	pks := make([]string, 0, 1)

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)

		var sb strings.Builder
		sb.WriteString(quoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(strings.TrimSpace(c.SQLType))
		if c.Identity {
			sb.WriteString(" IDENTITY(1,1)")
		}
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quoteIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}
	if len(t.Unique) > 0 {
		u := make([]string, len(t.Unique))
		for i, c := range t.Unique {
			u[i] = quoteIdent(c)
		}
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", strings.Join(u, ", ")))
	}

	fqnQuoted := QuoteFQN(t.FQN)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqnQuoted, "'", "''"),
		fqnQuoted,
		strings.Join(cols, ",\n    "),
	), nil
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

// QuoteFQN quotes a possibly schema-qualified table name, e.g.:
//
//	"dbo.Users"   -> [dbo].[Users]
//	"Users"       -> [Users]
func QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quoteIdent(p))
	}
	return strings.Join(out, ".")
}
