package ddl

// ColumnDef describes a single column. Names are unquoted; renderers quote.
//
// Fields:
//   - SQLType: target SQL type (e.g., TEXT, DOUBLE PRECISION)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: part of the primary key
//   - Identity: auto-increment surrogate key; the renderer picks the syntax
//   - Default: raw default expression (e.g., 0, CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Identity   bool
	Default    string
}

// TableDef holds the table name (FQN, dotted form such as "schema.table"),
// its ordered columns, and an optional UNIQUE constraint.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
	Unique  []string
}
