package mssql

import (
	"context"
	"strings"
	"testing"

	"github.com/microsoft/go-mssqldb/msdsn"

	"batchetl/internal/storage"
	"batchetl/internal/storage/sqldb"
)

// TestMsIdent verifies that msIdent properly brackets SQL Server identifiers
// and escapes closing brackets to avoid syntax errors and injection issues.
func TestMsIdent(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"simple", "[simple]"},
		{"dbo", "[dbo]"},
		{"brack]et", "[brack]]et]"},
		{`weird]]name`, `[weird]]]]name]`},
	}
	for _, tc := range cases {
		if got := msIdent(tc.in); got != tc.want {
			t.Fatalf("msIdent(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

// TestMsFQN verifies that msFQN correctly quotes schema-qualified names using
// bracketed identifier segments, preserving multi-part names.
func TestMsFQN(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"table", "[table]"},
		{"dbo.table", "[dbo].[table]"},
		{"sales.q4.table", "[sales].[q4].[table]"},
	}
	for _, tc := range cases {
		if got := msFQN(tc.in); got != tc.want {
			t.Fatalf("msFQN(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

// TestBuildMatchCondition ensures that the MERGE join predicate is
// constructed correctly from the provided key column list.
func TestBuildMatchCondition(t *testing.T) {
	cases := []struct {
		keys []string
		want string
	}{
		{nil, ""},
		{[]string{"id"}, "T.[id] = S.[id]"},
		{[]string{"country", "productline"}, "T.[country] = S.[country] AND T.[productline] = S.[productline]"},
	}
	for _, tc := range cases {
		got := buildMatchCondition(tc.keys)
		if len(tc.keys) == 0 && got != "" {
			t.Fatalf("expected empty condition for no keys; got %q", got)
		}
		if len(tc.keys) > 0 && got != tc.want {
			t.Fatalf("condition = %q; want %q", got, tc.want)
		}
	}
}

// TestFilterConflictKeys validates that conflict key columns are removed from
// the generated SET clause parts, leaving only non-key updates.
func TestFilterConflictKeys(t *testing.T) {
	setParts := []string{"[country] = S.[country]", "[productline] = S.[productline]", "[sales] = S.[sales]"}
	keys := []string{"country", "productline"}
	got := filterConflictKeys(setParts, keys)
	joined := strings.Join(got, ",")
	if strings.Contains(joined, "[country] = ") || strings.Contains(joined, "[productline] = ") {
		t.Fatalf("keys should be filtered out, got %q", joined)
	}
	if !strings.Contains(joined, "[sales] = S.[sales]") {
		t.Fatalf("expected non-key update to remain, got %q", joined)
	}
}

func TestUpsertSQL(t *testing.T) {
	got := Dialect{}.UpsertSQL("dbo.crypto_data", []string{"name", "market_cap"}, []string{"name"})
	want := "MERGE INTO [dbo].[crypto_data] WITH (HOLDLOCK) AS T" +
		" USING (SELECT @p1 AS [name], @p2 AS [market_cap]) AS S ON T.[name] = S.[name]" +
		" WHEN MATCHED THEN UPDATE SET T.[market_cap] = S.[market_cap]" +
		" WHEN NOT MATCHED THEN INSERT ([name], [market_cap]) VALUES (S.[name], S.[market_cap]);"
	if got != want {
		t.Fatalf("UpsertSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestTopNSQL(t *testing.T) {
	got := Dialect{}.TopNSQL("crypto_data", "name", "market_cap", 10)
	if !strings.HasPrefix(got, "SELECT TOP (10) [name], COALESCE(SUM([market_cap]), 0) AS total") {
		t.Fatalf("TopNSQL = %s", got)
	}
	if strings.Contains(got, "LIMIT") {
		t.Fatalf("T-SQL must not use LIMIT: %s", got)
	}
}

func TestBuildDSNParses(t *testing.T) {
	dsn := BuildDSN(storage.Config{Host: "sql", User: "sa", Password: "Str0ng!Pass", Database: "etl", SSLMode: "disable"})
	cfg, err := msdsn.Parse(dsn)
	if err != nil {
		t.Fatalf("msdsn.Parse(%q): %v", dsn, err)
	}
	if cfg.Host != "sql" || cfg.Port != 1433 || cfg.Database != "etl" || cfg.User != "sa" {
		t.Fatalf("parsed config = host %q port %d db %q user %q", cfg.Host, cfg.Port, cfg.Database, cfg.User)
	}
}

func TestAdapterRegistration(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	newRepository = func(ctx context.Context, cfg Config) (*sqldb.Repository, error) {
		got = cfg
		return sqldb.New(nil, Dialect{}, cfg.Table), nil
	}

	want := storage.Config{Kind: "mssql", DSN: "sqlserver://sa:pw@localhost:1433?database=etl", Table: "dbo.sales"}
	if _, err := storage.New(context.Background(), want); err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if got.DSN != want.DSN || got.Table != want.Table {
		t.Fatalf("adapter config = %+v", got)
	}
}

func TestResetIdentitySQLGuardsFreshTables(t *testing.T) {
	got := Dialect{}.ResetIdentitySQL("dbo.sales")
	want := "IF EXISTS (SELECT 1 FROM sys.identity_columns WHERE object_id = OBJECT_ID(N'[dbo].[sales]') AND last_value IS NOT NULL) " +
		"DBCC CHECKIDENT (N'[dbo].[sales]', RESEED, 0) WITH NO_INFOMSGS;"
	if got != want {
		t.Fatalf("ResetIdentitySQL =\n%s\nwant\n%s", got, want)
	}
}
