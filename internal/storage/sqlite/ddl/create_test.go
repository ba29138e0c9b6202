package ddl

import (
	"strings"
	"testing"

	gddl "batchetl/internal/ddl"
	"batchetl/internal/schema"
)

func TestBuildCreateTableSQL_Crypto(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateTableSQL(FromContract(schema.Crypto(false), ""))
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"crypto_data\" (\n" +
		"  \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
		"  \"name\" TEXT NOT NULL,\n" +
		"  \"current_price\" REAL DEFAULT 0,\n" +
		"  \"market_cap\" REAL DEFAULT 0,\n" +
		"  \"price_change_percentage_24h\" REAL DEFAULT 0,\n" +
		"  \"adjusted_price\" REAL DEFAULT 0,\n" +
		"  UNIQUE (\"name\")\n" +
		");"
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildCreateTableSQL_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]gddl.TableDef{
		"table FQN must not be empty": {Columns: []gddl.ColumnDef{{Name: "a", SQLType: "TEXT"}}},
		"at least one column":         {FQN: "t"},
		"missing SQLType":             {FQN: "t", Columns: []gddl.ColumnDef{{Name: "a"}}},
	}
	for want, def := range cases {
		_, err := BuildCreateTableSQL(def)
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("error = %v, want substring %q", err, want)
		}
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"events":      `"events"`,
		"main.events": `"main"."events"`,
		`we"ird`:      `"we""ird"`,
		" a . b ":     `"a"."b"`,
	}
	for in, want := range cases {
		if got := QuoteFQN(in); got != want {
			t.Fatalf("QuoteFQN(%q) = %s, want %s", in, got, want)
		}
	}
}
