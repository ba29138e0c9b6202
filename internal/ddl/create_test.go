package ddl

import (
	"strings"
	"testing"

	"batchetl/internal/schema"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		def     TableDef
		wantErr string
	}{
		{"ok", TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}, ""},
		{"empty fqn", TableDef{FQN: " ", Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}}}, "FQN must not be empty"},
		{"no columns", TableDef{FQN: "t"}, "at least one column"},
		{"blank column", TableDef{FQN: "t", Columns: []ColumnDef{{Name: "", SQLType: "TEXT"}}}, "empty name"},
		{"missing type", TableDef{FQN: "t", Columns: []ColumnDef{{Name: "a"}}}, "missing SQLType"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.def)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestFromContract(t *testing.T) {
	t.Parallel()

	mapType := func(kind string) string {
		if kind == schema.TypeFloat {
			return "REAL"
		}
		return "TEXT"
	}
	def := FromContract(schema.Sales(true), "", mapType, "INTEGER")

	if def.FQN != "sales" {
		t.Fatalf("FQN = %q, want sales", def.FQN)
	}
	if got := strings.Join(def.Unique, ","); got != "country,productline" {
		t.Fatalf("Unique = %s", got)
	}

	want := []ColumnDef{
		{Name: "id", SQLType: "INTEGER", PrimaryKey: true, Identity: true},
		{Name: "country", SQLType: "TEXT"},
		{Name: "productline", SQLType: "TEXT"},
		{Name: "sales", SQLType: "REAL", Nullable: true, Default: "0"},
		{Name: "quantityordered", SQLType: "REAL", Nullable: true, Default: "0"},
		{Name: "processed_at", SQLType: "TEXT", Nullable: true},
	}
	if len(def.Columns) != len(want) {
		t.Fatalf("got %d columns, want %d", len(def.Columns), len(want))
	}
	for i := range want {
		if def.Columns[i] != want[i] {
			t.Fatalf("column %d = %+v, want %+v", i, def.Columns[i], want[i])
		}
	}
	if err := Validate(def); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateUnknownUnique(t *testing.T) {
	t.Parallel()

	err := Validate(TableDef{
		FQN:     "t",
		Columns: []ColumnDef{{Name: "a", SQLType: "TEXT"}},
		Unique:  []string{"b"},
	})
	if err == nil || !strings.Contains(err.Error(), "unique column b") {
		t.Fatalf("Validate() = %v", err)
	}
}

var benchmarkSink TableDef

func BenchmarkFromContract(b *testing.B) {
	c := schema.Crypto(true)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		benchmarkSink = FromContract(c, "", func(string) string { return "TEXT" }, "BIGINT")
	}
}
