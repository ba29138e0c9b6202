package ddl

import (
	"strings"
	"testing"

	"batchetl/internal/schema"
)

func TestMapType(t *testing.T) {
	cases := map[string]string{
		schema.TypeText:  "VARCHAR(255)",
		schema.TypeFloat: "DOUBLE",
		schema.TypeInt:   "BIGINT",
		" BOOLEAN ":      "TINYINT(1)",
		"":               "VARCHAR(255)",
	}
	for in, want := range cases {
		if got := MapType(in); got != want {
			t.Fatalf("MapType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildCreateTableSQLFromContract(t *testing.T) {
	got, err := BuildCreateTableSQL(FromContract(schema.Crypto(false), ""))
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"CREATE TABLE IF NOT EXISTS `crypto_data` (",
		"`id` BIGINT NOT NULL AUTO_INCREMENT",
		"`name` VARCHAR(255) NOT NULL",
		"`market_cap` DOUBLE DEFAULT 0",
		"PRIMARY KEY (`id`)",
		"UNIQUE KEY `uq_name` (`name`)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("SQL missing %q:\n%s", want, got)
		}
	}
}

func TestBuildCreateTableSQLRejectsEmptyTable(t *testing.T) {
	if _, err := BuildCreateTableSQL(FromContract(schema.Contract{}, "")); err == nil {
		t.Fatalf("expected error for empty table")
	}
}
