package parser

import (
	"strings"
	"testing"
)

func TestFormatOf(t *testing.T) {
	t.Parallel()

	cases := map[string]Format{
		"data/raw/raw_data.json":    FormatJSON,
		"data/raw/sales.CSV":        FormatCSV,
		"data/raw/sales_sample.csv": FormatCSV,
		"data/raw/payload":          FormatJSON,
	}
	for in, want := range cases {
		if got := FormatOf(in); got != want {
			t.Fatalf("FormatOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestForDispatches(t *testing.T) {
	t.Parallel()

	recs, _, err := For(FormatCSV, Options{}).Parse(strings.NewReader("Name,Price\nA,10\n"))
	if err != nil {
		t.Fatalf("csv Parse: %v", err)
	}
	if len(recs) != 1 || recs[0]["name"] != "A" {
		t.Fatalf("csv records = %v", recs)
	}

	recs, _, err = For(FormatJSON, Options{}).Parse(strings.NewReader(`[{"name":"A"}]`))
	if err != nil {
		t.Fatalf("json Parse: %v", err)
	}
	if len(recs) != 1 || recs[0]["name"] != "A" {
		t.Fatalf("json records = %v", recs)
	}
}
