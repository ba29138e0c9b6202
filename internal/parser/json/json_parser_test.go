package json

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeAll_ArrayOfObjects(t *testing.T) {
	const in = `[
  {"id":"bitcoin","name":"Bitcoin","current_price":67000.5,"roi":null},
  {"id":"ethereum","name":"Ethereum","current_price":3500}
]`
	recs, err := DecodeAll(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d; want 2", len(recs))
	}
	if got, ok := recs[0]["current_price"].(json.Number); !ok || got.String() != "67000.5" {
		t.Fatalf("recs[0][current_price] = %#v (%T); want json.Number(67000.5)", recs[0]["current_price"], recs[0]["current_price"])
	}
	if v, ok := recs[0]["roi"]; !ok || v != nil {
		t.Fatalf("recs[0][roi] = %#v; want explicit nil", v)
	}
	if recs[1]["name"] != "Ethereum" {
		t.Fatalf("recs[1][name] = %#v", recs[1]["name"])
	}
}

func TestDecodeAll_SingleObject(t *testing.T) {
	recs, err := DecodeAll(strings.NewReader(`{"name":"A","current_price":10}`))
	if err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	if len(recs) != 1 || recs[0]["name"] != "A" {
		t.Fatalf("recs = %#v", recs)
	}
}

func TestDecodeAll_EmptyArray(t *testing.T) {
	recs, err := DecodeAll(strings.NewReader(`[]`))
	if err != nil {
		t.Fatalf("DecodeAll error: %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Fatalf("recs = %#v; want empty non-nil slice", recs)
	}
}

func TestDecodeAll_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantShape bool
	}{
		{name: "scalar", in: `42`, wantShape: true},
		{name: "string", in: `"hello"`, wantShape: true},
		{name: "array_of_scalars", in: `[1,2]`, wantShape: true},
		{name: "mixed_array", in: `[{"a":1}, "x"]`, wantShape: true},
		{name: "trailing_value", in: `[{"a":1}] {"b":2}`, wantShape: true},
		{name: "html_error_page", in: `<html>rate limited</html>`},
		{name: "truncated", in: `[{"a":1},`},
		{name: "empty", in: ``},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			recs, err := DecodeAll(strings.NewReader(tc.in))
			if err == nil {
				t.Fatalf("DecodeAll(%q) = %v; want error", tc.in, recs)
			}
			if got := errors.Is(err, ErrShape); got != tc.wantShape {
				t.Fatalf("errors.Is(err, ErrShape) = %v; want %v (err=%v)", got, tc.wantShape, err)
			}
		})
	}
}

func TestParserParse(t *testing.T) {
	recs, skipped, err := NewParser().Parse(strings.NewReader(`[{"a":1},{"a":2}]`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if skipped != 0 || len(recs) != 2 {
		t.Fatalf("Parse = %d records, %d skipped", len(recs), skipped)
	}
}
