package builtin

import (
	"testing"
	"time"

	"batchetl/pkg/records"
)

func TestParseDate(t *testing.T) {
	in := []records.Record{
		{"orderdate": "2/24/2003 0:00"},
		{"orderdate": "2003-05-07"},
		{"orderdate": "not a date"},
		{"orderdate": ""},
		{},
	}
	drops := 0
	p := ParseDate{
		Field:   "orderdate",
		Layouts: []string{"1/2/2006 15:04", "2006-01-02"},
		OnDrop:  func(records.Record, any) { drops++ },
	}
	got := p.Apply(in)

	if len(got) != 2 || drops != 3 {
		t.Fatalf("kept %d, dropped %d; want 2, 3", len(got), drops)
	}
	want := time.Date(2003, 2, 24, 0, 0, 0, 0, time.UTC)
	if ts, ok := got[0]["orderdate"].(time.Time); !ok || !ts.Equal(want) {
		t.Fatalf("orderdate = %#v, want %v", got[0]["orderdate"], want)
	}
}
