package transformer

import (
	"reflect"
	"strconv"
	"testing"

	"batchetl/pkg/records"
)

/*
setField mutates each record in place. Used to verify that the output of one
stage is the input of the next.
*/
type setField struct {
	key string
	val any
}

func (t setField) Apply(in []records.Record) []records.Record {
	for i := range in {
		in[i][t.key] = t.val
	}
	return in
}

/*
keepNonEmpty filters in place by reslicing, like the builtin gates do.
*/
type keepNonEmpty struct {
	key string
}

func (t keepNonEmpty) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, r := range in {
		if !records.IsEmpty(r[t.key]) {
			out = append(out, r)
		}
	}
	return out
}

// order appends its tag to *seen on every call.
type order struct {
	tag  string
	seen *[]string
}

func (t order) Apply(in []records.Record) []records.Record {
	*t.seen = append(*t.seen, t.tag)
	return in
}

func TestChainAppliesInDeclaredOrder(t *testing.T) {
	var seen []string
	in := []records.Record{{"name": "BTC"}}
	c := Chain{
		order{tag: "lower", seen: &seen},
		setField{key: "a", val: "first"},
		order{tag: "coerce", seen: &seen},
		setField{key: "a", val: "second"},
		order{tag: "stamp", seen: &seen},
	}

	out := c.Apply(in)
	if got := out[0]["a"]; got != "second" {
		t.Fatalf("a=%v; want the later stage to win", got)
	}
	want := []string{"lower", "coerce", "stamp"}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("call order=%v; want %v", seen, want)
	}
}

func TestChainFilterThenMutate(t *testing.T) {
	in := []records.Record{
		{"name": "BTC", "id": 1},
		{"name": " ", "id": 2},
		{"name": "ETH", "id": 3},
	}
	c := Chain{
		keepNonEmpty{key: "name"},
		setField{key: "tag", val: "ok"},
	}

	out := c.Apply(in)
	if len(out) != 2 {
		t.Fatalf("len(out)=%d; want 2", len(out))
	}
	for _, r := range out {
		if r["tag"] != "ok" {
			t.Fatalf("mutate-after-filter missing tag on %#v", r)
		}
	}
}

func TestChainEmptyAndNilStages(t *testing.T) {
	in := []records.Record{{"id": 1}, {"id": 2}}

	var empty Chain
	if out := empty.Apply(in); len(out) != 2 || &out[0] != &in[0] {
		t.Fatalf("empty chain should return the input slice")
	}

	withNil := Chain{nil, setField{key: "x", val: 1}, nil}
	out := withNil.Apply(in)
	if out[1]["x"] != 1 {
		t.Fatalf("nil stages should be skipped, got %#v", out[1])
	}
}

func TestChainNilInput(t *testing.T) {
	c := Chain{setField{key: "x", val: 1}}
	if out := c.Apply(nil); out != nil {
		t.Fatalf("Apply(nil) => %#v; want nil", out)
	}
}

func BenchmarkChainFilterHalf(b *testing.B) {
	const n = 40000
	in := make([]records.Record, n)
	for i := range in {
		name := ""
		if i%2 == 0 {
			name = "coin_" + strconv.Itoa(i)
		}
		in[i] = records.Record{"id": i, "name": name}
	}
	c := Chain{
		keepNonEmpty{key: "name"},
		setField{key: "tag", val: "ok"},
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf := append([]records.Record(nil), in...)
		_ = c.Apply(buf)
	}
}
