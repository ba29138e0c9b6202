package records

import (
	"reflect"
	"testing"
)

func TestKeysSorted(t *testing.T) {
	r := Record{"b": 1, "a": nil, "c": "x"}
	if got, want := r.Keys(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestCloneIsShallowCopy(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	if r["a"] != "1" {
		t.Fatalf("Clone aliased the original map: %v", r)
	}
}

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{nil, true},
		{"", true},
		{"   ", true},
		{"x", false},
		{0.0, false},
	}
	for _, c := range cases {
		if got := IsEmpty(c.in); got != c.want {
			t.Fatalf("IsEmpty(%#v) = %v, want %v", c.in, got, c.want)
		}
	}
}
