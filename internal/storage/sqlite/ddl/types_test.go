package ddl

import "testing"

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want string
	}{
		{kind: "int", want: "INTEGER"},
		{kind: "  BigInt ", want: "INTEGER"},
		{kind: "float", want: "REAL"},
		{kind: "DOUBLE", want: "REAL"},
		{kind: "text", want: "TEXT"},
		{kind: "", want: "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(tt.kind); got != tt.want {
			t.Fatalf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
