package storage

import (
	"context"
	"slices"
	"strings"
	"testing"
)

func TestRegistry(t *testing.T) {
	repo := &fakeRepo{}
	Register("Fake-Test", func(context.Context, Config) (Repository, error) { return repo, nil })

	if !slices.Contains(ListKinds(), "fake-test") {
		t.Fatalf("ListKinds() = %v, want fake-test", ListKinds())
	}

	got, err := New(context.Background(), Config{Kind: "FAKE-TEST", Table: "t"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got != repo {
		t.Fatalf("New returned %v", got)
	}

	if _, err := New(context.Background(), Config{Kind: "fake-test"}); err == nil {
		t.Fatalf("expected error for empty table")
	}
	_, err = New(context.Background(), Config{Kind: "oracle", Table: "t"})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Fatalf("err = %v, want unsupported kind", err)
	}
}
