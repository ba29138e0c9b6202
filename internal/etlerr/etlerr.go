// Package etlerr classifies stage failures so the orchestrator can decide how
// to react without parsing error strings.
//
// Every stage boundary returns either nil or an error that carries a Kind:
//
//	err := etlerr.E(etlerr.Network, "extract: fetch", fmt.Errorf("status %d", code))
//	...
//	switch etlerr.KindOf(err) {
//	case etlerr.Network: ...
//	}
//
// Errors are wrapped with fmt.Errorf("%w") as usual; KindOf walks the chain.
package etlerr

import (
	"errors"
	"fmt"
)

// Kind is the category of a stage failure.
type Kind int

const (
	// Unknown is reported for errors that were never classified.
	Unknown Kind = iota
	// Network covers non-2xx responses and transport failures.
	Network
	// MalformedData covers unparseable JSON/CSV and missing required columns.
	MalformedData
	// StoreConnection covers failures to open, ping or authenticate to a store.
	StoreConnection
	// StoreWrite covers DDL, insert and commit failures.
	StoreWrite
	// Render covers failures of the reporting stage to query or draw.
	Render
)

var kindNames = [...]string{
	Unknown:         "unknown",
	Network:         "network",
	MalformedData:   "malformed_data",
	StoreConnection: "store_connection",
	StoreWrite:      "store_write",
	Render:          "render",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is a classified error. Op names the failing operation, for example
// "load: begin tx".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error. A nil err yields nil so call sites can wrap
// unconditionally.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is shorthand for E(kind, op, fmt.Errorf(format, args...)).
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or Unknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
