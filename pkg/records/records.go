// Package records defines the schema-agnostic record shape that flows between
// parsers and transformers.
package records

import (
	"sort"
	"strings"
)

// Record is one logical row keyed by column name. Values are whatever the
// producing stage decoded: string, float64, json.Number, time.Time, nil, ...
type Record map[string]any

// Keys returns the record's keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether v is nil or a blank string.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}
