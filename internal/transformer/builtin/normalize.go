package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"batchetl/pkg/records"
)

// LowerKeys rewrites every record key to trimmed lower case. When two keys
// collide after folding, the one that sorts last in the original wins.
type LowerKeys struct{}

func (LowerKeys) Apply(in []records.Record) []records.Record {
	for i, r := range in {
		dirty := false
		for k := range r {
			if k != strings.ToLower(strings.TrimSpace(k)) {
				dirty = true
				break
			}
		}
		if !dirty {
			continue
		}
		out := make(records.Record, len(r))
		for _, k := range r.Keys() {
			out[strings.ToLower(strings.TrimSpace(k))] = r[k]
		}
		in[i] = out
	}
	return in
}

// Normalize cleans string values: Unicode NFC composition, NBSP and other
// Unicode spaces folded to ASCII space, runs of whitespace collapsed to one
// space, and leading/trailing whitespace trimmed. Non-string values are left
// alone. Records are mutated in place.
type Normalize struct{}

func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			if s, ok := v.(string); ok {
				r[k] = normalizeText(s)
			}
		}
	}
	return in
}

func normalizeText(s string) string {
	if !norm.NFC.IsNormalString(s) {
		s = norm.NFC.String(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
