// Package transformer turns a raw artifact into the normalized CSV artifact
// the loader reads. The work is an ordered Chain of record transformers (see
// package builtin); a Job binds a chain to a contract and does the file I/O.
package transformer

import "batchetl/pkg/records"

// Transformer rewrites a batch of records. Implementations may mutate and
// reuse the input slice.
type Transformer interface {
	Apply([]records.Record) []records.Record
}

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	if len(c) == 0 {
		return in
	}

	out := in
	for _, t := range c {
		if t == nil {
			continue
		}
		out = t.Apply(out)
	}
	return out
}
