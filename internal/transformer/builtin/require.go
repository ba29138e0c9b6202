// Package builtin contains the record transformers the pipeline variants are
// assembled from. Each one implements transformer.Transformer and works on a
// whole batch in memory.
package builtin

import "batchetl/pkg/records"

// Require removes any record missing a value for one of the specified fields.
type Require struct {
	Fields []string
	// OnDrop, if set, is called for each removed record with the first
	// missing field.
	OnDrop func(rec records.Record, field string)
}

// Apply returns a filtered slice containing only records that have all
// required fields present and non-blank. The input slice is reused.
func (r Require) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, rec := range in {
		missing := ""
		for _, f := range r.Fields {
			if records.IsEmpty(rec[f]) {
				missing = f
				break
			}
		}
		if missing != "" {
			if r.OnDrop != nil {
				r.OnDrop(rec, missing)
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}
