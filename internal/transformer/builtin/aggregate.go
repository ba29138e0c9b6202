package builtin

import (
	"sort"
	"strings"

	"batchetl/internal/schema"
	"batchetl/pkg/records"
)

// Aggregate groups records by GroupBy and sums the Sum fields. Output holds
// one record per distinct group with only the group and sum fields, sorted
// ascending by the group values. Sums accumulate in input order, so the
// same input always yields the same floats.
type Aggregate struct {
	GroupBy []string
	Sum     []string
}

func (a Aggregate) Apply(in []records.Record) []records.Record {
	type group struct {
		vals []string
		out  records.Record
	}
	groups := make(map[string]*group)

	for _, r := range in {
		vals := make([]string, len(a.GroupBy))
		for i, g := range a.GroupBy {
			vals[i] = schema.Format(r[g])
		}
		key := strings.Join(vals, "\x1f")

		g, ok := groups[key]
		if !ok {
			g = &group{vals: vals, out: make(records.Record, len(a.GroupBy)+len(a.Sum))}
			for i, f := range a.GroupBy {
				g.out[f] = vals[i]
			}
			for _, f := range a.Sum {
				g.out[f] = 0.0
			}
			groups[key] = g
		}
		for _, f := range a.Sum {
			if v, ok := r[f].(float64); ok {
				g.out[f] = g.out[f].(float64) + v
			}
		}
	}

	sorted := make([]*group, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].vals, sorted[j].vals
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})

	out := make([]records.Record, len(sorted))
	for i, g := range sorted {
		out[i] = g.out
	}
	return out
}
