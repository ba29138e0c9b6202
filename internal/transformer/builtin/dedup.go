package builtin

import (
	"fmt"
	"sort"
	"strings"

	"batchetl/pkg/records"
)

// DeDup collapses records that share a natural key and chooses a winner
// according to Policy:
//
//   - "keep-first": keep the earliest occurrence in the batch
//   - "keep-last" : keep the latest occurrence in the batch (default)
//
// It removes intra-batch duplicates before the load so a replace load does
// not trip the table's UNIQUE constraint. The constraint stays the backstop.
//
// A record's key is the concatenation of the key fields as strings
// (nil -> "\x00"). Run DeDup after Normalize/Coerce so equal keys compare
// equal. Records missing a key field pass through untouched, after the
// winners.
type DeDup struct {
	Keys   []string
	Policy string
	// OnDuplicate, if set, is called once per discarded record.
	OnDuplicate func(discarded records.Record, key string)
}

// Apply returns a new slice with one record per key. Winners keep the
// relative order of their original positions.
func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}

	keepFirst := strings.EqualFold(strings.TrimSpace(d.Policy), "keep-first")

	type slot struct {
		rec   records.Record
		index int
	}
	winners := make(map[string]slot, len(in))
	var passthrough []records.Record

	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			passthrough = append(passthrough, r)
			continue
		}
		prev, exists := winners[key]
		switch {
		case !exists:
			winners[key] = slot{rec: r, index: i}
		case keepFirst:
			d.discard(r, key)
		default:
			d.discard(prev.rec, key)
			winners[key] = slot{rec: r, index: i}
		}
	}

	slots := make([]slot, 0, len(winners))
	for _, s := range winners {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(a, b int) bool { return slots[a].index < slots[b].index })

	out := make([]records.Record, 0, len(slots)+len(passthrough))
	for _, s := range slots {
		out = append(out, s.rec)
	}
	return append(out, passthrough...)
}

func (d DeDup) discard(r records.Record, key string) {
	if d.OnDuplicate != nil {
		d.OnDuplicate(r, strings.ReplaceAll(key, "\x1f", "|"))
	}
}

func (d DeDup) keyOf(r records.Record) (string, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f') // unlikely separator
		}
		switch t := v.(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(t)
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return b.String(), true
}
