package builtin

import (
	"strings"
	"time"

	"batchetl/pkg/records"
)

// ParseDate parses Field with the first matching layout and stores the
// time.Time back. Records whose value is missing or matches no layout are
// dropped; the date gates which rows count towards an aggregate.
type ParseDate struct {
	Field   string
	Layouts []string
	// OnDrop, if set, is called for each dropped record with its raw value.
	OnDrop func(rec records.Record, raw any)
}

func (p ParseDate) Apply(in []records.Record) []records.Record {
	out := in[:0]
	for _, r := range in {
		t, ok := p.parse(r[p.Field])
		if !ok {
			if p.OnDrop != nil {
				p.OnDrop(r, r[p.Field])
			}
			continue
		}
		r[p.Field] = t
		out = append(out, r)
	}
	return out
}

func (p ParseDate) parse(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range p.Layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
