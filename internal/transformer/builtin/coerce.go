package builtin

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"batchetl/internal/schema"
	"batchetl/pkg/records"
)

// Coerce converts fields to their declared type. A value that cannot be read
// becomes nil so the null-default policy (FillNull) decides what is written;
// coercion never drops a record.
type Coerce struct {
	Types map[string]string // field -> schema.TypeFloat | TypeInt | TypeText
}

func (c Coerce) Apply(in []records.Record) []records.Record {
	if len(c.Types) == 0 {
		return in
	}
	for _, r := range in {
		for field, typ := range c.Types {
			v, ok := r[field]
			if !ok || v == nil {
				continue
			}
			switch typ {
			case schema.TypeFloat:
				r[field] = toFloat(v)
			case schema.TypeInt:
				r[field] = toInt(v)
			case schema.TypeText:
				r[field] = toText(v)
			}
		}
	}
	return in
}

// toFloat returns a finite float64 or nil.
func toFloat(v any) any {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// toInt returns an int64 or nil. Whole floats are accepted.
func toInt(v any) any {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return i
		}
	}
	if f, ok := toFloat(v).(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return int64(f)
	}
	return nil
}

// toText renders scalars as text; nested values become nil.
func toText(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return nil
	default:
		return schema.Format(t)
	}
}

// FillNull replaces nil or missing fields with their declared default.
type FillNull struct {
	Defaults map[string]any
}

func (f FillNull) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for field, def := range f.Defaults {
			if v, ok := r[field]; !ok || v == nil {
				r[field] = def
			}
		}
	}
	return in
}

// Derive sets Target = Source × Factor. A missing or non-float source leaves
// Target nil. A product that overflows to ±Inf is replaced by Default and
// reported through OnOverflow.
type Derive struct {
	Target string
	Source string
	Factor float64
	// Default stands in for a non-finite product. Nil leaves Target nil.
	Default    any
	OnOverflow func(rec records.Record, source float64)
}

func (d Derive) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		f, ok := r[d.Source].(float64)
		if !ok {
			r[d.Target] = nil
			continue
		}
		v := f * d.Factor
		if math.IsInf(v, 0) || math.IsNaN(v) {
			r[d.Target] = d.Default
			if d.OnOverflow != nil {
				d.OnOverflow(r, f)
			}
			continue
		}
		r[d.Target] = v
	}
	return in
}

// Stamp sets Field to Value on every record.
type Stamp struct {
	Field string
	Value string
}

func (s Stamp) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		r[s.Field] = s.Value
	}
	return in
}
