package builtin

import (
	"fmt"
	"math"
	"sync"

	"batchetl/internal/schema"
	"batchetl/pkg/records"
)

// Validate is the last gate before the normalized artifact is written: every
// surviving record must satisfy the contract exactly. Earlier stages already
// coerce and fill, so a rejection here points at a chain that is missing a
// step, never at bad input alone.
type Validate struct {
	Contract schema.Contract
	Reject   func(RejectedRow) // optional sink

	metaOnce sync.Once
	meta     []fieldMeta
}

// RejectedRow describes one record Validate dropped.
type RejectedRow struct {
	Raw    records.Record
	Reason string
	Stage  string
}

type fieldMeta struct {
	name     string
	kind     string
	required bool
	nullable bool // no default: nil is written as NULL
}

func (v *Validate) buildMeta() {
	v.metaOnce.Do(func() {
		v.meta = make([]fieldMeta, 0, len(v.Contract.Fields))
		for _, f := range v.Contract.Fields {
			v.meta = append(v.meta, fieldMeta{
				name:     f.Name,
				kind:     f.Type,
				required: f.Required,
				nullable: !f.Required && f.Default == nil,
			})
		}
	})
}

// Apply keeps valid records and reports the others through Reject.
func (v *Validate) Apply(in []records.Record) []records.Record {
	v.buildMeta()
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		if reason := v.check(rec); reason != "" {
			if v.Reject != nil {
				v.Reject(RejectedRow{Raw: rec, Reason: reason, Stage: "validate"})
			}
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (v *Validate) check(r records.Record) string {
	for _, fm := range v.meta {
		val := r[fm.name]
		if val == nil {
			if fm.nullable {
				continue
			}
			if fm.required {
				return fmt.Sprintf("required field %q missing", fm.name)
			}
			return fmt.Sprintf("field %q is null but declares a default", fm.name)
		}

		switch fm.kind {
		case schema.TypeFloat:
			f, ok := val.(float64)
			if !ok {
				return fmt.Sprintf("field %q: %T is not float64", fm.name, val)
			}
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return fmt.Sprintf("field %q: %v is not finite", fm.name, f)
			}
		case schema.TypeInt:
			if _, ok := val.(int64); !ok {
				return fmt.Sprintf("field %q: %T is not int64", fm.name, val)
			}
		case schema.TypeText:
			s, ok := val.(string)
			if !ok {
				return fmt.Sprintf("field %q: %T is not text", fm.name, val)
			}
			if fm.required && s == "" {
				return fmt.Sprintf("required field %q is blank", fm.name)
			}
		}
	}
	return ""
}
