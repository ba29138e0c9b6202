// Package schema declares the fixed table contracts the pipeline writes.
// A Contract is the single source for the normalized artifact header, the
// CREATE TABLE statement of every backend, and the null-default policy.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Field types understood by the transformer, the loader and the DDL mappers.
const (
	TypeText  = "text"
	TypeFloat = "float"
	TypeInt   = "int"
)

// Field is one persisted column.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" | "float" | "int"
	Required bool   `json:"required,omitempty"`
	// Default replaces a null value before the record is written. Only
	// meaningful when Required is false.
	Default any `json:"default,omitempty"`
}

// Contract describes a target table.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
	// Key is the natural key; the table carries a UNIQUE constraint on it
	// and append loads upsert on it.
	Key []string `json:"key"`
	// Identity names the auto-increment surrogate primary key. It is never
	// part of Fields or of the normalized artifact.
	Identity string `json:"identity,omitempty"`
}

// Columns returns the field names in declared order.
func (c Contract) Columns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field by name.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Types maps field name to declared type.
func (c Contract) Types() map[string]string {
	out := make(map[string]string, len(c.Fields))
	for _, f := range c.Fields {
		out[f.Name] = f.Type
	}
	return out
}

// Defaults maps every field that declares a default to that default.
func (c Contract) Defaults() map[string]any {
	out := make(map[string]any)
	for _, f := range c.Fields {
		if f.Default != nil {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Required lists the required field names in declared order.
func (c Contract) Required() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Validate checks the contract itself: unique, non-empty names, known types,
// and a key made of declared required fields.
func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("schema: contract name must not be empty")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("schema: contract %s has no fields", c.Name)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: contract %s has a field with empty name", c.Name)
		}
		if f.Name == c.Identity {
			return fmt.Errorf("schema: contract %s: field %s collides with the identity column", c.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema: contract %s: duplicate field %s", c.Name, f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeText, TypeFloat, TypeInt:
		default:
			return fmt.Errorf("schema: contract %s: field %s has unknown type %q", c.Name, f.Name, f.Type)
		}
	}
	if len(c.Key) == 0 {
		return fmt.Errorf("schema: contract %s has no natural key", c.Name)
	}
	for _, k := range c.Key {
		f, ok := c.Field(k)
		if !ok {
			return fmt.Errorf("schema: contract %s: key column %s is not a field", c.Name, k)
		}
		if !f.Required {
			return fmt.Errorf("schema: contract %s: key column %s must be required", c.Name, k)
		}
	}
	return nil
}

// Parse converts the textual form of a value (as found in the normalized
// CSV) to the Go type of f. An empty string is null; a null required field
// is an error, a null optional field yields its Default.
func (f Field) Parse(s string) (any, error) {
	if s == "" {
		if f.Required {
			return nil, fmt.Errorf("field %s: required value is empty", f.Name)
		}
		return f.Default, nil
	}
	switch f.Type {
	case TypeFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not a float", f.Name, s)
		}
		return v, nil
	case TypeInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: %q is not an integer", f.Name, s)
		}
		return v, nil
	default:
		return s, nil
	}
}

// Format renders v the way Parse reads it back. Floats use the shortest
// decimal form that round-trips.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
