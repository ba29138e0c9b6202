// Package json decodes raw JSON payloads into records.
//
// Two shapes are accepted, matching what list endpoints return:
//
//	[{"id":"bitcoin","current_price":67000}, ...]   // array of objects
//	{"id":"bitcoin","current_price":67000}          // single object
//
// Anything else (scalars, arrays holding non-objects, trailing values) is an
// error. Numbers are kept as json.Number so later stages choose the type.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"batchetl/pkg/records"
)

// ErrShape is wrapped by every error caused by a well-formed document that
// is not an object or an array of objects.
var ErrShape = errors.New("json parser: unsupported document shape")

// Parser implements parser.Parser for JSON.
type Parser struct{}

// NewParser returns a JSON Parser.
func NewParser() *Parser { return &Parser{} }

// Parse decodes all records from r. The skipped count is always 0: JSON input
// is either entirely valid or rejected.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	recs, err := DecodeAll(r)
	return recs, 0, err
}

// DecodeAll reads one JSON document from r and returns its records. An empty
// array yields an empty, non-nil slice; an empty input is an error.
func DecodeAll(r io.Reader) ([]records.Record, error) {
	d := json.NewDecoder(r)
	d.UseNumber()

	var root any
	if err := d.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("json parser: empty document")
		}
		return nil, fmt.Errorf("json parser: decode: %w", err)
	}

	// Reject trailing values such as `[] {}`.
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, fmt.Errorf("%w: trailing data after top-level value", ErrShape)
		}
		return nil, fmt.Errorf("json parser: decode trailing: %w", err)
	}

	switch v := root.(type) {
	case map[string]any:
		return []records.Record{records.Record(v)}, nil

	case []any:
		out := make([]records.Record, 0, len(v))
		for i, elem := range v {
			obj, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrShape, i, kindOf(elem))
			}
			out = append(out, records.Record(obj))
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: top-level %s", ErrShape, kindOf(v))
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
