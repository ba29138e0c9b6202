// Package parser picks a record decoder for a raw artifact. The extract stage
// uses it to validate payloads before they are written; the transform stage
// uses it to read them back.
package parser

import (
	"io"
	"path/filepath"
	"strings"

	"batchetl/internal/parser/csv"
	"batchetl/internal/parser/json"
	"batchetl/pkg/records"
)

// Parser decodes a whole input. The int result counts rows that were
// skipped without failing the parse.
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}

// Format is the raw artifact encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatOf infers the format from the artifact's extension. Anything that is
// not .csv is treated as JSON.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Options configures For.
type Options struct {
	// Encoding names the character set of CSV input ("utf-8",
	// "windows-1252", ...). Ignored for JSON, which is always UTF-8.
	Encoding string
	// Strict makes the CSV parser fail on malformed rows instead of
	// skipping them.
	Strict bool
}

// For returns the parser for format.
func For(format Format, opt Options) Parser {
	if format == FormatCSV {
		return csv.NewParser(csv.Options{
			HasHeader: true,
			TrimSpace: true,
			Encoding:  opt.Encoding,
			Strict:    opt.Strict,
		})
	}
	return json.NewParser()
}
