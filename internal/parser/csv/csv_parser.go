// Package csv parses delimited text into records. Header cells become record
// keys (trimmed, lower-cased, spaces to underscores) so "PRODUCTLINE" and
// "productline" address the same column. Input in a legacy single-byte
// encoding is decoded to UTF-8 while streaming.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"

	"batchetl/pkg/records"
)

// Options configures the CSV parser. Zero values give a header-less,
// lenient UTF-8 parser.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// Encoding is an IANA charset name. Empty means UTF-8.
	Encoding string

	// Strict turns a malformed row into a parse error instead of a skip.
	Strict bool
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but not concurrently.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

const utf8BOM = "\uFEFF"

// skipLogLimit caps per-row skip log lines for one Parse call.
const skipLogLimit = 100

// ErrMalformed wraps every row- or header-level failure.
var ErrMalformed = errors.New("csv: malformed input")

// Decode wraps r so that it yields UTF-8 for the named charset.
func Decode(r io.Reader, charset string) (io.Reader, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(r), nil
}

// Lookup resolves an IANA charset name. Empty, "utf-8" and "utf8" map to
// UTF-8 with BOM handling.
func Lookup(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM, nil
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil {
		return nil, fmt.Errorf("csv: unknown encoding %q: %w", charset, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("csv: unsupported encoding %q", charset)
	}
	return enc, nil
}

// Parse consumes all rows of r. It returns the records plus the number of rows
// skipped for parse errors or width mismatches. In strict mode the first such
// row is returned as an error wrapping ErrMalformed.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	_, recs, skipped, err := p.ParseWithHeader(r)
	return recs, skipped, err
}

// ParseWithHeader is Parse that also returns the normalized header, or nil
// when HasHeader is false.
func (p *Parser) ParseWithHeader(r io.Reader) ([]string, []records.Record, int, error) {
	cr, err := p.reader(r)
	if err != nil {
		return nil, nil, 0, err
	}

	var headers []string
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, 0, fmt.Errorf("%w: missing header row", ErrMalformed)
			}
			return nil, nil, 0, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
		}
		headers = normalizeHeaders(h)
	}

	var out []records.Record
	var skipped int

	skip := func(line int, reason error) error {
		if p.opt.Strict {
			return fmt.Errorf("%w: line %d: %v", ErrMalformed, line, reason)
		}
		if skipped < skipLogLimit {
			slog.Warn("csv: skipping row", "line", line, "error", reason)
		}
		skipped++
		return nil
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			if serr := skip(line, err); serr != nil {
				return headers, nil, skipped, serr
			}
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(headers) > 0 && len(row) != len(headers) {
			if serr := skip(line, fmt.Errorf("expected %d fields, got %d", len(headers), len(row))); serr != nil {
				return headers, nil, skipped, serr
			}
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, headers)] = emptyToNil(val)
		}
		out = append(out, rec)
	}

	return headers, out, skipped, nil
}

func (p *Parser) reader(r io.Reader) (*csv.Reader, error) {
	if p.opt.Encoding != "" {
		dr, err := Decode(r, p.opt.Encoding)
		if err != nil {
			return nil, err
		}
		r = dr
	}
	cr := csv.NewReader(r)
	// Width is enforced against the header below so the row can be logged.
	cr.FieldsPerRecord = -1
	return cr, nil
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// NormalizeHeader is the key normalization applied to every header cell.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		res[i] = NormalizeHeader(c)
	}
	return res
}
