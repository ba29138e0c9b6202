package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"batchetl/internal/artifact"
	"batchetl/internal/etlerr"
	"batchetl/internal/metrics"
	pcsv "batchetl/internal/parser/csv"
	"batchetl/internal/schema"
	"batchetl/pkg/records"
)

// openRepository is a test hook that points to New by default.
var openRepository = New

// Loader persists one normalized artifact into a store.
type Loader struct {
	Store    Config
	Contract schema.Contract
	Mode     Mode
	// Job labels metrics.
	Job    string
	Logger *slog.Logger
}

// Stats summarizes a load.
type Stats struct {
	Table    string
	Mode     Mode
	Rows     int64
	Duration time.Duration
}

// Load reads the CSV at src, checks its header against the contract, and
// writes all rows according to l.Mode. The store is opened and closed inside
// the call.
//
// Errors carry an etlerr kind: MalformedData for artifact problems,
// StoreConnection when the store cannot be reached, StoreWrite for DDL and
// write failures. A failed write leaves the table as it was.
func (l *Loader) Load(ctx context.Context, src string) (Stats, error) {
	start := time.Now()
	log := l.logger()

	mode := l.Mode
	if mode == "" {
		mode = Replace
	}
	cfg := l.Store
	if cfg.Table == "" {
		cfg.Table = l.Contract.Name
	}
	st := Stats{Table: cfg.Table, Mode: mode}

	rows, recs, err := readArtifact(src, l.Contract)
	if err != nil {
		return st, etlerr.E(etlerr.MalformedData, "load: read "+src, err)
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return st, etlerr.E(etlerr.StoreConnection, "load: open "+cfg.Kind, err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx, l.Contract); err != nil {
		return st, etlerr.E(etlerr.StoreWrite, "load: ensure schema "+cfg.Table, err)
	}

	n, err := repo.Write(ctx, l.Contract, rows, mode)
	if err != nil {
		var re *RowError
		if errors.As(err, &re) && re.Index >= 0 && re.Index < len(recs) {
			log.Error("load: row rejected, rolled back",
				"table", cfg.Table,
				"mode", string(mode),
				"line", re.Index+2,
				"key", keyValues(l.Contract, recs[re.Index]),
				"error", re.Err,
			)
		}
		return st, etlerr.E(etlerr.StoreWrite, fmt.Sprintf("load: %s %s", mode, cfg.Table), err)
	}

	st.Rows = n
	st.Duration = time.Since(start)
	metrics.RecordRow(l.Job, "loaded", n)
	log.Info("load: committed",
		"table", cfg.Table,
		"kind", cfg.Kind,
		"mode", string(mode),
		"rows", n,
		"elapsed", st.Duration.Truncate(time.Millisecond),
	)
	return st, nil
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// readArtifact parses the normalized CSV into typed rows aligned with
// c.Columns(). Row i of the result sits on artifact line i+2.
func readArtifact(path string, c schema.Contract) ([][]any, []records.Record, error) {
	f, err := artifact.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	p := pcsv.NewParser(pcsv.Options{HasHeader: true, Strict: true})
	header, recs, _, err := p.ParseWithHeader(f)
	if err != nil {
		return nil, nil, err
	}
	if want := c.Columns(); !slices.Equal(header, want) {
		return nil, nil, fmt.Errorf("header %q does not match %s columns %q",
			strings.Join(header, ","), c.Name, strings.Join(want, ","))
	}

	rows := make([][]any, 0, len(recs))
	for i, rec := range recs {
		row := make([]any, len(c.Fields))
		for j, fld := range c.Fields {
			s, _ := rec[fld.Name].(string)
			v, err := fld.Parse(s)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", i+2, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, recs, nil
}

func keyValues(c schema.Contract, rec records.Record) string {
	parts := make([]string, len(c.Key))
	for i, k := range c.Key {
		parts[i] = fmt.Sprintf("%s=%v", k, rec[k])
	}
	return strings.Join(parts, " ")
}
