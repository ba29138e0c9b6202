package transformer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"time"

	"batchetl/internal/artifact"
	"batchetl/internal/etlerr"
	"batchetl/internal/metrics"
	"batchetl/internal/parser"
	"batchetl/internal/schema"
	"batchetl/pkg/records"
)

// Stats summarizes one Transform call.
type Stats struct {
	// In counts records decoded from the raw artifact.
	In int
	// Skipped counts raw rows the parser could not read (CSV width errors).
	Skipped int
	// Dropped counts records removed by the chain: missing required field,
	// unparseable date, contract violation.
	Dropped int
	// Duplicates counts records collapsed by natural key.
	Duplicates int
	// Defaulted counts derived values that overflowed and were written as
	// the column default instead.
	Defaulted int
	// Out counts rows written to the normalized artifact.
	Out      int
	Duration time.Duration
}

// Job normalizes one raw artifact according to a variant.
type Job struct {
	Contract schema.Contract
	Chain    Chain
	// Encoding is the character set of CSV raw input.
	Encoding string
	// Name labels metrics.
	Name   string
	Logger *slog.Logger

	counts counters
}

// counters are bumped by the chain's drop callbacks during Apply.
type counters struct {
	dropped    int
	duplicates int
	defaulted  int
}

// Transform reads src, applies the chain and writes the normalized CSV to
// dst atomically. Read and parse failures are MalformedData; a failed write
// leaves dst untouched.
func (j *Job) Transform(ctx context.Context, src, dst string) (Stats, error) {
	start := time.Now()
	log := j.logger()
	var st Stats

	if err := ctx.Err(); err != nil {
		return st, err
	}

	recs, skipped, err := j.read(src)
	if err != nil {
		return st, etlerr.E(etlerr.MalformedData, "transform: read "+src, err)
	}
	st.In, st.Skipped = len(recs), skipped

	j.counts = counters{}
	out := j.Chain.Apply(recs)
	st.Dropped, st.Duplicates, st.Defaulted = j.counts.dropped, j.counts.duplicates, j.counts.defaulted

	if err := j.write(dst, out); err != nil {
		return st, etlerr.E(etlerr.Unknown, "transform: write "+dst, err)
	}
	st.Out = len(out)
	sum, size, err := artifact.ChecksumFile(dst)
	if err != nil {
		return st, etlerr.E(etlerr.Unknown, "transform: checksum "+dst, err)
	}
	st.Duration = time.Since(start)

	metrics.RecordRow(j.Name, "transformed", int64(st.Out))
	metrics.RecordRow(j.Name, "dropped", int64(st.Dropped+st.Skipped))
	log.Info("transform: normalized artifact written",
		"src", src,
		"dst", dst,
		"in", st.In,
		"out", st.Out,
		"skipped", st.Skipped,
		"dropped", st.Dropped,
		"duplicates", st.Duplicates,
		"defaulted", st.Defaulted,
		"bytes", size,
		"xxh3", fmt.Sprintf("%016x", sum),
		"elapsed", st.Duration.Truncate(time.Millisecond),
	)
	return st, nil
}

func (j *Job) read(src string) ([]records.Record, int, error) {
	f, err := artifact.Open(src)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	p := parser.For(parser.FormatOf(src), parser.Options{Encoding: j.Encoding})
	return p.Parse(f)
}

// write renders the contract columns of recs in declared order.
func (j *Job) write(dst string, recs []records.Record) error {
	cols := j.Contract.Columns()
	return artifact.WriteFile(dst, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(cols); err != nil {
			return err
		}
		row := make([]string, len(cols))
		for _, r := range recs {
			for i, c := range cols {
				row[i] = schema.Format(r[c])
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		return nil
	})
}

func (j *Job) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
