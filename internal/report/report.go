// Package report renders the ranking of the loaded table as a horizontal bar
// chart. The chart format follows the destination extension (.png, .svg,
// .pdf, .jpg, .tif, .eps).
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"batchetl/internal/artifact"
	"batchetl/internal/etlerr"
	"batchetl/internal/metrics"
	"batchetl/internal/storage"
)

// DefaultTopN is used when Report is called with n <= 0.
const DefaultTopN = 10

const (
	chartWidth  = 10 * vg.Inch
	chartHeight = 6 * vg.Inch
)

// openRepository is a test hook that points to storage.New by default.
var openRepository = storage.New

// Reporter draws the top entries of Store's table.
type Reporter struct {
	Store storage.Config
	// Label and Value name the ranking columns: Label is grouped, Value is
	// summed.
	Label string
	Value string

	Title  string
	XLabel string

	Job    string
	Logger *slog.Logger
}

// Report queries the ranking and writes the chart to dst atomically. It
// returns the entries drawn, largest first.
//
// Errors carry an etlerr kind: StoreConnection when the store cannot be
// opened, Render when the query or the drawing fails.
func (r *Reporter) Report(ctx context.Context, dst string, n int) ([]storage.Ranked, error) {
	start := time.Now()
	if n <= 0 {
		n = DefaultTopN
	}

	ranked, err := r.query(ctx, n)
	if err != nil {
		return nil, err
	}

	if err := r.render(dst, ranked); err != nil {
		return nil, etlerr.E(etlerr.Render, "report: draw "+dst, err)
	}

	metrics.RecordRow(r.Job, "reported", int64(len(ranked)))
	r.logger().Info("report: chart written",
		"dst", dst,
		"table", r.Store.Table,
		"entries", len(ranked),
		"elapsed", time.Since(start).Truncate(time.Millisecond),
	)
	return ranked, nil
}

func (r *Reporter) query(ctx context.Context, n int) ([]storage.Ranked, error) {
	repo, err := openRepository(ctx, r.Store)
	if err != nil {
		return nil, etlerr.E(etlerr.StoreConnection, "report: open "+r.Store.Kind, err)
	}
	defer repo.Close()

	ranked, err := repo.TopN(ctx, r.Label, r.Value, n)
	if err != nil {
		return nil, etlerr.E(etlerr.Render, "report: query "+r.Store.Table, err)
	}
	return ranked, nil
}

func (r *Reporter) render(dst string, ranked []storage.Ranked) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(dst)), ".")
	if format == "" {
		return fmt.Errorf("no image format in %q", dst)
	}

	p, err := r.plot(ranked)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(chartWidth, chartHeight, format)
	if err != nil {
		return err
	}
	return artifact.WriteFile(dst, func(out io.Writer) error {
		_, err := wt.WriteTo(out)
		return err
	})
}

// plot lays the bars out bottom-up, so the largest entry ends on top.
func (r *Reporter) plot(ranked []storage.Ranked) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = r.Title
	p.X.Label.Text = r.XLabel
	p.X.Min = 0

	if len(ranked) == 0 {
		p.Title.Text += " (no data)"
		return p, nil
	}

	n := len(ranked)
	vals := make(plotter.Values, n)
	labels := make([]string, n)
	for i, e := range ranked {
		vals[n-1-i] = e.Value
		labels[n-1-i] = e.Label
	}

	bars, err := plotter.NewBarChart(vals, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)

	p.Add(bars)
	p.NominalY(labels...)
	return p, nil
}

func (r *Reporter) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
