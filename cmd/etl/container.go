package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"batchetl/internal/config"
	"batchetl/internal/datasource/httpds"
	"batchetl/internal/extract"
	"batchetl/internal/metrics"
	"batchetl/internal/metrics/datadog"
	"batchetl/internal/metrics/prompush"
	"batchetl/internal/pipeline"
	"batchetl/internal/report"
	"batchetl/internal/storage"
	"batchetl/internal/transformer"
)

// now is a test seam for the processed_at stamp.
var now = time.Now

// newLogger builds the slog handler from cfg and installs it as the default,
// which also routes the standard log package through it. The returned func
// closes LOG_FILE, if any.
func newLogger(cfg config.Log, stderr io.Writer) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out, closeFn := stderr, func() {}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		out, closeFn = f, func() { _ = f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	log := slog.New(h)
	slog.SetDefault(log)
	return log, closeFn, nil
}

// setupMetrics installs the configured backend. A backend that fails to
// initialize is logged and replaced by the no-op default; metrics never
// fail a run. The returned func flushes at exit.
func setupMetrics(cfg config.Config, log *slog.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:      cfg.Metrics.DatadogAddr,
			Namespace: "batchetl.",
			Tags:      []string{"variant:" + cfg.Variant},
		})
	default:
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend disabled", "backend", cfg.Metrics.Backend, "error", err)
		return func() {}
	}

	log.Info("metrics: enabled", "backend", cfg.Metrics.Backend, "job", cfg.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush failed", "error", err)
		}
	}
}

// buildOrchestrator wires the four stages. They share nothing but the
// artifact paths.
func buildOrchestrator(cfg config.Config, log *slog.Logger, at time.Time) (*pipeline.Orchestrator, error) {
	variant, err := transformer.ParseVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	mode, err := storage.ParseMode(cfg.LoadMode)
	if err != nil {
		return nil, err
	}
	policy, err := pipeline.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	store := cfg.Store.Storage()
	log.Info("pipeline: configured",
		"job", cfg.Job,
		"variant", variant,
		"source", cfg.Source.URL,
		"store", store.Redacted(),
		"mode", mode,
		"policy", policy,
	)

	ex := extract.New(httpds.NewClient(httpds.Config{
		Timeout:     cfg.Source.Timeout,
		MaxRetries:  cfg.Source.MaxRetries,
		BaseHeaders: cfg.Source.Headers,
	}), log)
	ex.Encoding = cfg.Source.Encoding
	ex.Job = cfg.Job

	var stampAt time.Time
	if cfg.ProcessedAt {
		stampAt = at
	}
	job := transformer.NewJob(variant, transformer.Options{
		PriceFactor: cfg.PriceFactor,
		DateLayouts: cfg.DateLayouts,
		ProcessedAt: stampAt,
		Encoding:    cfg.Source.Encoding,
		Job:         cfg.Job,
		Logger:      log,
	})

	loader := &storage.Loader{
		Store:    store,
		Contract: job.Contract,
		Mode:     mode,
		Job:      cfg.Job,
		Logger:   log,
	}

	rep := &report.Reporter{
		Store:  store,
		Label:  cfg.Report.LabelColumn,
		Value:  cfg.Report.ValueColumn,
		Title:  cfg.Report.Title,
		XLabel: cfg.Report.XLabel,
		Job:    cfg.Job,
		Logger: log,
	}

	return pipeline.New(cfg.Job, policy, log,
		pipeline.Stage{Name: "extract", State: pipeline.Extracting, Run: func(ctx context.Context) error {
			return ex.Fetch(ctx, cfg.Source.URL, cfg.RawPath)
		}},
		pipeline.Stage{Name: "transform", State: pipeline.Transforming, Run: func(ctx context.Context) error {
			_, err := job.Transform(ctx, cfg.RawPath, cfg.NormalizedPath)
			return err
		}},
		pipeline.Stage{Name: "load", State: pipeline.Loading, Run: func(ctx context.Context) error {
			_, err := loader.Load(ctx, cfg.NormalizedPath)
			return err
		}},
		pipeline.Stage{Name: "report", State: pipeline.Reporting, Run: func(ctx context.Context) error {
			ranked, err := rep.Report(ctx, cfg.Report.Path, cfg.Report.TopN)
			if err != nil {
				return err
			}
			if len(ranked) > 0 {
				log.Info("report: top entry", "label", ranked[0].Label, "value", ranked[0].Value)
			}
			return nil
		}},
	)
}
