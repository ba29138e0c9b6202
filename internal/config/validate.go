package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	pcsv "batchetl/internal/parser/csv"
	"batchetl/internal/pipeline"
	"batchetl/internal/storage"
	"batchetl/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks the run.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but the run proceeds.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes one validation finding. Path is the environment variable
// the finding is about.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

var imageFormats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".jpg": true,
	".jpeg": true, ".tif": true, ".tiff": true, ".eps": true,
}

// Validate performs static checks of c. It never touches the network or the
// store.
func Validate(c Config) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if c.Job == "" {
		add(SeverityError, "JOB_NAME", "must not be empty; it labels logs and metrics")
	}
	variant, err := transformer.ParseVariant(c.Variant)
	if err != nil {
		add(SeverityError, "VARIANT", "%v", err)
	}

	issues = append(issues, validateSource(c, variant)...)
	issues = append(issues, validateStore(c.Store)...)

	if _, err := storage.ParseMode(c.LoadMode); err != nil {
		add(SeverityError, "LOAD_MODE", "%v", err)
	}
	if _, err := pipeline.ParsePolicy(c.Policy); err != nil {
		add(SeverityError, "RUN_POLICY", "%v", err)
	}

	if c.Report.TopN <= 0 {
		add(SeverityError, "REPORT_TOP_N", "must be positive, got %d", c.Report.TopN)
	}
	if ext := strings.ToLower(filepath.Ext(c.Report.Path)); !imageFormats[ext] {
		add(SeverityError, "REPORT_PATH", "%q has no supported image extension (png, svg, pdf, jpg, tif, eps)", c.Report.Path)
	}
	if c.Report.LabelColumn == "" || c.Report.ValueColumn == "" {
		add(SeverityError, "REPORT_LABEL_COLUMN", "ranking columns must be set for variant %q", c.Variant)
	}

	if variant == transformer.Crypto && (c.PriceFactor <= 0 || math.IsNaN(c.PriceFactor) || math.IsInf(c.PriceFactor, 0)) {
		add(SeverityError, "PRICE_FACTOR", "must be a positive number, got %v", c.PriceFactor)
	}
	if variant == transformer.Sales && len(c.DateLayouts) == 0 {
		add(SeverityError, "DATE_LAYOUTS", "at least one layout is required for the sales variant")
	}

	issues = append(issues, validateLog(c.Log)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateSource(c Config, variant transformer.Variant) []Issue {
	var issues []Issue

	if c.Source.URL == "" {
		issues = append(issues, Issue{SeverityError, "SOURCE_URL", "must not be empty"})
	}
	if c.Source.Timeout <= 0 {
		issues = append(issues, Issue{SeverityError, "SOURCE_TIMEOUT", fmt.Sprintf("must be positive, got %s", c.Source.Timeout)})
	}
	if c.Source.MaxRetries < 0 {
		issues = append(issues, Issue{SeverityError, "SOURCE_MAX_RETRIES", "must not be negative"})
	}
	if _, err := pcsv.Lookup(c.Source.Encoding); err != nil {
		issues = append(issues, Issue{SeverityError, "SOURCE_ENCODING", err.Error()})
	}

	if c.RawPath == "" {
		issues = append(issues, Issue{SeverityError, "RAW_PATH", "must not be empty"})
	} else if variant == transformer.Sales && !strings.EqualFold(filepath.Ext(c.RawPath), ".csv") {
		issues = append(issues, Issue{SeverityWarning, "RAW_PATH",
			fmt.Sprintf("%q is read as JSON; the sales variant usually extracts a .csv file", c.RawPath)})
	}
	if c.NormalizedPath == "" {
		issues = append(issues, Issue{SeverityError, "NORMALIZED_PATH", "must not be empty"})
	} else if !strings.EqualFold(filepath.Ext(c.NormalizedPath), ".csv") {
		issues = append(issues, Issue{SeverityWarning, "NORMALIZED_PATH",
			fmt.Sprintf("%q is always written as CSV", c.NormalizedPath)})
	}
	if c.RawPath != "" && filepath.Clean(c.RawPath) == filepath.Clean(c.NormalizedPath) {
		issues = append(issues, Issue{SeverityError, "NORMALIZED_PATH", "must differ from RAW_PATH"})
	}
	return issues
}

func validateStore(s Store) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
		return append(issues, Issue{SeverityError, "STORE_KIND", "must not be empty"})
	case "sqlite":
		if s.DSN == "" && s.Path == "" {
			issues = append(issues, Issue{SeverityError, "STORE_PATH", "sqlite needs STORE_PATH or STORE_DSN"})
		}
	case "postgres", "mysql", "mssql":
		if s.DSN == "" {
			if s.Host == "" {
				issues = append(issues, Issue{SeverityError, "STORE_HOST", s.Kind + " needs STORE_HOST or STORE_DSN"})
			}
			if s.Database == "" {
				issues = append(issues, Issue{SeverityError, "STORE_DATABASE", s.Kind + " needs STORE_DATABASE or STORE_DSN"})
			}
			if s.User == "" {
				issues = append(issues, Issue{SeverityWarning, "STORE_USER", "empty; the driver default user will be used"})
			}
		}
	default:
		return append(issues, Issue{SeverityError, "STORE_KIND",
			fmt.Sprintf("unknown store kind %q (want sqlite, postgres, mysql or mssql)", s.Kind)})
	}

	if s.DSN != "" && (s.Host != "" || s.Password != "") {
		issues = append(issues, Issue{SeverityWarning, "STORE_DSN", "set; STORE_HOST and STORE_PASSWORD are ignored"})
	}
	if s.Port < 0 || s.Port > 65535 {
		issues = append(issues, Issue{SeverityError, "STORE_PORT", fmt.Sprintf("%d is not a TCP port", s.Port)})
	}
	if s.Table == "" {
		issues = append(issues, Issue{SeverityError, "STORE_TABLE", "must not be empty"})
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	switch l.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, Issue{SeverityError, "LOG_LEVEL", fmt.Sprintf("unknown level %q", l.Level)})
	}
	switch l.Format {
	case "text", "json":
	default:
		issues = append(issues, Issue{SeverityError, "LOG_FORMAT", fmt.Sprintf("unknown format %q (want text or json)", l.Format)})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue
	switch m.Backend {
	case "", "none":
	case "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "PUSHGATEWAY_URL", "required when METRICS_BACKEND=pushgateway"})
		}
	case "datadog":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "DD_AGENT_ADDR", "required when METRICS_BACKEND=datadog"})
		}
	default:
		issues = append(issues, Issue{SeverityError, "METRICS_BACKEND",
			fmt.Sprintf("unknown backend %q (want none, pushgateway or datadog)", m.Backend)})
	}
	return issues
}
