// Package config builds the immutable run configuration from the process
// environment, optionally seeded by a dotenv file.
//
// Precedence, highest first: process environment, dotenv file, built-in
// defaults. Variant-dependent settings (table, ranking columns, chart
// titles) default from VARIANT when left unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"batchetl/internal/storage"
)

// DefaultEnvFile is read when ENV_FILE is unset. A missing default file is
// not an error.
const DefaultEnvFile = ".env"

// Config is built once by Load and never mutated.
type Config struct {
	Job     string
	Variant string

	Source Source

	RawPath        string
	NormalizedPath string

	Store    Store
	LoadMode string
	Policy   string

	Report Report

	PriceFactor float64
	DateLayouts []string
	ProcessedAt bool

	Log     Log
	Metrics Metrics
}

// Source is where the extract stage reads from.
type Source struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
	Encoding   string
	// Headers are sent with every HTTP request, e.g. an API key.
	Headers http.Header
}

// Store describes the relational store. DSN, when set, overrides the
// discrete connection fields.
type Store struct {
	Kind     string
	Path     string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	DSN      string
	Table    string
}

// Storage converts s into the storage package's connection config.
func (s Store) Storage() storage.Config {
	return storage.Config{
		Kind:     s.Kind,
		DSN:      s.DSN,
		Table:    s.Table,
		Path:     s.Path,
		Host:     s.Host,
		Port:     s.Port,
		User:     s.User,
		Password: s.Password,
		Database: s.Database,
		SSLMode:  s.SSLMode,
	}
}

// Report configures the chart.
type Report struct {
	Path        string
	TopN        int
	LabelColumn string
	ValueColumn string
	Title       string
	XLabel      string
}

type Log struct {
	Level  string
	Format string
	// File, if set, receives log lines instead of stderr.
	File string
}

type Metrics struct {
	Backend        string
	PushgatewayURL string
	DatadogAddr    string
}

var defaults = map[string]any{
	"JOB_NAME":           "batchetl",
	"VARIANT":            "crypto",
	"SOURCE_TIMEOUT":     "30s",
	"SOURCE_MAX_RETRIES": 0,
	"SOURCE_ENCODING":    "utf-8",
	"SOURCE_HEADERS":     "",
	"RAW_PATH":           "data/raw/raw_data.json",
	"NORMALIZED_PATH":    "data/processed/clean_data.csv",
	"STORE_KIND":         "sqlite",
	"STORE_PATH":         "data/etl.db",
	"LOAD_MODE":          "replace",
	"RUN_POLICY":         "fail-fast",
	"REPORT_PATH":        "data/plots/top_n.png",
	"REPORT_TOP_N":       10,
	"PRICE_FACTOR":       1.2,
	"DATE_LAYOUTS":       "1/2/2006 15:04,2006-01-02,2006-01-02 15:04:05,2006-01-02T15:04:05Z07:00",
	"PROCESSED_AT":       false,
	"LOG_LEVEL":          "info",
	"LOG_FORMAT":         "text",
	"METRICS_BACKEND":    "none",
}

// variantDefaults fill the settings whose default depends on VARIANT.
type variantDefaults struct {
	table, label, value string
	title               func(topN int) string
	xLabel              string
}

var byVariant = map[string]variantDefaults{
	"crypto": {
		table: "crypto_data",
		label: "name",
		value: "market_cap",
		title: func(n int) string {
			return fmt.Sprintf("Top %d Cryptocurrencies by Market Capitalization", n)
		},
		xLabel: "Market Cap (USD)",
	},
	"sales": {
		table: "sales",
		label: "country",
		value: "sales",
		title: func(n int) string {
			return fmt.Sprintf("Sales by country (top %d)", n)
		},
		xLabel: "Sales",
	},
}

// Load reads envFile (DefaultEnvFile if empty) and the environment. An
// explicitly named envFile must exist.
func Load(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	fileVals, err := godotenv.Read(envFile)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read env file %s: %w", envFile, err)
		}
		fileVals = nil
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	for k, val := range fileVals {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	timeout, err := parseDuration(v.GetString("SOURCE_TIMEOUT"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SOURCE_TIMEOUT: %w", err)
	}
	headers, err := parseHeaders(v.GetString("SOURCE_HEADERS"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SOURCE_HEADERS: %w", err)
	}

	c := Config{
		Job:     strings.TrimSpace(v.GetString("JOB_NAME")),
		Variant: strings.ToLower(strings.TrimSpace(v.GetString("VARIANT"))),
		Source: Source{
			URL:        strings.TrimSpace(v.GetString("SOURCE_URL")),
			Timeout:    timeout,
			MaxRetries: v.GetInt("SOURCE_MAX_RETRIES"),
			Encoding:   v.GetString("SOURCE_ENCODING"),
			Headers:    headers,
		},
		RawPath:        v.GetString("RAW_PATH"),
		NormalizedPath: v.GetString("NORMALIZED_PATH"),
		Store: Store{
			Kind:     strings.ToLower(strings.TrimSpace(v.GetString("STORE_KIND"))),
			Path:     v.GetString("STORE_PATH"),
			Host:     v.GetString("STORE_HOST"),
			Port:     v.GetInt("STORE_PORT"),
			User:     v.GetString("STORE_USER"),
			Password: v.GetString("STORE_PASSWORD"),
			Database: v.GetString("STORE_DATABASE"),
			SSLMode:  v.GetString("STORE_SSLMODE"),
			DSN:      v.GetString("STORE_DSN"),
			Table:    v.GetString("STORE_TABLE"),
		},
		LoadMode: strings.ToLower(strings.TrimSpace(v.GetString("LOAD_MODE"))),
		Policy:   strings.ToLower(strings.TrimSpace(v.GetString("RUN_POLICY"))),
		Report: Report{
			Path:        v.GetString("REPORT_PATH"),
			TopN:        v.GetInt("REPORT_TOP_N"),
			LabelColumn: v.GetString("REPORT_LABEL_COLUMN"),
			ValueColumn: v.GetString("REPORT_VALUE_COLUMN"),
			Title:       v.GetString("REPORT_TITLE"),
			XLabel:      v.GetString("REPORT_X_LABEL"),
		},
		PriceFactor: v.GetFloat64("PRICE_FACTOR"),
		DateLayouts: splitList(v.GetString("DATE_LAYOUTS")),
		ProcessedAt: v.GetBool("PROCESSED_AT"),
		Log: Log{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
			File:   v.GetString("LOG_FILE"),
		},
		Metrics: Metrics{
			Backend:        strings.ToLower(strings.TrimSpace(v.GetString("METRICS_BACKEND"))),
			PushgatewayURL: v.GetString("PUSHGATEWAY_URL"),
			DatadogAddr:    v.GetString("DD_AGENT_ADDR"),
		},
	}

	if d, ok := byVariant[c.Variant]; ok {
		if c.Store.Table == "" {
			c.Store.Table = d.table
		}
		if c.Report.LabelColumn == "" {
			c.Report.LabelColumn = d.label
		}
		if c.Report.ValueColumn == "" {
			c.Report.ValueColumn = d.value
		}
		if c.Report.Title == "" {
			c.Report.Title = d.title(c.Report.TopN)
		}
		if c.Report.XLabel == "" {
			c.Report.XLabel = d.xLabel
		}
	}
	return c, nil
}

// parseDuration accepts Go durations ("30s") and bare seconds ("30").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s + "s")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// parseHeaders reads "Name: value" pairs separated by semicolons.
func parseHeaders(s string) (http.Header, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	h := http.Header{}
	for _, pair := range strings.Split(s, ";") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, fmt.Errorf("invalid header %q (want Name: value)", strings.TrimSpace(pair))
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
