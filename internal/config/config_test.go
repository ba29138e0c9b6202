package config

import (
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

var envKeys = []string{
	"JOB_NAME", "VARIANT", "SOURCE_URL", "SOURCE_TIMEOUT", "SOURCE_MAX_RETRIES", "SOURCE_ENCODING",
	"RAW_PATH", "NORMALIZED_PATH", "STORE_KIND", "STORE_PATH", "STORE_HOST", "STORE_PORT", "STORE_USER",
	"STORE_PASSWORD", "STORE_DATABASE", "STORE_SSLMODE", "STORE_DSN", "STORE_TABLE", "LOAD_MODE",
	"RUN_POLICY", "REPORT_PATH", "REPORT_TOP_N", "REPORT_LABEL_COLUMN", "REPORT_VALUE_COLUMN",
	"REPORT_TITLE", "REPORT_X_LABEL", "PRICE_FACTOR", "DATE_LAYOUTS", "PROCESSED_AT", "LOG_LEVEL",
	"LOG_FORMAT", "LOG_FILE", "METRICS_BACKEND", "PUSHGATEWAY_URL", "DD_AGENT_ADDR", "SOURCE_HEADERS",
}

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeEnvFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir()) // no .env here
	t.Setenv("SOURCE_URL", "https://api.example.com/coins")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	checks := map[string][2]any{
		"job":        {c.Job, "batchetl"},
		"variant":    {c.Variant, "crypto"},
		"timeout":    {c.Source.Timeout, 30 * time.Second},
		"retries":    {c.Source.MaxRetries, 0},
		"raw":        {c.RawPath, "data/raw/raw_data.json"},
		"normalized": {c.NormalizedPath, "data/processed/clean_data.csv"},
		"kind":       {c.Store.Kind, "sqlite"},
		"path":       {c.Store.Path, "data/etl.db"},
		"table":      {c.Store.Table, "crypto_data"},
		"mode":       {c.LoadMode, "replace"},
		"policy":     {c.Policy, "fail-fast"},
		"report":     {c.Report.Path, "data/plots/top_n.png"},
		"topn":       {c.Report.TopN, 10},
		"label":      {c.Report.LabelColumn, "name"},
		"value":      {c.Report.ValueColumn, "market_cap"},
		"title":      {c.Report.Title, "Top 10 Cryptocurrencies by Market Capitalization"},
		"factor":     {c.PriceFactor, 1.2},
		"stamp":      {c.ProcessedAt, false},
		"level":      {c.Log.Level, "info"},
		"metrics":    {c.Metrics.Backend, "none"},
	}
	for name, pair := range checks {
		if !reflect.DeepEqual(pair[0], pair[1]) {
			t.Fatalf("%s = %#v, want %#v", name, pair[0], pair[1])
		}
	}
	if len(c.DateLayouts) != 4 || c.DateLayouts[0] != "1/2/2006 15:04" {
		t.Fatalf("DateLayouts = %q", c.DateLayouts)
	}
	if issues := Validate(c); HasErrors(issues) {
		t.Fatalf("defaults should validate, got %v", issues)
	}
}

func TestLoadSalesVariantDefaults(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "VARIANT=sales\nSOURCE_URL=data/sales_data_sample.csv\nRAW_PATH=data/raw/sales.csv\nREPORT_TOP_N=5\n")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Store.Table != "sales" || c.Report.LabelColumn != "country" || c.Report.ValueColumn != "sales" {
		t.Fatalf("sales defaults not applied: %+v %+v", c.Store, c.Report)
	}
	if c.Report.Title != "Sales by country (top 5)" {
		t.Fatalf("title = %q", c.Report.Title)
	}
}

func TestEnvironmentBeatsEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, "SOURCE_URL=https://from-file\nSTORE_KIND=postgres\nSTORE_TABLE=file_table\n")
	t.Setenv("SOURCE_URL", "https://from-env")
	t.Setenv("SOURCE_TIMEOUT", "5")
	t.Setenv("PROCESSED_AT", "true")
	t.Setenv("DATE_LAYOUTS", " 2006-01-02 , ,02.01.2006")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Source.URL != "https://from-env" {
		t.Fatalf("SOURCE_URL = %q; env should win", c.Source.URL)
	}
	if c.Store.Kind != "postgres" || c.Store.Table != "file_table" {
		t.Fatalf("file values lost: %+v", c.Store)
	}
	if c.Source.Timeout != 5*time.Second {
		t.Fatalf("bare seconds timeout = %v", c.Source.Timeout)
	}
	if !c.ProcessedAt {
		t.Fatalf("PROCESSED_AT not parsed")
	}
	if want := []string{"2006-01-02", "02.01.2006"}; !reflect.DeepEqual(c.DateLayouts, want) {
		t.Fatalf("DateLayouts = %q, want %q", c.DateLayouts, want)
	}
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for a missing explicit env file")
	}
}

func TestLoadBadTimeout(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_TIMEOUT", "soon")
	if _, err := Load(writeEnvFile(t, "")); err == nil {
		t.Fatalf("expected error for SOURCE_TIMEOUT=soon")
	}
}

func TestLoadSourceHeaders(t *testing.T) {
	clearEnv(t)
	t.Setenv("SOURCE_HEADERS", "x-cg-demo-api-key: abc ; Accept-Language: en;")

	c, err := Load(writeEnvFile(t, ""))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := http.Header{"X-Cg-Demo-Api-Key": {"abc"}, "Accept-Language": {"en"}}
	if !reflect.DeepEqual(c.Source.Headers, want) {
		t.Fatalf("Headers = %v, want %v", c.Source.Headers, want)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in      string
		want    http.Header
		wantErr bool
	}{
		{"", nil, false},
		{"X-Key: v", http.Header{"X-Key": {"v"}}, false},
		{"X-Key: a:b", http.Header{"X-Key": {"a:b"}}, false},
		{"no-colon", nil, true},
		{": v", nil, true},
		{"Bad Name: v", nil, true},
	}
	for _, tc := range tests {
		got, err := parseHeaders(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseHeaders(%q) err = %v, wantErr %v", tc.in, err, tc.wantErr)
		}
		if !tc.wantErr && !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseHeaders(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStoreStorage(t *testing.T) {
	s := Store{Kind: "mysql", Host: "db", Port: 3307, User: "etl", Password: "pw", Database: "w", SSLMode: "disable", Table: "sales"}
	got := s.Storage()
	if got.Kind != "mysql" || got.Host != "db" || got.Port != 3307 || got.Table != "sales" || got.Password != "pw" {
		t.Fatalf("Storage() = %+v", got)
	}
}
