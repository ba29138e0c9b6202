package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{})

	if c.httpClient.Timeout != 30*time.Second {
		t.Fatalf("expected 30s default timeout, got %v", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 {
		t.Fatalf("expected default maxRetries=0, got %d", c.maxRetries)
	}
	if c.initialBackoff <= 0 || c.maxBackoff <= 0 {
		t.Fatalf("expected positive backoff defaults, got %v/%v", c.initialBackoff, c.maxBackoff)
	}

	transport, ok := c.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.httpClient.Transport)
	}
	if transport == http.DefaultTransport {
		t.Fatalf("expected a private transport, got http.DefaultTransport")
	}
	if transport.Proxy == nil {
		t.Fatalf("expected proxy settings from the environment")
	}
}

// With defaults a failing endpoint is hit exactly once.
func TestGet_DefaultIsSingleAttempt(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{})
	c.sleep = func(time.Duration) {}

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected exactly 1 request, got %d", got)
	}
}

func TestGet_RetryOn5xxThenSuccess(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{
		MaxRetries:     3,
		Timeout:        2 * time.Second,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	var sleeps int32
	c.sleep = func(time.Duration) { atomic.AddInt32(&sleeps, 1) }

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts (2x500 + 1x200), got %d", got)
	}
	if atomic.LoadInt32(&sleeps) != 2 {
		t.Fatalf("expected 2 backoff waits, got %d", sleeps)
	}
}

// When retries run out on a retryable status the last response is returned
// so the caller can report its code.
func TestGet_ExhaustedRetriesReturnLastResponse(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	c.sleep = func(time.Duration) {}

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("expected 3 attempts (1 initial + 2 retries), got %d", got)
	}
}

func TestGet_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 5})
	c.sleep = func(time.Duration) {}

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	defer resp.Body.Close()
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected 1 attempt for 404, got %d", got)
	}
}

func TestGet_TransportErrorSurfaces(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial refused")
	c := NewClient(Config{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	})})

	_, err := c.Get(context.Background(), "http://example.invalid/", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestGet_HeadersMerge(t *testing.T) {
	t.Parallel()

	var got http.Header
	c := NewClient(Config{
		BaseHeaders: http.Header{"Accept": {"application/json"}, "X-Job": {"base"}},
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			got = r.Header.Clone()
			return &http.Response{StatusCode: 200, Body: io.NopCloser(http.NoBody), Request: r}, nil
		}),
	})

	resp, err := c.Get(context.Background(), "http://example.invalid/", http.Header{"X-Job": {"override"}})
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	resp.Body.Close()

	if got.Get("Accept") != "application/json" || got.Get("X-Job") != "override" {
		t.Fatalf("unexpected headers: %v", got)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		initial time.Duration
		attempt int
		max     time.Duration
		want    time.Duration
	}{
		{100 * time.Millisecond, 0, time.Second, 100 * time.Millisecond},
		{100 * time.Millisecond, 1, time.Second, 200 * time.Millisecond},
		{100 * time.Millisecond, 2, time.Second, 400 * time.Millisecond},
		{600 * time.Millisecond, 1, time.Second, time.Second},
		{2 * time.Second, 0, time.Second, time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.initial.String()+"/attempt="+strconv.Itoa(tt.attempt), func(t *testing.T) {
			t.Parallel()
			if got := backoffDuration(tt.initial, tt.attempt, tt.max); got != tt.want {
				t.Fatalf("backoffDuration(%v, %d, %v) = %v, want %v", tt.initial, tt.attempt, tt.max, got, tt.want)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{429, 500, 503} {
		if !isRetryableStatus(code) {
			t.Fatalf("expected status %d to be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 404} {
		if isRetryableStatus(code) {
			t.Fatalf("expected status %d to be non-retryable", code)
		}
	}
}

func TestCustomTransport(t *testing.T) {
	t.Parallel()

	custom := &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}
	c := NewClient(Config{Transport: custom})

	if !reflect.DeepEqual(c.httpClient.Transport, custom) {
		t.Fatalf("expected custom transport to be used")
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepWithContext(ctx, func(time.Duration) {}, 100*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
