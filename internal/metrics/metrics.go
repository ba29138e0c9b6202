// Package metrics records operational metrics of a pipeline run behind a
// small backend-agnostic interface.
//
// The default backend is a no-op, so stages can record unconditionally.
// Concrete backends live in subpackages: prompush pushes to a Prometheus
// Pushgateway at the end of the run, datadog sends DogStatsD packets.
//
// Metric names:
//
//	etl_step_total{job,step,status}            status: success | failure | skipped
//	etl_step_duration_seconds{job,step,status}
//	etl_records_total{job,kind}                kind: extracted | transformed | dropped | loaded | reported
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is implemented by every metrics sink.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one executed stage and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("etl_step_total", 1, lbls)
	backend.ObserveHistogram("etl_step_duration_seconds", d.Seconds(), lbls)
}

// RecordSkip counts a stage the orchestrator did not run.
func RecordSkip(job, step string) {
	backend.IncCounter("etl_step_total", 1, Labels{
		"job":    job,
		"step":   step,
		"status": "skipped",
	})
}

// RecordRow increments the record counter of kind. Non-positive deltas are
// ignored.
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_records_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
