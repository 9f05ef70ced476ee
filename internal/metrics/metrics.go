// Package metrics records operational metrics for mart builds behind a small,
// backend-agnostic interface.
//
// Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages so
// that the rest of the code depends only on Backend. Unlike a process-wide
// registry, a Recorder is an explicit value: main builds one and hands it to
// whoever reports, and the transformation code never touches it.
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal      = "mart_step_total"
	StepDuration   = "mart_step_duration_seconds"
	RowsTotal      = "mart_rows_total"
	ArtifactsTotal = "mart_artifacts_total"

	statusSuccess = "success"
	statusFailure = "failure"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a latency/duration style value.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// Recorder reports mart-build events for one job to a backend.
type Recorder struct {
	job     string
	backend Backend
}

// NewRecorder returns a Recorder for job. A nil backend records nothing.
func NewRecorder(job string, b Backend) *Recorder {
	if b == nil {
		b = Nop{}
	}
	if job == "" {
		job = "clinician_mart"
	}
	return &Recorder{job: job, backend: b}
}

// RecordStep measures latency and success/failure of one pipeline step.
func (r *Recorder) RecordStep(step string, err error, d time.Duration) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	lbls := Labels{"job": r.job, "step": step, "status": status}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds n rows for the given stage/kind, e.g. "clinician",
// "unified", "filtered", "deduped".
func (r *Recorder) RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	r.backend.IncCounter(RowsTotal, float64(n), Labels{"job": r.job, "kind": kind})
}

// RecordArtifact counts one persisted artifact of the given kind.
func (r *Recorder) RecordArtifact(kind string) {
	r.backend.IncCounter(ArtifactsTotal, 1, Labels{"job": r.job, "kind": kind})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	return r.backend.Flush()
}
