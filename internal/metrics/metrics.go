// Package metrics registers the module's prometheus collectors and
// exposes report helpers the sync services call directly. Collectors
// live on the default registry; the dev server serves them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the root namespace every collector of this module is
// registered under.
const Namespace = "lifetracker"

const (
	subsystemSync  = "sync"
	subsystemBlobs = "blobs"
)

// NewCounter creates a counter vector under the module namespace.
func NewCounter(name, subsystem, help string, labels []string) *prometheus.CounterVec {
	return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewGauge creates a gauge vector under the module namespace.
func NewGauge(name, subsystem, help string, labels []string) *prometheus.GaugeVec {
	return promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help}, labels)
}

// NewHistogramWithBuckets creates a histogram vector with custom buckets
// under the module namespace.
func NewHistogramWithBuckets(name, subsystem, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return promauto.NewHistogramVec(prometheus.HistogramOpts{Namespace: Namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets}, labels)
}

var (
	cycleRuns = NewCounter(
		"cycle_runs",
		subsystemSync,
		"finished sync cycles by outcome",
		[]string{"outcome"},
	)

	stageDuration = NewHistogramWithBuckets(
		"stage_duration_seconds",
		subsystemSync,
		"wall time spent per cycle stage",
		[]string{"stage"},
		prometheus.ExponentialBuckets(0.001, 2, 14),
	)

	conflictsSettled = NewCounter(
		"conflicts",
		subsystemSync,
		"conflicting entities by applied resolution",
		[]string{"resolution"},
	)

	oversizeSkipped = NewCounter(
		"oversize_skipped",
		subsystemSync,
		"entities skipped for exceeding the configured size cap",
		[]string{},
	).WithLabelValues()

	transportRetries = NewCounter(
		"transport_retries",
		subsystemSync,
		"transient transport failures that were retried",
		[]string{"op"},
	)

	entitiesMoved = NewCounter(
		"entities_moved",
		subsystemSync,
		"entities transferred between the local and remote stores",
		[]string{"direction"},
	)
	entitiesPushed = entitiesMoved.WithLabelValues("push")
	entitiesPulled = entitiesMoved.WithLabelValues("pull")

	artifactRequests = NewCounter(
		"artifact_requests",
		subsystemBlobs,
		"blob server requests by operation and outcome",
		[]string{"op", "outcome"},
	)
)

// ReportCycle counts one finished sync cycle under its outcome.
func ReportCycle(outcome string) {
	cycleRuns.WithLabelValues(outcome).Inc()
}

// ReportStageDuration records wall time spent in one cycle stage.
func ReportStageDuration(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ReportConflicts counts n conflicting entities settled by resolution.
func ReportConflicts(resolution string, n int) {
	if n <= 0 {
		return
	}
	conflictsSettled.WithLabelValues(resolution).Add(float64(n))
}

// ReportOversizeSkip counts one entity skipped for exceeding the size cap.
func ReportOversizeSkip() {
	oversizeSkipped.Inc()
}

// ReportTransportRetry counts one retried transient failure of the named
// transport operation.
func ReportTransportRetry(op string) {
	transportRetries.WithLabelValues(op).Inc()
}

// ReportPushed counts entities uploaded to the remote store.
func ReportPushed(n int) {
	if n <= 0 {
		return
	}
	entitiesPushed.Add(float64(n))
}

// ReportPulled counts entities downloaded from the remote store.
func ReportPulled(n int) {
	if n <= 0 {
		return
	}
	entitiesPulled.Add(float64(n))
}

// ReportArtifactRequest counts one handled blob server request under
// its operation name and outcome.
func ReportArtifactRequest(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	artifactRequests.WithLabelValues(op, outcome).Inc()
}
