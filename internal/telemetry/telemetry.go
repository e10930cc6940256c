// Package telemetry records engine events as Prometheus metrics.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jward/langtree"
)

// Recorder implements langtree.Observer on a private registry, so several
// recorders can coexist in one process and in tests.
type Recorder struct {
	reg *prometheus.Registry

	anomalies    *prometheus.CounterVec
	invariants   *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	passNodes    *prometheus.HistogramVec
}

var _ langtree.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		anomalies: f.NewCounterVec(prometheus.CounterOpts{
			Name: "langtree_anomalies_total",
			Help: "Catalog anomalies absorbed by the engine, by kind and reason",
		}, []string{"kind", "reason"}),
		invariants: f.NewCounterVec(prometheus.CounterOpts{
			Name: "langtree_invariant_violations_total",
			Help: "Failed engine self-checks, by check",
		}, []string{"check"}),
		passDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "langtree_pass_duration_seconds",
			Help:    "Engine pass duration",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"op"}),
		passNodes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "langtree_pass_nodes",
			Help:    "Nodes processed per engine pass",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}, []string{"op"}),
	}
}

// ObserveAnomaly counts one absorbed input anomaly by kind and reason.
func (r *Recorder) ObserveAnomaly(kind, reason string) {
	r.anomalies.WithLabelValues(kind, reason).Inc()
}

// ObserveInvariant counts one failed self-check.
func (r *Recorder) ObserveInvariant(check string) {
	r.invariants.WithLabelValues(check).Inc()
}

// ObservePass records the duration and output size of one engine pass.
func (r *Recorder) ObservePass(op string, elapsed time.Duration, nodes int) {
	r.passDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	r.passNodes.WithLabelValues(op).Observe(float64(nodes))
}

// Gatherer exposes the registry, e.g. for promhttp.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes every metric to path in the text exposition format,
// for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
