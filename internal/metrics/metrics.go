// Package metrics provides Prometheus metrics for import runs. The
// importer is a batch job, so metrics are written to a node-exporter
// textfile at the end of the process rather than served.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mdrimport"

// Metrics holds the run metrics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RowsTransferred *prometheus.CounterVec
	Chunks          *prometheus.CounterVec
	RunDuration     *prometheus.GaugeVec
	RunFailures     *prometheus.CounterVec
}

// New returns metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RowsTransferred: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_transferred_total",
				Help:      "Rows copied from staging into normalized tables",
			},
			[]string{"source", "table"},
		),
		Chunks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chunks_total",
				Help:      "Committed transfer chunks",
			},
			[]string{"source", "table"},
		),
		RunDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last run of a source",
			},
			[]string{"source"},
		),
		RunFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_failures_total",
				Help:      "Source runs that ended in failure",
			},
			[]string{"source"},
		),
	}
}

// ChunkCommitted records one committed chunk.
func (m *Metrics) ChunkCommitted(sourceID int, table string, rows int64) {
	src := strconv.Itoa(sourceID)
	m.RowsTransferred.WithLabelValues(src, table).Add(float64(rows))
	m.Chunks.WithLabelValues(src, table).Inc()
}

// RunFinished records the duration and outcome of a source run.
func (m *Metrics) RunFinished(sourceID int, d time.Duration, err error) {
	src := strconv.Itoa(sourceID)
	m.RunDuration.WithLabelValues(src).Set(d.Seconds())
	if err != nil {
		m.RunFailures.WithLabelValues(src).Inc()
	}
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format. An
// empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
