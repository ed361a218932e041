package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics for bdiff operations.
type Metrics struct {
	OperationsTotal    *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	BytesTotal         *prometheus.CounterVec
	BlocksMatchedTotal prometheus.Counter
	LiteralBytesTotal  prometheus.Counter
}

// NewMetrics creates and registers the bdiff metrics on the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdiff_operations_total",
				Help: "Operations run, by operation and result",
			},
			[]string{"operation", "result"},
		),

		OperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bdiff_operation_duration_seconds",
				Help:    "Operation completion time distribution",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),

		BytesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bdiff_bytes_total",
				Help: "Bytes processed, by direction",
			},
			[]string{"direction"},
		),

		BlocksMatchedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bdiff_blocks_matched_total",
				Help: "New-file chunks matched against basis blocks",
			},
		),

		LiteralBytesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bdiff_literal_bytes_total",
				Help: "Bytes carried as literals in produced deltas",
			},
		),
	}
}

// RecordOperation records completion of an operation.
func (m *Metrics) RecordOperation(op string, success bool, durationSeconds float64) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(durationSeconds)
}

// RecordSignature records signature generation volume.
func (m *Metrics) RecordSignature(basisBytes int64) {
	m.BytesTotal.WithLabelValues("basis").Add(float64(basisBytes))
}

// RecordDelta records delta computation volume.
func (m *Metrics) RecordDelta(newBytes, literalBytes int64, blocksMatched int) {
	m.BytesTotal.WithLabelValues("new").Add(float64(newBytes))
	m.LiteralBytesTotal.Add(float64(literalBytes))
	m.BlocksMatchedTotal.Add(float64(blocksMatched))
}

// RecordPatch records patch application volume.
func (m *Metrics) RecordPatch(bytesWritten int64) {
	m.BytesTotal.WithLabelValues("reconstructed").Add(float64(bytesWritten))
}

// Handler exposes the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
