package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	RecordsMinted      prometheus.Counter
	RecordsBurned      prometheus.Counter
	RecordsTransferred prometheus.Counter
	OpRejections       *prometheus.CounterVec
	PauseState         prometheus.Gauge
	OpDuration         *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RecordsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "effigy_records_minted_total",
			Help: "Total number of character records minted",
		}),
		RecordsBurned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "effigy_records_burned_total",
			Help: "Total number of character records burned",
		}),
		RecordsTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "effigy_records_transferred_total",
			Help: "Total number of ownership transfers",
		}),
		OpRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "effigy_operation_rejections_total",
			Help: "Rejected operations by operation and error code",
		}, []string{"operation", "code"}),
		PauseState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "effigy_pause_state",
			Help: "1 when the registry halt flag is set, 0 otherwise",
		}),
		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "effigy_operation_duration_seconds",
			Help:    "Latency of registry operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// IncrementRejection records a rejected operation by taxonomy code.
func (m *Metrics) IncrementRejection(operation, code string) {
	if m == nil {
		return
	}
	m.OpRejections.WithLabelValues(operation, code).Inc()
}

// SetPaused mirrors the halt flag into the gauge.
func (m *Metrics) SetPaused(paused bool) {
	if m == nil {
		return
	}
	if paused {
		m.PauseState.Set(1)
		return
	}
	m.PauseState.Set(0)
}
