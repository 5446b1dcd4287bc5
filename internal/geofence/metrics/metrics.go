package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for geofence evaluation.
type Metrics struct {
	// Verdicts by mode and terminal status
	Verdicts *prometheus.CounterVec

	EvaluateLatency prometheus.Histogram

	// Failed location acquisitions by location error code
	AcquireFailures *prometheus.CounterVec
}

// New creates the geofence metrics. Call once per process: promauto
// registers on the default registry.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_geofence_verdicts_total",
			Help: "Geofence verdicts by mode and status",
		}, []string{"mode", "status"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "anima_geofence_evaluate_duration_seconds",
			Help:    "Duration of a full geofence evaluation including location sampling",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),

		AcquireFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_location_acquire_failures_total",
			Help: "Failed location acquisitions by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncrementVerdict(mode, status string) {
	if m != nil {
		m.Verdicts.WithLabelValues(mode, status).Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementAcquireFailure satisfies location.FailureRecorder.
func (m *Metrics) IncrementAcquireFailure(code string) {
	if m != nil {
		m.AcquireFailures.WithLabelValues(code).Inc()
	}
}
