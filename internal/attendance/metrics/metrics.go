package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for attendance actions.
const (
	OutcomeSuccess = "success"
	OutcomeBlocked = "blocked"
	OutcomeOffline = "offline"
	OutcomeFailed  = "failed"
)

// Metrics provides observability for check-in and check-out.
type Metrics struct {
	Actions *prometheus.CounterVec
}

// New creates the attendance metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		Actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "anima_attendance_actions_total",
			Help: "Attendance actions by action and outcome",
		}, []string{"action", "outcome"}),
	}
}

func (m *Metrics) IncrementAction(action, outcome string) {
	if m != nil {
		m.Actions.WithLabelValues(action, outcome).Inc()
	}
}
