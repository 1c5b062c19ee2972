package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the auth module.
type Metrics struct {
	LoginOutcomes   *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	LoginDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all auth module metrics registered.
func New() *Metrics {
	return &Metrics{
		LoginOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libris_logins_total",
			Help: "Total login attempts by outcome",
		}, []string{"outcome"}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libris_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		LoginDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "libris_login_duration_seconds",
			Help:    "Duration of login operations including password verification",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// ObserveLogin records a login attempt outcome and duration.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveLogin(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.LoginOutcomes.WithLabelValues(outcome).Inc()
	m.LoginDuration.Observe(time.Since(start).Seconds())
}

// IncrementSessionsCreated records a successful session creation.
func (m *Metrics) IncrementSessionsCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}
