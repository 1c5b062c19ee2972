package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lending module.
type Metrics struct {
	BorrowOutcomes *prometheus.CounterVec
	ReturnOutcomes *prometheus.CounterVec
	BorrowDuration prometheus.Histogram
}

// New creates a new Metrics instance with all lending module metrics registered.
func New() *Metrics {
	return &Metrics{
		BorrowOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libris_borrows_total",
			Help: "Total borrow attempts by outcome",
		}, []string{"outcome"}),
		ReturnOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libris_returns_total",
			Help: "Total return attempts by outcome",
		}, []string{"outcome"}),
		BorrowDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "libris_borrow_duration_seconds",
			Help:    "Duration of borrow transactions",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveBorrow records a borrow attempt outcome and duration.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveBorrow(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.BorrowOutcomes.WithLabelValues(outcome).Inc()
	m.BorrowDuration.Observe(time.Since(start).Seconds())
}

// ObserveReturn records a return attempt outcome.
func (m *Metrics) ObserveReturn(outcome string) {
	if m == nil {
		return
	}
	m.ReturnOutcomes.WithLabelValues(outcome).Inc()
}
