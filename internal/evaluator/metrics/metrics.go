package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for address checks.
type Metrics struct {
	// Decisions by outcome and aggregation strategy
	Decisions *prometheus.CounterVec

	// Checks that ended in an error, by error code
	Failures *prometheus.CounterVec

	// Module queries actually performed
	ModuleQueries prometheus.Counter

	EvaluateLatency prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_decisions_total",
			Help: "Address checks by outcome and aggregation",
		}, []string{"outcome", "aggregation"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_check_failures_total",
			Help: "Address checks that returned an error, by code",
		}, []string{"code"}),
		ModuleQueries: f.NewCounter(prometheus.CounterOpts{
			Name: "molecule_module_queries_total",
			Help: "Logic module verdicts requested",
		}),
		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "molecule_check_duration_seconds",
			Help:    "Duration of a full address check",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

func (m *Metrics) IncDecision(passed bool, aggregation string) {
	if m == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	m.Decisions.WithLabelValues(outcome, aggregation).Inc()
}

func (m *Metrics) IncFailure(code string) {
	if m != nil {
		m.Failures.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) AddModuleQueries(n int) {
	if m != nil {
		m.ModuleQueries.Add(float64(n))
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
