package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the policy registry.
type Metrics struct {
	// Records added and removed
	Registered prometheus.Counter
	Removed    prometheus.Counter

	// Status changes by target state
	StatusChanges *prometheus.CounterVec

	// Rejected batches by operation and error code
	Rejected *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registered: f.NewCounter(prometheus.CounterOpts{
			Name: "molecule_policies_registered_total",
			Help: "Total policy records registered",
		}),
		Removed: f.NewCounter(prometheus.CounterOpts{
			Name: "molecule_policies_removed_total",
			Help: "Total policy records removed",
		}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_policy_status_changes_total",
			Help: "Policy status changes by target state",
		}, []string{"enabled"}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_policy_batches_rejected_total",
			Help: "Registry operations rejected by operation and error code",
		}, []string{"op", "code"}),
	}
}

func (m *Metrics) AddRegistered(n int) {
	if m != nil {
		m.Registered.Add(float64(n))
	}
}

func (m *Metrics) AddRemoved(n int) {
	if m != nil {
		m.Removed.Add(float64(n))
	}
}

func (m *Metrics) IncStatusChange(enabled bool) {
	if m == nil {
		return
	}
	label := "false"
	if enabled {
		label = "true"
	}
	m.StatusChanges.WithLabelValues(label).Inc()
}

func (m *Metrics) IncRejected(op, code string) {
	if m != nil {
		m.Rejected.WithLabelValues(op, code).Inc()
	}
}
