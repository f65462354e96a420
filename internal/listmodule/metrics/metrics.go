package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for list module mutations and notification delivery.
type Metrics struct {
	AddressesChanged *prometheus.CounterVec
	BatchesRejected  *prometheus.CounterVec
	NotifyFailures   prometheus.Counter
	ListsDeployed    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AddressesChanged: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_list_addresses_changed_total",
			Help: "Addresses submitted in successful list batches by operation",
		}, []string{"op"}),
		BatchesRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "molecule_list_batches_rejected_total",
			Help: "List batches rejected because the persistent store failed",
		}, []string{"op"}),
		NotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "molecule_list_notify_failures_total",
			Help: "Notifications that could not be delivered to a sink",
		}),
		ListsDeployed: f.NewGauge(prometheus.GaugeOpts{
			Name: "molecule_lists_deployed",
			Help: "Number of list modules currently deployed",
		}),
	}
}

func (m *Metrics) IncAddressesChanged(op string, n int) {
	if m == nil {
		return
	}
	m.AddressesChanged.WithLabelValues(op).Add(float64(n))
}

func (m *Metrics) IncBatchRejected(op string) {
	if m == nil {
		return
	}
	m.BatchesRejected.WithLabelValues(op).Inc()
}

func (m *Metrics) IncNotifyFailures() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

func (m *Metrics) SetListsDeployed(n int) {
	if m == nil {
		return
	}
	m.ListsDeployed.Set(float64(n))
}
