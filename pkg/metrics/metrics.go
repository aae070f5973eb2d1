// Package metrics holds the Prometheus collectors for collection sync and
// optimistic mutations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the remote client and mutator.
//
// Metrics:
//   - jot_snapshots_total{kind} - snapshots delivered to subscribers
//   - jot_subscription_errors_total{kind} - subscriptions ended by an error
//   - jot_writes_total{kind,op,result} - remote writes by outcome class
//   - jot_rollbacks_total{kind,field} - optimistic mutations reverted
type Metrics struct {
	SnapshotsTotal          *prometheus.CounterVec
	SubscriptionErrorsTotal *prometheus.CounterVec
	WritesTotal             *prometheus.CounterVec
	RollbacksTotal          *prometheus.CounterVec
}

// Default returns the metrics registered with the default Prometheus
// registerer. Registration happens once per process.
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// New creates metrics registered with reg. A nil reg creates unregistered
// collectors, which is handy in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SnapshotsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_snapshots_total",
				Help: "Total number of collection snapshots delivered",
			},
			[]string{"kind"},
		),
		SubscriptionErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_subscription_errors_total",
				Help: "Total number of subscriptions terminated by an error",
			},
			[]string{"kind"},
		),
		WritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_writes_total",
				Help: "Total number of remote writes by operation and result",
			},
			[]string{"kind", "op", "result"}, // result is an item error class or "ok"
		),
		RollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_rollbacks_total",
				Help: "Total number of optimistic mutations reverted after a failed write",
			},
			[]string{"kind", "field"},
		),
	}
}

// Snapshot records a delivered snapshot. Safe on a nil receiver.
func (m *Metrics) Snapshot(kind string) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.WithLabelValues(kind).Inc()
}

// SubscriptionError records a terminal subscription error. Safe on a nil
// receiver.
func (m *Metrics) SubscriptionError(kind string) {
	if m == nil {
		return
	}
	m.SubscriptionErrorsTotal.WithLabelValues(kind).Inc()
}

// Write records the outcome of a remote write. Safe on a nil receiver.
func (m *Metrics) Write(kind, op, result string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(kind, op, result).Inc()
}

// Rollback records a reverted optimistic mutation. Safe on a nil receiver.
func (m *Metrics) Rollback(kind, field string) {
	if m == nil {
		return
	}
	m.RollbacksTotal.WithLabelValues(kind, field).Inc()
}
