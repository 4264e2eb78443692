package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the relay's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	notifications      *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	unrecognized       prometheus.Counter
	deletionsScheduled prometheus.Counter
	deletionsPending   prometheus.Gauge
	storeDegraded      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_notifications_total",
			Help: "Operator notifications sent, by kind and result.",
		}, []string{"kind", "result"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_transitions_total",
			Help: "Session transitions applied from operator callbacks, by target state.",
		}, []string{"state"}),
		unrecognized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_callbacks_unrecognized_total",
			Help: "Callbacks whose action token matched no known action.",
		}),
		deletionsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_deletions_scheduled_total",
			Help: "Deferred session deletions scheduled after a terminal read.",
		}),
		deletionsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_deletions_pending",
			Help: "Deferred session deletions waiting to fire.",
		}),
		storeDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_store_degraded_total",
			Help: "Store operations served from memory because the durable backend failed.",
		}, []string{"op"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.notifications,
			m.transitions,
			m.unrecognized,
			m.deletionsScheduled,
			m.deletionsPending,
			m.storeDegraded,
		)
	}
	return m
}

func (m *Metrics) notification(kind Kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(string(kind), result).Inc()
}

func (m *Metrics) transition(state string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) unrecognizedCallback() {
	if m == nil {
		return
	}
	m.unrecognized.Inc()
}

func (m *Metrics) deletionScheduled(pending int) {
	if m == nil {
		return
	}
	m.deletionsScheduled.Inc()
	m.deletionsPending.Set(float64(pending))
}

func (m *Metrics) deletionsWaiting(pending int) {
	if m == nil {
		return
	}
	m.deletionsPending.Set(float64(pending))
}

// StoreDegraded counts a degraded store operation. It matches the signature of
// approval.WithDegradedHook.
func (m *Metrics) StoreDegraded(op string) {
	if m == nil {
		return
	}
	m.storeDegraded.WithLabelValues(op).Inc()
}
