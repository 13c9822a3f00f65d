// Prometheus metrics for the order lifecycle and notification fan-out.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TransitionsApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasla_order_transitions_applied_total",
			Help: "Order status transitions applied, by edge",
		},
		[]string{"from", "to"},
	)

	TransitionsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasla_order_transitions_rejected_total",
			Help: "Order status transitions rejected, by rule",
		},
		[]string{"reason"},
	)

	NotificationsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasla_notifications_dispatched_total",
			Help: "Notification rows persisted, by event kind",
		},
		[]string{"kind"},
	)

	LiveDeliveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasla_live_deliveries_total",
			Help: "Notifications delivered over a live room connection",
		},
	)

	PushSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasla_push_sends_total",
			Help: "Push send attempts, by outcome",
		},
		[]string{"outcome"},
	)

	AuditWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wasla_audit_write_failures_total",
			Help: "Audit rows that could not be written (best-effort path)",
		},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		TransitionsApplied,
		TransitionsRejected,
		NotificationsDispatched,
		LiveDeliveries,
		PushSends,
		AuditWriteFailures,
	)
}
