/*
Package metrics exposes Prometheus collectors for the chat coordinator.
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections is the number of admitted WebSocket connections.
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lobbychat_connections",
		Help: "Current number of admitted websocket connections",
	})

	// PresenceEntries is the size of the presence registry.
	PresenceEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lobbychat_presence_entries",
		Help: "Current number of identities with a live connection",
	})

	// Rooms counts live rooms by kind (solo, group, private).
	Rooms = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lobbychat_rooms",
		Help: "Current number of rooms by kind",
	}, []string{"kind"})

	// MessagesRouted counts routed events by kind (room, private, feedback) and outcome.
	MessagesRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbychat_messages_routed_total",
		Help: "Total number of routed chat events",
	}, []string{"kind", "outcome"})

	// AdmissionsRejected counts connections refused by the identity gate by reason.
	AdmissionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lobbychat_admissions_rejected_total",
		Help: "Total number of websocket admissions rejected",
	}, []string{"reason"})

	// PersistenceFailures counts failed best-effort durable presence updates.
	PersistenceFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lobbychat_presence_persist_failures_total",
		Help: "Total number of failed durable presence updates",
	})
)

func init() {
	prometheus.MustRegister(
		Connections,
		PresenceEntries,
		Rooms,
		MessagesRouted,
		AdmissionsRejected,
		PersistenceFailures,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
