// Package server exposes Prometheus metrics for the synchronization engine.
package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "coscribe"

// Engine metrics, registered on the default registerer and served at
// /metrics via promhttp.
var (
	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "active_sessions",
		Help:      "Number of registered WebSocket sessions",
	})

	metricSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "sessions_total",
		Help:      "Total number of sessions that passed the connection probe",
	})

	metricProbeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "probe_failures_total",
		Help:      "Total number of connections abandoned by a failed liveness probe",
	})

	metricDocumentUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "document_updates_total",
		Help:      "Total number of applied document content updates",
	})

	metricBroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "broadcasts_total",
		Help:      "Total number of envelopes published through the hub",
	})

	metricMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "messages_dropped_total",
		Help:      "Total number of buffered messages dropped from slow subscriber queues",
	})
)
