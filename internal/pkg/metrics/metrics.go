// Package metrics exposes Prometheus instruments for the fulfillment service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRefused  = "refused"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

type Metrics struct {
	Transitions          *prometheus.CounterVec
	TransitionLatency    *prometheus.HistogramVec
	HandoverCodesIssued  prometheus.Counter
	HandoverCodesExpired prometheus.Counter
	RefundIntents        prometheus.Counter
	OutboxPublished      *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPLatencyMS        *prometheus.HistogramVec
}

// New creates the instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Transition requests by action and outcome.",
		}, []string{"action", "outcome"}),
		TransitionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transition_duration_seconds",
			Help:      "Time to load, guard, apply and commit a transition.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		HandoverCodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handover_codes_issued_total",
			Help:      "Handover codes issued at MarkReady or on reissue.",
		}),
		HandoverCodesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handover_codes_expired_total",
			Help:      "Handover codes discarded by the expiry job.",
		}),
		RefundIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_intents_total",
			Help:      "Refund intents recorded for cancelled orders.",
		}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled by the relay.",
		}, []string{"type", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.Transitions,
		m.TransitionLatency,
		m.HandoverCodesIssued,
		m.HandoverCodesExpired,
		m.RefundIntents,
		m.OutboxPublished,
		m.HTTPRequests,
		m.HTTPLatencyMS,
	)
	return m
}

// NewNop returns instruments registered nowhere, for tests and tools.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the given gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
