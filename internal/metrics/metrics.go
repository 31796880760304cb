package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type lifecycleMetrics struct {
	created     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	authFail    *prometheus.CounterVec
	quotes      *prometheus.CounterVec
	payments    *prometheus.CounterVec
	httpReqs    *prometheus.CounterVec
	httpLatency *prometheus.HistogramVec
}

var (
	once     sync.Once
	registry *lifecycleMetrics
)

// Lifecycle returns the process-wide collectors, registering them on first use.
func Lifecycle() *lifecycleMetrics {
	once.Do(func() {
		registry = &lifecycleMetrics{
			created: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "events",
				Name:      "created_total",
				Help:      "Events stored, by platform and initial status.",
			}, []string{"platform", "status"}),
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "events",
				Name:      "transitions_total",
				Help:      "Status transitions applied.",
			}, []string{"from", "to"}),
			authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "auth",
				Name:      "signature_failures_total",
				Help:      "Rejected signatures, by operation.",
			}, []string{"operation"}),
			quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "tipping",
				Name:      "quotes_total",
				Help:      "Tip quotes issued, by outcome.",
			}, []string{"outcome"}),
			payments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "tipping",
				Name:      "payments_total",
				Help:      "recordPayment calls, by result.",
			}, []string{"result"}),
			httpReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "eventhub",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests served.",
			}, []string{"method", "route", "status"}),
			httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "eventhub",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method", "route"}),
		}
		prometheus.MustRegister(
			registry.created,
			registry.transitions,
			registry.authFail,
			registry.quotes,
			registry.payments,
			registry.httpReqs,
			registry.httpLatency,
		)
	})
	return registry
}

func (m *lifecycleMetrics) RecordCreated(platform, status string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(label(platform), status).Inc()
}

func (m *lifecycleMetrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *lifecycleMetrics) RecordAuthFailure(operation string) {
	if m == nil {
		return
	}
	m.authFail.WithLabelValues(operation).Inc()
}

// RecordQuote counts quotes; outcome is "tip" or the refusal reason class.
func (m *lifecycleMetrics) RecordQuote(outcome string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(label(outcome)).Inc()
}

func (m *lifecycleMetrics) RecordPayment(result string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(result).Inc()
}

func (m *lifecycleMetrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpReqs.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

func label(v string) string {
	v = strings.TrimSpace(strings.ToLower(v))
	if v == "" {
		return "unknown"
	}
	return v
}
