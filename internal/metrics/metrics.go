// Package metrics exposes Prometheus collectors for the transfer flow.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Transfer outcomes used as the "outcome" label.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the service's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	codesGenerated  *prometheus.CounterVec
	transfers       *prometheus.CounterVec
	codesSwept      prometheus.Counter
	notifications   *prometheus.CounterVec
	redeemThrottled prometheus.Counter
}

// New registers all collectors on a fresh registry together with the Go and process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "festival"
	}
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		codesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "codes_generated_total",
			Help:      "Transfer codes issued, by creator kind.",
		}, []string{"created_by"}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "transfers_total",
			Help:      "Transfer attempts, by outcome and reason.",
		}, []string{"outcome", "reason"}),
		codesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "codes_swept_total",
			Help:      "Expired transfer codes deleted by cleanup.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notification attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		redeemThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transfer",
			Name:      "redeem_throttled_total",
			Help:      "Redeem requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.codesGenerated, m.transfers, m.codesSwept, m.notifications, m.redeemThrottled,
	)
	return m
}

func (m *Metrics) CodeGenerated(createdBy string) {
	if m == nil {
		return
	}
	m.codesGenerated.WithLabelValues(createdBy).Inc()
}

// Transfer records a transfer attempt. reason is empty on success.
func (m *Metrics) Transfer(outcome, reason string) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) CodesSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.codesSwept.Add(float64(n))
}

// Notification records one delivery attempt on channel ("broadcast" or "push").
func (m *Metrics) Notification(channel string, ok bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.notifications.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) RedeemThrottled() {
	if m == nil {
		return
	}
	m.redeemThrottled.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the underlying registry for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
