// Package pipeline provides metrics for prediction pipeline operations.
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricWebhookEvents = "webhook_events_total"
	MetricPredictions   = "predictions_total"
	MetricAuditFailures = "audit_write_failures_total"
)

// Metrics contains Prometheus metrics for pipeline operations.
// All operations are thread-safe.
type Metrics struct {
	webhookEvents *prometheus.CounterVec
	predictions   *prometheus.CounterVec
	auditFailures *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register them
// with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		webhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWebhookEvents,
				Help: "Total number of verified webhook events by terminal outcome",
			},
			[]string{"outcome"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricPredictions,
				Help: "Total number of predictions by label and status",
			},
			[]string{"label", "status"},
		),
		auditFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAuditFailures,
				Help: "Total number of swallowed audit sink write failures by record kind",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.webhookEvents,
		m.predictions,
		m.auditFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
