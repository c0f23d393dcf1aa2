package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// OutboxMetrics records delivery-worker state transitions per channel. Every
// increment happens in the same step that writes the matching status change,
// so the counters always reconcile with the store.
type OutboxMetrics struct {
	attempts *prometheus.CounterVec
	sent     *prometheus.CounterVec
	failed   *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewOutboxMetrics registers the delivery metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_send_attempts_total",
		Help: "Total send attempts.",
	}, []string{"channel"})
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_sent_total",
		Help: "Messages successfully sent.",
	}, []string{"channel"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Messages permanently failed.",
	}, []string{"channel"})
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_error_total",
		Help: "Send errors that will be retried.",
	}, []string{"channel"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_send_latency_seconds",
		Help:    "Latency of successful sends.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	reg.MustRegister(attempts, sent, failed, errors, latency)
	return &OutboxMetrics{
		attempts: attempts,
		sent:     sent,
		failed:   failed,
		errors:   errors,
		latency:  latency,
	}
}

// IncAttempt counts one delivery attempt regardless of outcome.
func (m *OutboxMetrics) IncAttempt(channel enums.Channel) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(channelLabel(channel)).Inc()
}

// IncSent counts a successful delivery.
func (m *OutboxMetrics) IncSent(channel enums.Channel) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(channelLabel(channel)).Inc()
}

// IncFailed counts a permanent (dead-letter) failure.
func (m *OutboxMetrics) IncFailed(channel enums.Channel) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(channelLabel(channel)).Inc()
}

// IncError counts a retryable failure.
func (m *OutboxMetrics) IncError(channel enums.Channel) {
	if m == nil || m.errors == nil {
		return
	}
	m.errors.WithLabelValues(channelLabel(channel)).Inc()
}

// ObserveSendLatency records the duration of a successful send.
func (m *OutboxMetrics) ObserveSendLatency(channel enums.Channel, duration time.Duration) {
	if m == nil || m.latency == nil {
		return
	}
	m.latency.WithLabelValues(channelLabel(channel)).Observe(duration.Seconds())
}

func channelLabel(channel enums.Channel) string {
	if channel == "" {
		return "unknown"
	}
	return string(channel)
}
