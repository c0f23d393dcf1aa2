package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

func TestOutboxMetricsExportsPerChannelCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOutboxMetrics(reg)

	metrics.IncAttempt(enums.ChannelEmail)
	metrics.IncAttempt(enums.ChannelEmail)
	metrics.IncSent(enums.ChannelEmail)
	metrics.IncError(enums.ChannelEmail)
	metrics.IncFailed(enums.ChannelSMS)
	metrics.ObserveSendLatency(enums.ChannelEmail, 120*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "outbox_send_attempts_total", "channel", "EMAIL"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 2 {
		t.Fatalf("expected attempts=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_sent_total", "channel", "EMAIL"); err != nil {
		t.Fatalf("fetch sent: %v", err)
	} else if got != 1 {
		t.Fatalf("expected sent=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_error_total", "channel", "EMAIL"); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "outbox_failed_total", "channel", "SMS"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "outbox_send_latency_seconds", "channel", "EMAIL"); err != nil {
		t.Fatalf("fetch latency: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected latency sum > 0, got %f", got)
	}
}

func TestOutboxMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *OutboxMetrics
	metrics.IncAttempt(enums.ChannelEmail)
	metrics.IncSent(enums.ChannelEmail)
	metrics.IncFailed(enums.ChannelEmail)
	metrics.IncError(enums.ChannelEmail)
	metrics.ObserveSendLatency(enums.ChannelEmail, time.Second)
}
