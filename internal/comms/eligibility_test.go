package comms

import (
	"testing"
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

func TestBackoffDoubles(t *testing.T) {
	base := 3 * time.Second
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 0},
		{1, 3 * time.Second},
		{2, 6 * time.Second},
		{3, 12 * time.Second},
		{4, 24 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(base, tc.attempts); got != tc.want {
			t.Fatalf("attempts=%d: expected %s got %s", tc.attempts, tc.want, got)
		}
	}
}

func TestEligiblePendingRespectsSchedule(t *testing.T) {
	now := time.Now()
	base := 3 * time.Second

	msg := &models.OutboxMessage{Status: enums.OutboxStatusPending}
	if !Eligible(msg, now, base) {
		t.Fatal("unscheduled pending message should be eligible")
	}

	future := now.Add(time.Hour)
	msg.ScheduledAt = &future
	if Eligible(msg, now, base) {
		t.Fatal("scheduled message must wait for its scheduled_at")
	}

	past := now.Add(-time.Minute)
	msg.ScheduledAt = &past
	if !Eligible(msg, now, base) {
		t.Fatal("past-scheduled message should be eligible")
	}
}

func TestEligibleErrorWaitsOutBackoff(t *testing.T) {
	now := time.Now()
	base := 3 * time.Second

	anchor := now.Add(-4 * time.Second)
	msg := &models.OutboxMessage{
		Status:   enums.OutboxStatusError,
		Attempts: 1,
		SentAt:   &anchor,
	}
	if !Eligible(msg, now, base) {
		t.Fatal("first retry should be eligible after base delay")
	}

	msg.Attempts = 2
	if Eligible(msg, now, base) {
		t.Fatal("second retry needs 6s, only 4s elapsed")
	}

	older := now.Add(-7 * time.Second)
	msg.SentAt = &older
	if !Eligible(msg, now, base) {
		t.Fatal("second retry should be eligible after 6s")
	}
}

func TestEligibleOrphanedSendingIsImmediate(t *testing.T) {
	msg := &models.OutboxMessage{Status: enums.OutboxStatusSending}
	if !Eligible(msg, time.Now(), 3*time.Second) {
		t.Fatal("crashed in-flight message with no anchor should be re-eligible immediately")
	}
}

func TestEligibleTerminalNever(t *testing.T) {
	now := time.Now()
	for _, status := range []enums.OutboxStatus{
		enums.OutboxStatusSent,
		enums.OutboxStatusFailed,
		enums.OutboxStatusCancelled,
	} {
		msg := &models.OutboxMessage{Status: status}
		if Eligible(msg, now, time.Second) {
			t.Fatalf("terminal status %s must never be eligible", status)
		}
	}
}
