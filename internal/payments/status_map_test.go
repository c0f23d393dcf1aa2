package payments

import (
	"encoding/json"
	"testing"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

func TestDeriveStatusExactMatch(t *testing.T) {
	cases := map[string]enums.PaymentStatus{
		"payment_intent.succeeded":      enums.PaymentStatusCaptured,
		"payment.captured":              enums.PaymentStatusCaptured,
		"payment.authorized":            enums.PaymentStatusAuthorized,
		"payment_intent.payment_failed": enums.PaymentStatusFailed,
		"refund.processed":              enums.PaymentStatusRefunded,
		"refund.succeeded":              enums.PaymentStatusRefunded,
	}
	for eventType, want := range cases {
		if got := deriveStatus(eventType, nil); got != want {
			t.Fatalf("%s: expected %s got %s", eventType, want, got)
		}
	}
}

func TestDeriveStatusFragmentFallback(t *testing.T) {
	if got := deriveStatus("razorpay.payment.captured.v2", nil); got != enums.PaymentStatusCaptured {
		t.Fatalf("fragment match failed, got %s", got)
	}
	if got := deriveStatus("PAYMENT.AUTHORIZED", nil); got != enums.PaymentStatusAuthorized {
		t.Fatalf("case-insensitive match failed, got %s", got)
	}
}

func TestDeriveStatusFromRawPayload(t *testing.T) {
	cases := []struct {
		raw  string
		want enums.PaymentStatus
	}{
		{`{"status":"succeeded"}`, enums.PaymentStatusCaptured},
		{`{"status":"captured"}`, enums.PaymentStatusCaptured},
		{`{"status":"authorized"}`, enums.PaymentStatusAuthorized},
		{`{"status":"failed"}`, enums.PaymentStatusFailed},
		{`{"status":"refund_pending"}`, enums.PaymentStatusRefunded},
	}
	for _, tc := range cases {
		if got := deriveStatus("custom.event", json.RawMessage(tc.raw)); got != tc.want {
			t.Fatalf("raw %s: expected %s got %s", tc.raw, tc.want, got)
		}
	}
}

func TestDeriveStatusUnknown(t *testing.T) {
	if got := deriveStatus("customer.updated", json.RawMessage(`{"status":"active"}`)); got != "" {
		t.Fatalf("expected no derived status, got %s", got)
	}
}
