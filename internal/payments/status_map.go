package payments

import (
	"encoding/json"
	"strings"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// statusMap translates provider event types into the internal payment status
// vocabulary. Lookup is exact first, then by fragment so provider-specific
// variants like "razorpay.payment.captured.v2" still resolve.
var statusMap = map[string]enums.PaymentStatus{
	"payment_intent.succeeded":      enums.PaymentStatusCaptured,
	"payment.captured":              enums.PaymentStatusCaptured,
	"payment.authorized":            enums.PaymentStatusAuthorized,
	"payment_intent.payment_failed": enums.PaymentStatusFailed,
	"refund.processed":              enums.PaymentStatusRefunded,
	"refund.succeeded":              enums.PaymentStatusRefunded,
}

// deriveStatus maps an event type (and, failing that, the raw payload's own
// status field) to an internal status. An empty result means the event does
// not change transaction state.
func deriveStatus(eventType string, raw json.RawMessage) enums.PaymentStatus {
	et := strings.ToLower(eventType)
	if status, ok := statusMap[et]; ok {
		return status
	}
	for fragment, status := range statusMap {
		if strings.Contains(et, fragment) {
			return status
		}
	}

	var payload struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(raw, &payload)
	stat := strings.ToLower(payload.Status)
	switch {
	case stat == "succeeded" || stat == "captured":
		return enums.PaymentStatusCaptured
	case stat == "authorized" || stat == "auth":
		return enums.PaymentStatusAuthorized
	case strings.HasPrefix(stat, "fail"):
		return enums.PaymentStatusFailed
	case strings.HasPrefix(stat, "refund") || strings.Contains(et, "refund"):
		return enums.PaymentStatusRefunded
	default:
		return ""
	}
}
