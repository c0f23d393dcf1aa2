package enums

import "fmt"

// OutboxStatus maps to the outbox_status enum in Postgres.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusSending   OutboxStatus = "SENDING"
	OutboxStatusSent      OutboxStatus = "SENT"
	OutboxStatusError     OutboxStatus = "ERROR"
	OutboxStatusFailed    OutboxStatus = "FAILED"
	OutboxStatusCancelled OutboxStatus = "CANCELLED"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusSending,
	OutboxStatusSent,
	OutboxStatusError,
	OutboxStatusFailed,
	OutboxStatusCancelled,
}

// IsValid reports whether the value matches the canonical outbox_status enum.
func (s OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further worker writes.
func (s OutboxStatus) IsTerminal() bool {
	switch s {
	case OutboxStatusSent, OutboxStatusFailed, OutboxStatusCancelled:
		return true
	}
	return false
}

// IsCancellable reports whether an out-of-band cancellation may still claim
// the message. SENDING is excluded: an in-flight attempt runs to completion.
func (s OutboxStatus) IsCancellable() bool {
	return s == OutboxStatusPending || s == OutboxStatusError
}

// ParseOutboxStatus converts raw input into OutboxStatus.
func ParseOutboxStatus(value string) (OutboxStatus, error) {
	for _, candidate := range validOutboxStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox status %q", value)
}
