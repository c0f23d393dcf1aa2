package comms

import (
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// Backoff returns the retry delay before attempt n+1 given n completed
// attempts: base * 2^(n-1).
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts <= 0 {
		return 0
	}
	return base << (attempts - 1)
}

// Eligible reports whether a candidate row may be claimed now. PENDING rows
// wait only for their scheduled_at; ERROR and SENDING rows wait out the
// backoff window anchored on the previous attempt's commit time. A SENDING
// row with no anchor was orphaned by a crash before its first outcome commit
// and is immediately eligible.
func Eligible(msg *models.OutboxMessage, now time.Time, base time.Duration) bool {
	switch msg.Status {
	case enums.OutboxStatusPending:
		return msg.ScheduledAt == nil || !msg.ScheduledAt.After(now)
	case enums.OutboxStatusError, enums.OutboxStatusSending:
		if msg.SentAt == nil {
			return true
		}
		return !msg.SentAt.Add(Backoff(base, msg.Attempts)).After(now)
	default:
		return false
	}
}
