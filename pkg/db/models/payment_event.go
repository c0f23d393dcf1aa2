package models

import (
	"encoding/json"
	"time"
)

// PaymentEvent is the append-only log of inbound gateway events.
// (school_id, provider, event_id) is the idempotency key; replays return the
// stored row untouched.
type PaymentEvent struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID        int64           `gorm:"column:school_id;not null;uniqueIndex:ux_payment_events_school_provider_event"`
	Provider        string          `gorm:"column:provider;type:text;not null;uniqueIndex:ux_payment_events_school_provider_event"`
	EventID         string          `gorm:"column:event_id;type:text;not null;uniqueIndex:ux_payment_events_school_provider_event"`
	EventType       string          `gorm:"column:event_type;type:text;not null"`
	PgTransactionID *int64          `gorm:"column:pg_transaction_id"`
	StatusDerived   *string         `gorm:"column:status_derived;type:text"`
	Raw             json.RawMessage `gorm:"column:raw;type:jsonb"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (PaymentEvent) TableName() string { return "payment_events" }
