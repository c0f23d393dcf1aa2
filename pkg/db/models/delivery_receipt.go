package models

import (
	"encoding/json"
	"time"
)

// DeliveryReceipt records provider delivery-status callbacks for sent
// messages, matched on the provider message id.
type DeliveryReceipt struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OutboxID       int64           `gorm:"column:outbox_id;not null;index"`
	ProviderStatus *string         `gorm:"column:provider_status;type:text"`
	Raw            json.RawMessage `gorm:"column:raw;type:jsonb"`
	ReceivedAt     time.Time       `gorm:"column:received_at;autoCreateTime"`
}

func (DeliveryReceipt) TableName() string { return "delivery_receipts" }
