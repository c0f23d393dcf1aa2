package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// PgTransaction is a payment-gateway transaction webhook events correlate to.
type PgTransaction struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID  int64               `gorm:"column:school_id;not null;index"`
	Provider  string              `gorm:"column:provider;type:text;not null"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency  string              `gorm:"column:currency;type:text;not null;default:INR"`
	OrderID   *string             `gorm:"column:order_id;type:text;index"`
	PaymentID *string             `gorm:"column:payment_id;type:text;index"`
	Status    enums.PaymentStatus `gorm:"column:status;type:text;not null;default:CREATED"`
	Raw       json.RawMessage     `gorm:"column:raw;type:jsonb"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (PgTransaction) TableName() string { return "pg_transactions" }
