package models

import (
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// OutboxMessage is a unit of outbound delivery work. Producers insert rows in
// PENDING and never touch them again; the delivery worker owns every later
// transition.
type OutboxMessage struct {
	ID                int64              `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID          int64              `gorm:"column:school_id;not null;index"`
	Channel           enums.Channel      `gorm:"column:channel;type:text;not null"`
	Recipient         string             `gorm:"column:recipient;type:text;not null"`
	Subject           *string            `gorm:"column:subject;type:text"`
	Body              string             `gorm:"column:body;type:text;not null"`
	TemplateID        *int64             `gorm:"column:template_id"`
	ProviderHint      *string            `gorm:"column:provider_hint;type:text"`
	ProviderName      *string            `gorm:"column:provider_name;type:text"`
	ProviderMessageID *string            `gorm:"column:provider_message_id;type:text"`
	Status            enums.OutboxStatus `gorm:"column:status;type:text;not null;default:PENDING;index"`
	Attempts          int                `gorm:"column:attempts;not null;default:0"`
	LastError         *string            `gorm:"column:last_error;type:text"`
	ScheduledAt       *time.Time         `gorm:"column:scheduled_at"`
	SentAt            *time.Time         `gorm:"column:sent_at"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxMessage) TableName() string { return "outbox_messages" }
