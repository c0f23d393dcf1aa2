package models

import (
	"time"

	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// MessageTemplate stores reusable bodies resolved at enqueue time.
type MessageTemplate struct {
	ID        int64         `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID  int64         `gorm:"column:school_id;not null;index"`
	Name      string        `gorm:"column:name;type:text;not null"`
	Channel   enums.Channel `gorm:"column:channel;type:text;not null"`
	Body      string        `gorm:"column:body;type:text;not null"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}

func (MessageTemplate) TableName() string { return "message_templates" }
