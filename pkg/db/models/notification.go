package models

import "time"

// Notification is an in-app message delivered to a user's feed; the IN_APP
// channel terminates here instead of at an external provider.
type Notification struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID  int64      `gorm:"column:school_id;not null;index"`
	Recipient string     `gorm:"column:recipient;type:text;not null;index"`
	Title     string     `gorm:"column:title;type:text;not null"`
	Message   string     `gorm:"column:message;type:text;not null"`
	OutboxID  *int64     `gorm:"column:outbox_id"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (Notification) TableName() string { return "notifications" }
