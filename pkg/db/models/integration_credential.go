package models

import "time"

// IntegrationCredential holds a per-school, per-provider secret bundle.
// Rows are append-only; rotation inserts a new row and the latest one is
// authoritative. SecretEnc carries either a sealed "ENC:" value or a tagged
// "PLAINTEXT:" fallback, never an untagged secret.
type IntegrationCredential struct {
	ID        int64      `gorm:"column:id;primaryKey;autoIncrement"`
	SchoolID  int64      `gorm:"column:school_id;not null;index:idx_integration_credentials_school_provider"`
	Provider  string     `gorm:"column:provider;type:text;not null;index:idx_integration_credentials_school_provider"`
	Label     *string    `gorm:"column:label;type:text"`
	SecretEnc string     `gorm:"column:secret_enc;type:text;not null"`
	RotatedAt *time.Time `gorm:"column:rotated_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (IntegrationCredential) TableName() string { return "integration_credentials" }
