package providers

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vidyalane/schoolops-backend/internal/notifications"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

func TestInAppProviderWritesNotificationRow(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	provider := NewInApp(notifications.NewRepository(conn))
	msg := testMessage()
	result, err := provider.Send(context.Background(), msg)
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if result.ProviderName != "inapp" {
		t.Fatalf("unexpected provider name %q", result.ProviderName)
	}

	var rows []models.Notification
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("query notifications: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rows))
	}
	if rows[0].SchoolID != msg.SchoolID || rows[0].Recipient != msg.Recipient {
		t.Fatalf("unexpected notification row %+v", rows[0])
	}
	if rows[0].OutboxID == nil || *rows[0].OutboxID != msg.ID {
		t.Fatalf("notification should link back to the outbox message")
	}
}
