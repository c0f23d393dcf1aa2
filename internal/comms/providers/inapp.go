package providers

import (
	"context"
	"fmt"

	"github.com/vidyalane/schoolops-backend/internal/notifications"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// inAppProvider terminates delivery inside the platform: it writes a row to
// the recipient's notification feed instead of calling an external gateway.
type inAppProvider struct {
	repo notifications.Repository
}

// NewInApp builds the in-app channel provider.
func NewInApp(repo notifications.Repository) Provider {
	return &inAppProvider{repo: repo}
}

func (p *inAppProvider) Name() string { return "inapp" }

func (p *inAppProvider) Send(ctx context.Context, msg *models.OutboxMessage) (*Result, error) {
	title := "Notification"
	if msg.Subject != nil && *msg.Subject != "" {
		title = *msg.Subject
	}
	row := &models.Notification{
		SchoolID:  msg.SchoolID,
		Recipient: msg.Recipient,
		Title:     title,
		Message:   msg.Body,
		OutboxID:  &msg.ID,
	}
	if err := p.repo.Create(ctx, row); err != nil {
		return nil, Transient(fmt.Errorf("write notification: %w", err))
	}
	return &Result{
		ProviderName:      p.Name(),
		ProviderMessageID: fmt.Sprintf("inapp-%d", row.ID),
	}, nil
}
