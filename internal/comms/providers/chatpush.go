package providers

import (
	"net/http"

	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// NewChatPush builds the chat push channel provider.
func NewChatPush(endpoint string, client *http.Client, resolver credentials.Resolver) Provider {
	return newHTTPProvider("chat_push", endpoint, client, resolver, func(msg *models.OutboxMessage, creds map[string]string) map[string]any {
		title := ""
		if msg.Subject != nil {
			title = *msg.Subject
		}
		return map[string]any{
			"device_token": msg.Recipient,
			"title":        title,
			"message":      msg.Body,
		}
	})
}
