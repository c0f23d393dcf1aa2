package providers

import (
	"net/http"

	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// NewSMS builds the sms channel provider.
func NewSMS(endpoint string, client *http.Client, resolver credentials.Resolver) Provider {
	return newHTTPProvider("sms", endpoint, client, resolver, func(msg *models.OutboxMessage, creds map[string]string) map[string]any {
		payload := map[string]any{
			"to":   msg.Recipient,
			"text": msg.Body,
		}
		if sender := creds["sender_id"]; sender != "" {
			payload["sender_id"] = sender
		}
		return payload
	})
}
