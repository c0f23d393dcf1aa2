package providers

import (
	"net/http"

	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// NewEmail builds the email channel provider.
func NewEmail(endpoint string, client *http.Client, resolver credentials.Resolver) Provider {
	return newHTTPProvider("email", endpoint, client, resolver, func(msg *models.OutboxMessage, creds map[string]string) map[string]any {
		subject := ""
		if msg.Subject != nil {
			subject = *msg.Subject
		}
		payload := map[string]any{
			"to":      msg.Recipient,
			"subject": subject,
			"body":    msg.Body,
		}
		if from := creds["from_address"]; from != "" {
			payload["from"] = from
		}
		return payload
	})
}
