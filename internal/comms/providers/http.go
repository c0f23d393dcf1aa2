package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

// payloadFunc shapes the request body for one channel's gateway.
type payloadFunc func(msg *models.OutboxMessage, creds map[string]string) map[string]any

// httpProvider delivers messages by POSTing JSON to a channel gateway. All
// three external channels (email, sms, chat push) share this shape and differ
// only in endpoint and payload.
type httpProvider struct {
	name     string
	endpoint string
	client   *http.Client
	resolver credentials.Resolver
	build    payloadFunc
}

func newHTTPProvider(name, endpoint string, client *http.Client, resolver credentials.Resolver, build payloadFunc) *httpProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpProvider{
		name:     name,
		endpoint: endpoint,
		client:   client,
		resolver: resolver,
		build:    build,
	}
}

func (p *httpProvider) Name() string { return p.name }

func (p *httpProvider) Send(ctx context.Context, msg *models.OutboxMessage) (*Result, error) {
	if p.endpoint == "" {
		return nil, Permanentf("no endpoint configured for provider %s", p.name)
	}

	// provider_hint picks the credential bundle; the channel default applies
	// otherwise.
	bundle := p.name
	if msg.ProviderHint != nil && *msg.ProviderHint != "" {
		bundle = *msg.ProviderHint
	}

	creds, err := p.resolver.Resolve(ctx, msg.SchoolID, bundle)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrNoCredentials):
			return nil, Permanentf("No credentials configured for provider %s", bundle)
		case errors.Is(err, credentials.ErrCredentialDecode):
			return nil, Permanent(err)
		default:
			return nil, Transient(err)
		}
	}

	body, err := json.Marshal(p.build(msg, creds))
	if err != nil {
		return nil, Permanent(fmt.Errorf("encode %s payload: %w", p.name, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, Permanent(fmt.Errorf("build %s request: %w", p.name, err))
	}
	req.Header.Set("Content-Type", "application/json")
	if key := creds["api_key"]; key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("%s gateway unreachable: %w", p.name, err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := classifyStatus(p.name, resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var parsed struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.MessageID == "" {
		// accepted but unidentifiable; synthesize an id so the send still counts
		parsed.MessageID = fmt.Sprintf("%s-%d", p.name, msg.ID)
	}
	return &Result{ProviderName: p.name, ProviderMessageID: parsed.MessageID}, nil
}

// classifyStatus maps gateway status codes onto the retry taxonomy: timeouts,
// throttling and server errors retry, everything else non-2xx is terminal.
func classifyStatus(name string, status int, raw []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= 500:
		return Transientf("%s gateway returned %d: %s", name, status, truncateBody(raw))
	default:
		return Permanentf("%s gateway rejected message with %d: %s", name, status, truncateBody(raw))
	}
}

func truncateBody(raw []byte) string {
	const max = 200
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
