package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidyalane/schoolops-backend/internal/credentials"
	"github.com/vidyalane/schoolops-backend/pkg/db/models"
)

type stubResolver struct {
	creds      map[string]string
	err        error
	lastBundle string
}

func (s *stubResolver) Resolve(ctx context.Context, schoolID int64, provider string) (map[string]string, error) {
	s.lastBundle = provider
	if s.err != nil {
		return nil, s.err
	}
	return s.creds, nil
}

func testMessage() *models.OutboxMessage {
	subject := "Fee reminder"
	return &models.OutboxMessage{
		ID:        41,
		SchoolID:  3,
		Recipient: "parent@example.com",
		Subject:   &subject,
		Body:      "Term fees are due Friday.",
	}
}

func TestHTTPProviderSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["to"] != "parent@example.com" {
			t.Fatalf("unexpected recipient %v", payload["to"])
		}
		json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-789"})
	}))
	defer server.Close()

	provider := NewEmail(server.URL, server.Client(), &stubResolver{creds: map[string]string{"api_key": "k1"}})
	result, err := provider.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if result.ProviderName != "email" || result.ProviderMessageID != "msg-789" {
		t.Fatalf("unexpected result %+v", result)
	}
	if gotAuth != "Bearer k1" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestHTTPProviderHintSelectsCredentialBundle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"message_id": "msg-1"})
	}))
	defer server.Close()

	resolver := &stubResolver{creds: map[string]string{"api_key": "k2"}}
	provider := NewEmail(server.URL, server.Client(), resolver)

	hint := "sendgrid"
	msg := testMessage()
	msg.ProviderHint = &hint
	if _, err := provider.Send(context.Background(), msg); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if resolver.lastBundle != "sendgrid" {
		t.Fatalf("expected hinted bundle, resolved %q", resolver.lastBundle)
	}

	// without a hint the channel default applies
	if _, err := provider.Send(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if resolver.lastBundle != "email" {
		t.Fatalf("expected default bundle, resolved %q", resolver.lastBundle)
	}
}

func TestHTTPProviderServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	provider := NewSMS(server.URL, server.Client(), &stubResolver{creds: map[string]string{}})
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsPermanent(err) {
		t.Fatalf("5xx should be transient, got permanent: %v", err)
	}
}

func TestHTTPProviderRejectionIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid recipient", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	provider := NewEmail(server.URL, server.Client(), &stubResolver{creds: map[string]string{}})
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Fatalf("4xx rejection should be permanent: %v", err)
	}
}

func TestHTTPProviderThrottlingIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := NewChatPush(server.URL, server.Client(), &stubResolver{creds: map[string]string{}})
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsPermanent(err) {
		t.Fatalf("429 should be transient: %v", err)
	}
}

func TestHTTPProviderNetworkFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	provider := NewEmail(endpoint, nil, &stubResolver{creds: map[string]string{}})
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if IsPermanent(err) {
		t.Fatalf("network failure should be transient: %v", err)
	}
}

func TestHTTPProviderNoCredentialsIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("gateway should not be called without credentials")
	}))
	defer server.Close()

	resolver := &stubResolver{err: fmt.Errorf("%w for school 3 provider email", credentials.ErrNoCredentials)}
	provider := NewEmail(server.URL, server.Client(), resolver)
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Fatalf("missing credentials should be permanent: %v", err)
	}
	if !strings.Contains(err.Error(), "No credentials configured") {
		t.Fatalf("expected operator-readable message, got %q", err.Error())
	}
}

func TestHTTPProviderDecodeFailureIsPermanent(t *testing.T) {
	resolver := &stubResolver{err: fmt.Errorf("%w: school 3", credentials.ErrCredentialDecode)}
	provider := NewEmail("http://gateway.invalid", nil, resolver)
	_, err := provider.Send(context.Background(), testMessage())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsPermanent(err) {
		t.Fatalf("decode failure should be permanent: %v", err)
	}
}

func TestHTTPProviderSynthesizesMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	provider := NewSMS(server.URL, server.Client(), &stubResolver{creds: map[string]string{}})
	result, err := provider.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if result.ProviderMessageID != "sms-41" {
		t.Fatalf("expected synthesized id, got %q", result.ProviderMessageID)
	}
}

func TestRegistryMissingChannelIsPermanent(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.For("EMAIL")
	if err == nil {
		t.Fatal("expected error for unregistered channel")
	}
	if !IsPermanent(err) {
		t.Fatalf("missing provider should be permanent: %v", err)
	}
}

func TestUnclassifiedErrorIsNotPermanent(t *testing.T) {
	if IsPermanent(fmt.Errorf("some unknown failure")) {
		t.Fatal("bare errors must default to transient handling")
	}
}
