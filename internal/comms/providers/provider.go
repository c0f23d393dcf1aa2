package providers

import (
	"context"
	"fmt"

	"github.com/vidyalane/schoolops-backend/pkg/db/models"
	"github.com/vidyalane/schoolops-backend/pkg/enums"
)

// Result identifies a successful hand-off to a provider.
type Result struct {
	ProviderName      string
	ProviderMessageID string
}

// Provider delivers a single outbox message over one channel. Implementations
// classify their failures with Transient/Permanent wrappers; a bare error is
// treated as transient by the worker.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg *models.OutboxMessage) (*Result, error)
}

// Registry maps each channel to its single active provider.
type Registry struct {
	providers map[enums.Channel]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[enums.Channel]Provider)}
}

// Register binds a provider to a channel, replacing any previous binding.
func (r *Registry) Register(channel enums.Channel, p Provider) {
	r.providers[channel] = p
}

// For returns the provider bound to channel. A missing binding is a
// deployment defect and therefore permanent.
func (r *Registry) For(channel enums.Channel) (Provider, error) {
	p, ok := r.providers[channel]
	if !ok || p == nil {
		return nil, Permanent(fmt.Errorf("no provider registered for channel %s", channel))
	}
	return p, nil
}

// Channels lists the channels with a registered provider.
func (r *Registry) Channels() []enums.Channel {
	channels := make([]enums.Channel, 0, len(r.providers))
	for c := range r.providers {
		channels = append(channels, c)
	}
	return channels
}
