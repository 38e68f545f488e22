package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// DeliveryAdapter is the contract a platform binding (Discord, Telegram, ...)
// must satisfy to receive dispatched messages. PlatformName must match the
// Subscription.Platform value routed to it.
type DeliveryAdapter interface {
	PlatformName() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// SendMessage delivers msg to channelID. Implementations own their own
	// formatting, rate limiting and retry policy.
	SendMessage(ctx context.Context, channelID string, msg *Message) error
	// SendText delivers a plain-text message to channelID, bypassing Message
	// formatting. Used for operator-facing notices (e.g. subscription
	// command replies) rather than dispatched feed entries.
	SendText(ctx context.Context, channelID, text string) error
}

// AdapterRegistry maps platform name to its DeliveryAdapter. Safe for
// concurrent use; registration is expected at startup, lookups during
// dispatch cycles.
type AdapterRegistry struct {
	mu       sync.RWMutex
	adapters map[string]DeliveryAdapter
}

// NewAdapterRegistry builds an empty registry.
func NewAdapterRegistry() *AdapterRegistry {
	return &AdapterRegistry{adapters: make(map[string]DeliveryAdapter)}
}

// Register adds an adapter under its own PlatformName.
func (r *AdapterRegistry) Register(a DeliveryAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.PlatformName()] = a
}

// Get returns the adapter registered for platform, if any.
func (r *AdapterRegistry) Get(platform string) (DeliveryAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[platform]
	return a, ok
}

// StartAll starts every registered adapter, stopping and returning on the
// first error.
func (r *AdapterRegistry) StartAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for platform, a := range r.adapters {
		if err := a.Start(ctx); err != nil {
			return fmt.Errorf("start adapter %s: %w", platform, err)
		}
	}
	return nil
}

// StopAll stops every registered adapter in turn, going on past individual
// errors so one failing adapter does not keep the others from stopping. It
// returns the first error; a slow Stop delays the adapters after it.
func (r *AdapterRegistry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var firstErr error
	for platform, a := range r.adapters {
		if err := a.Stop(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop adapter %s: %w", platform, err)
		}
	}
	return firstErr
}
