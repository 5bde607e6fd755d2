package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"aigenflow/internal/logging"
)

// ErrNotRegistered is returned when a provider tag has no instance.
var ErrNotRegistered = fmt.Errorf("provider not registered")

// Registry holds provider instances keyed by tag. It implements Sender by
// dispatching directly to the named provider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider instance.
func (r *Registry) Register(tag string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[tag] = p
	logging.Gateway("registered provider %s", tag)
}

// Get resolves a provider by tag.
func (r *Registry) Get(tag string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, tag)
	}
	return p, nil
}

// Tags returns the registered provider tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.providers))
	for tag := range r.providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Send dispatches the request to the named provider.
func (r *Registry) Send(ctx context.Context, provider string, req Request) (*Response, error) {
	p, err := r.Get(provider)
	if err != nil {
		return nil, err
	}
	return p.SendMessage(ctx, req)
}
