package dnsprovider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Registry holds registered DNS providers keyed by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]DNSProvider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]DNSProvider),
	}
}

// Register adds provider under its own name. Registering a name twice is an error.
func (r *Registry) Register(ctx context.Context, provider DNSProvider) error {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "dnsprovider.Register")
	defer span.End()

	name := provider.Name()
	span.SetAttributes(attribute.String("dns_provider.name", name))

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		err := fmt.Errorf("DNS provider %q is already registered", name)
		span.RecordError(err)
		return err
	}

	r.providers[name] = provider
	return nil
}

// Get returns the provider registered under name
func (r *Registry) Get(ctx context.Context, name string) (DNSProvider, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "dnsprovider.Get")
	defer span.End()

	span.SetAttributes(attribute.String("dns_provider.name", name))

	r.mu.RLock()
	provider, exists := r.providers[name]
	r.mu.RUnlock()

	if !exists {
		err := fmt.Errorf("DNS provider %q is not registered (available: %s)", name, strings.Join(r.List(ctx), ", "))
		span.RecordError(err)
		return nil, err
	}

	return provider, nil
}

// List returns the registered provider names in sorted order
func (r *Registry) List(ctx context.Context) []string {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "dnsprovider.List")
	defer span.End()

	r.mu.RLock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	span.SetAttributes(attribute.Int("dns_provider.count", len(names)))

	return names
}
