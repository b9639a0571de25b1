package dnsprovider

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

// mockDNSProvider is a mock implementation for testing
type mockDNSProvider struct {
	name string
}

func (m *mockDNSProvider) Name() string             { return m.name }
func (m *mockDNSProvider) NameserverSuffix() string { return "ns." + m.name + ".test" }

func (m *mockDNSProvider) EnsureTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) error {
	return nil
}

func (m *mockDNSProvider) VerifyTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) ([]string, error) {
	return nil, nil
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	if registry == nil || registry.providers == nil {
		t.Fatal("NewRegistry() returned nil or has nil providers map")
	}
}

func TestRegistry_Register(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	provider := &mockDNSProvider{name: "cloudflare"}
	if err := registry.Register(ctx, provider); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	err := registry.Register(ctx, &mockDNSProvider{name: "cloudflare"})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("Register() duplicate error = %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	provider := &mockDNSProvider{name: "cloudflare"}
	if err := registry.Register(ctx, provider); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	got, err := registry.Get(ctx, "cloudflare")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != provider {
		t.Error("Get() returned a different provider")
	}

	_, err = registry.Get(ctx, "route53")
	if err == nil {
		t.Fatal("Get() should fail for an unregistered provider")
	}
	if !strings.Contains(err.Error(), "available: cloudflare") {
		t.Errorf("error should list available providers: %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry()

	if got := registry.List(ctx); len(got) != 0 {
		t.Errorf("List() on empty registry = %v", got)
	}

	for _, name := range []string{"route53", "cloudflare", "azure-dns"} {
		if err := registry.Register(ctx, &mockDNSProvider{name: name}); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	want := []string{"azure-dns", "cloudflare", "route53"}
	if got := registry.List(ctx); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}
