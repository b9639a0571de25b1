// Package dnsprovider defines the DNS providers that can front an Open edX
// tunnel and the checks that decide whether a domain is served by one.
package dnsprovider

import "context"

// DNSProvider is implemented by every DNS provider. Providers are stateless:
// the zone and hostnames are passed to each call.
type DNSProvider interface {
	// Name returns the provider name (cloudflare, ...)
	Name() string

	// NameserverSuffix is the suffix every delegated nameserver ends with,
	// e.g. "ns.cloudflare.com".
	NameserverSuffix() string

	// EnsureTunnelRoutes creates or updates one record per hostname in zone so
	// that it routes to target. Idempotent.
	EnsureTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) error

	// VerifyTunnelRoutes returns the hostnames that do not route to target.
	VerifyTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) ([]string, error)
}
