package cloudflare

import (
	"fmt"
	"os"
	"strings"
)

const (
	// ProviderName is the registry name of this provider
	ProviderName = "cloudflare"

	// DefaultNameserverSuffix is shared by every Cloudflare-assigned nameserver
	DefaultNameserverSuffix = "ns.cloudflare.com"

	// TunnelDomain hosts the per-tunnel CNAME targets
	TunnelDomain = "cfargotunnel.com"

	// EnvAPIToken holds the API token. It needs Zone:Read and DNS:Edit.
	EnvAPIToken = "CLOUDFLARE_API_TOKEN"

	// AutoTTL lets Cloudflare pick the TTL, required for proxied records
	AutoTTL = 1

	// DefaultRequestsPerSecond stays under the 1200 requests / 5 minutes API limit
	DefaultRequestsPerSecond = 4
)

// Config holds the provider settings. Secrets come from the environment, not config.yml.
type Config struct {
	APIToken          string
	NameserverSuffix  string
	RequestsPerSecond float64
}

// ConfigFromEnv builds a Config from CLOUDFLARE_API_TOKEN and the nameserver suffix setting.
func ConfigFromEnv(nameserverSuffix string) Config {
	if nameserverSuffix == "" {
		nameserverSuffix = DefaultNameserverSuffix
	}
	return Config{
		APIToken:          os.Getenv(EnvAPIToken),
		NameserverSuffix:  nameserverSuffix,
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
}

// TunnelTarget returns the CNAME target of a tunnel, "<uuid>.cfargotunnel.com".
func TunnelTarget(tunnelUUID string) (string, error) {
	tunnelUUID = strings.TrimSpace(tunnelUUID)
	if tunnelUUID == "" {
		return "", fmt.Errorf("tunnel UUID is empty: set CLOUDFLARED_TUNNEL_UUID first")
	}
	return tunnelUUID + "." + TunnelDomain, nil
}
