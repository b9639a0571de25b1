// Package cloudflare implements the Cloudflare DNS provider: nameserver
// delegation checks and proxied CNAME routes to a cloudflared tunnel.
package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

const recordTypeCNAME = "CNAME"

// Provider implements dnsprovider.DNSProvider for Cloudflare.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	client CloudflareClient // created on first use unless injected
}

// NewProvider creates a Cloudflare provider. The API client is created lazily
// so that nameserver checks work without an API token.
func NewProvider(cfg Config) *Provider {
	if cfg.NameserverSuffix == "" {
		cfg.NameserverSuffix = DefaultNameserverSuffix
	}
	return &Provider{cfg: cfg}
}

// NewProviderForTesting creates a provider with an injected client.
func NewProviderForTesting(client CloudflareClient) *Provider {
	return &Provider{
		cfg:    Config{NameserverSuffix: DefaultNameserverSuffix},
		client: client,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// NameserverSuffix returns the suffix of Cloudflare-assigned nameservers.
func (p *Provider) NameserverSuffix() string {
	return p.cfg.NameserverSuffix
}

func (p *Provider) getClient() (CloudflareClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := NewSDKClient(p.cfg.APIToken, p.cfg.RequestsPerSecond)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// EnsureTunnelRoutes creates or updates a proxied CNAME <hostname> -> target
// for each hostname in zone. Records already pointing at target are left alone.
// A non-CNAME record at a hostname is reported as a conflict and not touched.
func (p *Provider) EnsureTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.EnsureTunnelRoutes")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone", zone),
		attribute.String("target", target),
		attribute.Int("hostname_count", len(hostnames)),
	)

	client, err := p.getClient()
	if err != nil {
		span.RecordError(err)
		return err
	}

	zoneID, err := client.ResolveZoneID(ctx, zone)
	if err != nil {
		span.RecordError(err)
		return err
	}

	var failed []string
	for _, hostname := range hostnames {
		if err := p.ensureRoute(ctx, client, zoneID, hostname, target); err != nil {
			span.RecordError(err)
			slog.Error("Failed to route hostname to tunnel", "hostname", hostname, "error", err)
			status.Send(ctx, status.NewUpdate(status.LevelError, err.Error()).
				WithResource("dns-record").
				WithAction("ensure").
				WithMetadata("hostname", hostname))
			failed = append(failed, hostname)
		}
	}

	if len(failed) > 0 {
		err := fmt.Errorf("failed to route %d hostname(s) to the tunnel: %s", len(failed), strings.Join(failed, ", "))
		span.RecordError(err)
		return err
	}
	return nil
}

func (p *Provider) ensureRoute(ctx context.Context, client CloudflareClient, zoneID, hostname, target string) error {
	records, err := client.ListDNSRecords(ctx, zoneID, hostname, "")
	if err != nil {
		return err
	}

	spec := RecordSpec{
		Name:    hostname,
		Type:    recordTypeCNAME,
		Content: target,
		TTL:     AutoTTL,
		Proxied: true,
	}

	var existing *DNSRecordResult
	for i := range records {
		rec := records[i]
		if !strings.EqualFold(rec.Name, hostname) {
			continue
		}
		if rec.Type != recordTypeCNAME {
			return fmt.Errorf("%s already has a %s record: remove it before routing the hostname to the tunnel", hostname, rec.Type)
		}
		existing = &rec
	}

	switch {
	case existing == nil:
		if err := client.CreateDNSRecord(ctx, zoneID, spec); err != nil {
			return err
		}
		slog.Info("Created tunnel route", "hostname", hostname, "target", target)
		status.Send(ctx, status.NewUpdate(status.LevelSuccess, fmt.Sprintf("Created %s -> %s", hostname, target)).
			WithResource("dns-record").
			WithAction("create"))
	case routesTo(*existing, target) && existing.Proxied:
		slog.Debug("Tunnel route already up to date", "hostname", hostname)
		status.Send(ctx, status.NewUpdate(status.LevelInfo, fmt.Sprintf("%s already routes to the tunnel", hostname)).
			WithResource("dns-record").
			WithAction("unchanged"))
	default:
		if err := client.UpdateDNSRecord(ctx, zoneID, existing.ID, spec); err != nil {
			return err
		}
		slog.Info("Updated tunnel route", "hostname", hostname, "previous", existing.Content, "target", target)
		status.Send(ctx, status.NewUpdate(status.LevelSuccess, fmt.Sprintf("Updated %s -> %s", hostname, target)).
			WithResource("dns-record").
			WithAction("update"))
	}
	return nil
}

// VerifyTunnelRoutes returns the hostnames that have no CNAME to target.
func (p *Provider) VerifyTunnelRoutes(ctx context.Context, zone string, hostnames []string, target string) ([]string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.VerifyTunnelRoutes")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone", zone),
		attribute.String("target", target),
		attribute.Int("hostname_count", len(hostnames)),
	)

	client, err := p.getClient()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	zoneID, err := client.ResolveZoneID(ctx, zone)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var missing []string
	for _, hostname := range hostnames {
		records, err := client.ListDNSRecords(ctx, zoneID, hostname, recordTypeCNAME)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		routed := false
		for _, rec := range records {
			if strings.EqualFold(rec.Name, hostname) && routesTo(rec, target) {
				routed = true
				break
			}
		}
		if !routed {
			missing = append(missing, hostname)
		}
	}

	span.SetAttributes(attribute.Int("missing_count", len(missing)))
	return missing, nil
}

func routesTo(rec DNSRecordResult, target string) bool {
	return strings.EqualFold(strings.TrimSuffix(rec.Content, "."), strings.TrimSuffix(target, "."))
}
