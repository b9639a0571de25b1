package cloudflare

import (
	"context"
	"fmt"

	cfapi "github.com/cloudflare/cloudflare-go/v4"
	"github.com/cloudflare/cloudflare-go/v4/dns"
	"github.com/cloudflare/cloudflare-go/v4/option"
	"github.com/cloudflare/cloudflare-go/v4/zones"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// sdkClient adapts the cloudflare-go v4 SDK to CloudflareClient.
// Every call waits on a shared limiter before reaching the API.
type sdkClient struct {
	api     *cfapi.Client
	limiter *rate.Limiter
}

// NewSDKClient creates a Cloudflare API client authenticated with apiToken.
func NewSDKClient(apiToken string, requestsPerSecond float64) (CloudflareClient, error) {
	if apiToken == "" {
		return nil, fmt.Errorf("%s environment variable is required for the cloudflare provider", EnvAPIToken)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &sdkClient{
		api:     cfapi.NewClient(option.WithAPIToken(apiToken)),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

func (c *sdkClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for Cloudflare API rate limit: %w", err)
	}
	return nil
}

// ResolveZoneID looks up the zone ID for a zone name.
func (c *sdkClient) ResolveZoneID(ctx context.Context, zoneName string) (string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.sdk.ResolveZoneID")
	defer span.End()

	span.SetAttributes(attribute.String("zone_name", zoneName))

	if err := c.wait(ctx); err != nil {
		span.RecordError(err)
		return "", err
	}

	pager := c.api.Zones.ListAutoPaging(ctx, zones.ZoneListParams{
		Name: cfapi.F(zoneName),
	})
	for pager.Next() {
		zone := pager.Current()
		if zone.Name == zoneName {
			span.SetAttributes(attribute.String("zone_id", zone.ID))
			return zone.ID, nil
		}
	}
	if err := pager.Err(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to list zones: %w (check that your API token has Zone:Read permission)", err)
	}

	err := fmt.Errorf("no zone found for %q: check that the zone exists and your API token has Zone:Read permission", zoneName)
	span.RecordError(err)
	return "", err
}

// ListDNSRecords returns DNS records matching name and type.
func (c *sdkClient) ListDNSRecords(ctx context.Context, zoneID string, name string, recordType string) ([]DNSRecordResult, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.sdk.ListDNSRecords")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_name", name),
		attribute.String("record_type", recordType),
	)

	if err := c.wait(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	params := dns.RecordListParams{
		ZoneID: cfapi.F(zoneID),
	}
	if name != "" {
		params.Name = cfapi.F(dns.RecordListParamsName{
			Exact: cfapi.F(name),
		})
	}
	if recordType != "" {
		params.Type = cfapi.F(dns.RecordListParamsType(recordType))
	}

	var results []DNSRecordResult
	pager := c.api.DNS.Records.ListAutoPaging(ctx, params)
	for pager.Next() {
		rec := pager.Current()
		results = append(results, DNSRecordResult{
			ID:      rec.ID,
			Name:    rec.Name,
			Type:    string(rec.Type),
			Content: rec.Content,
			TTL:     int(rec.TTL),
			Proxied: rec.Proxied,
		})
	}
	if err := pager.Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list DNS records: %w", err)
	}

	span.SetAttributes(attribute.Int("record_count", len(results)))
	return results, nil
}

// CreateDNSRecord creates a CNAME record in the zone.
func (c *sdkClient) CreateDNSRecord(ctx context.Context, zoneID string, record RecordSpec) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.sdk.CreateDNSRecord")
	defer span.End()

	span.SetAttributes(recordAttributes(zoneID, record)...)

	body, err := cnameParam(record)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.wait(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	_, err = c.api.DNS.Records.New(ctx, dns.RecordNewParams{
		ZoneID: cfapi.F(zoneID),
		Body:   body,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create DNS record %s (%s): %w", record.Name, record.Type, err)
	}

	return nil
}

// UpdateDNSRecord overwrites a CNAME record by ID.
func (c *sdkClient) UpdateDNSRecord(ctx context.Context, zoneID string, recordID string, record RecordSpec) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cloudflare.sdk.UpdateDNSRecord")
	defer span.End()

	span.SetAttributes(recordAttributes(zoneID, record)...)
	span.SetAttributes(attribute.String("record_id", recordID))

	body, err := cnameParam(record)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := c.wait(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	_, err = c.api.DNS.Records.Update(ctx, recordID, dns.RecordUpdateParams{
		ZoneID: cfapi.F(zoneID),
		Body:   body,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update DNS record %s (%s, id=%s): %w", record.Name, record.Type, recordID, err)
	}

	return nil
}

func recordAttributes(zoneID string, record RecordSpec) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("zone_id", zoneID),
		attribute.String("record_name", record.Name),
		attribute.String("record_type", record.Type),
		attribute.String("record_content", record.Content),
		attribute.Int("record_ttl", record.TTL),
		attribute.Bool("record_proxied", record.Proxied),
	}
}

// cnameParam builds the request body for a tunnel route. Tunnel routes are
// always CNAMEs; other record types are rejected.
func cnameParam(record RecordSpec) (dns.CNAMERecordParam, error) {
	if record.Type != recordTypeCNAME {
		return dns.CNAMERecordParam{}, fmt.Errorf("unsupported record type %q: tunnel routes are CNAME records", record.Type)
	}
	return dns.CNAMERecordParam{
		Name:    cfapi.F(record.Name),
		Type:    cfapi.F(dns.CNAMERecordTypeCNAME),
		Content: cfapi.F(record.Content),
		TTL:     cfapi.F(dns.TTL(record.TTL)),
		Proxied: cfapi.F(record.Proxied),
	}, nil
}
