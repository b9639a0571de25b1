package cloudflare

import "context"

// DNSRecordResult is a DNS record returned by the Cloudflare API, decoupled from SDK types.
type DNSRecordResult struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}

// RecordSpec describes the record to create or update
type RecordSpec struct {
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}

// CloudflareClient abstracts the Cloudflare API.
// Tests inject a mock implementation via NewProviderForTesting.
type CloudflareClient interface {
	// ResolveZoneID looks up the zone ID for a zone name such as "example.com".
	ResolveZoneID(ctx context.Context, zoneName string) (string, error)

	// ListDNSRecords returns DNS records matching name and type.
	// Empty name or recordType match everything.
	ListDNSRecords(ctx context.Context, zoneID string, name string, recordType string) ([]DNSRecordResult, error)

	// CreateDNSRecord creates a new DNS record in the zone.
	CreateDNSRecord(ctx context.Context, zoneID string, record RecordSpec) error

	// UpdateDNSRecord overwrites the record with recordID.
	UpdateDNSRecord(ctx context.Context, zoneID string, recordID string, record RecordSpec) error
}
