package cloudflare

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider"
)

var _ dnsprovider.DNSProvider = (*Provider)(nil)

const testTarget = "6ff42ae2-765d-4adf-8112-31c55c1551ef.cfargotunnel.com"

// mockClient is an in-memory CloudflareClient
type mockClient struct {
	zones   map[string]string
	records map[string][]DNSRecordResult // keyed by zone ID
	listErr error

	created []RecordSpec
	updated map[string]RecordSpec // keyed by record ID
}

func newMockClient() *mockClient {
	return &mockClient{
		zones:   map[string]string{"example.com": "zone-1"},
		records: map[string][]DNSRecordResult{},
		updated: map[string]RecordSpec{},
	}
}

func (m *mockClient) ResolveZoneID(ctx context.Context, zoneName string) (string, error) {
	id, ok := m.zones[zoneName]
	if !ok {
		return "", errors.New("no zone found for " + zoneName)
	}
	return id, nil
}

func (m *mockClient) ListDNSRecords(ctx context.Context, zoneID, name, recordType string) ([]DNSRecordResult, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []DNSRecordResult
	for _, rec := range m.records[zoneID] {
		if (name == "" || rec.Name == name) && (recordType == "" || rec.Type == recordType) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockClient) CreateDNSRecord(ctx context.Context, zoneID string, record RecordSpec) error {
	m.created = append(m.created, record)
	return nil
}

func (m *mockClient) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, record RecordSpec) error {
	m.updated[recordID] = record
	return nil
}

func TestProvider_Identity(t *testing.T) {
	p := NewProvider(Config{})
	if p.Name() != "cloudflare" {
		t.Errorf("Name() = %q", p.Name())
	}
	if p.NameserverSuffix() != "ns.cloudflare.com" {
		t.Errorf("NameserverSuffix() = %q", p.NameserverSuffix())
	}

	custom := NewProvider(Config{NameserverSuffix: "ns.example.net"})
	if custom.NameserverSuffix() != "ns.example.net" {
		t.Errorf("NameserverSuffix() = %q, want override", custom.NameserverSuffix())
	}
}

func TestProvider_RequiresToken(t *testing.T) {
	p := NewProvider(Config{APIToken: ""})

	err := p.EnsureTunnelRoutes(context.Background(), "example.com", []string{"lms.example.com"}, testTarget)
	if err == nil || !strings.Contains(err.Error(), EnvAPIToken) {
		t.Fatalf("EnsureTunnelRoutes() error = %v, want mention of %s", err, EnvAPIToken)
	}
}

func TestEnsureTunnelRoutes(t *testing.T) {
	client := newMockClient()
	client.records["zone-1"] = []DNSRecordResult{
		{ID: "r-ok", Name: "lms.example.com", Type: "CNAME", Content: testTarget, Proxied: true},
		{ID: "r-stale", Name: "studio.example.com", Type: "CNAME", Content: "old.cfargotunnel.com", Proxied: true},
		{ID: "r-unproxied", Name: "apps.example.com", Type: "CNAME", Content: testTarget, Proxied: false},
	}
	p := NewProviderForTesting(client)

	hosts := []string{"lms.example.com", "studio.example.com", "apps.example.com", "preview.example.com"}
	if err := p.EnsureTunnelRoutes(context.Background(), "example.com", hosts, testTarget); err != nil {
		t.Fatalf("EnsureTunnelRoutes() error = %v", err)
	}

	want := []RecordSpec{{Name: "preview.example.com", Type: "CNAME", Content: testTarget, TTL: AutoTTL, Proxied: true}}
	if !reflect.DeepEqual(client.created, want) {
		t.Errorf("created = %+v, want %+v", client.created, want)
	}

	if len(client.updated) != 2 {
		t.Fatalf("updated = %+v, want stale and unproxied records", client.updated)
	}
	for _, id := range []string{"r-stale", "r-unproxied"} {
		rec, ok := client.updated[id]
		if !ok || rec.Content != testTarget || !rec.Proxied {
			t.Errorf("record %s not updated correctly: %+v", id, rec)
		}
	}
	if _, ok := client.updated["r-ok"]; ok {
		t.Error("up-to-date record should not be updated")
	}
}

func TestEnsureTunnelRoutes_Conflict(t *testing.T) {
	client := newMockClient()
	client.records["zone-1"] = []DNSRecordResult{
		{ID: "r-a", Name: "lms.example.com", Type: "A", Content: "203.0.113.10"},
	}
	p := NewProviderForTesting(client)

	err := p.EnsureTunnelRoutes(context.Background(), "example.com", []string{"lms.example.com", "studio.example.com"}, testTarget)
	if err == nil || !strings.Contains(err.Error(), "lms.example.com") {
		t.Fatalf("EnsureTunnelRoutes() error = %v, want conflict on lms.example.com", err)
	}
	if len(client.created) != 1 || client.created[0].Name != "studio.example.com" {
		t.Errorf("other hostnames should still be routed, created = %+v", client.created)
	}
	if len(client.updated) != 0 {
		t.Errorf("conflicting A record must not be overwritten: %+v", client.updated)
	}
}

func TestEnsureTunnelRoutes_UnknownZone(t *testing.T) {
	p := NewProviderForTesting(newMockClient())

	err := p.EnsureTunnelRoutes(context.Background(), "other.org", []string{"lms.other.org"}, testTarget)
	if err == nil {
		t.Fatal("expected an error for an unknown zone")
	}
}

func TestVerifyTunnelRoutes(t *testing.T) {
	client := newMockClient()
	client.records["zone-1"] = []DNSRecordResult{
		{ID: "1", Name: "lms.example.com", Type: "CNAME", Content: testTarget + "."},
		{ID: "2", Name: "studio.example.com", Type: "CNAME", Content: "other.cfargotunnel.com"},
		{ID: "3", Name: "apps.example.com", Type: "A", Content: "203.0.113.10"},
	}
	p := NewProviderForTesting(client)

	missing, err := p.VerifyTunnelRoutes(context.Background(), "example.com",
		[]string{"lms.example.com", "studio.example.com", "apps.example.com", "preview.example.com"}, testTarget)
	if err != nil {
		t.Fatalf("VerifyTunnelRoutes() error = %v", err)
	}

	want := []string{"studio.example.com", "apps.example.com", "preview.example.com"}
	if !reflect.DeepEqual(missing, want) {
		t.Errorf("missing = %v, want %v", missing, want)
	}
}

func TestVerifyTunnelRoutes_ListError(t *testing.T) {
	client := newMockClient()
	client.listErr = errors.New("forbidden")
	p := NewProviderForTesting(client)

	if _, err := p.VerifyTunnelRoutes(context.Background(), "example.com", []string{"lms.example.com"}, testTarget); err == nil {
		t.Fatal("expected the API error to be returned")
	}
}

func TestTunnelTarget(t *testing.T) {
	got, err := TunnelTarget(" 6ff42ae2-765d-4adf-8112-31c55c1551ef ")
	if err != nil || got != testTarget {
		t.Errorf("TunnelTarget() = %q, %v", got, err)
	}
	if _, err := TunnelTarget(""); err == nil {
		t.Error("TunnelTarget(\"\") should fail")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvAPIToken, "secret")

	cfg := ConfigFromEnv("")
	if cfg.APIToken != "secret" {
		t.Errorf("APIToken = %q", cfg.APIToken)
	}
	if cfg.NameserverSuffix != DefaultNameserverSuffix {
		t.Errorf("NameserverSuffix = %q", cfg.NameserverSuffix)
	}
	if cfg.RequestsPerSecond != DefaultRequestsPerSecond {
		t.Errorf("RequestsPerSecond = %v", cfg.RequestsPerSecond)
	}
}

func TestCnameParam_RejectsOtherTypes(t *testing.T) {
	if _, err := cnameParam(RecordSpec{Name: "lms.example.com", Type: "A"}); err == nil {
		t.Error("cnameParam() should reject A records")
	}
}
