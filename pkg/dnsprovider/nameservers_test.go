package dnsprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/miekg/dns"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/doh"
)

// mockResolver returns a canned response and records the queried name
type mockResolver struct {
	resp    *doh.Response
	err     error
	queried string
	qtype   uint16
}

func (m *mockResolver) Resolve(ctx context.Context, name string, qtype uint16) (*doh.Response, error) {
	m.queried = name
	m.qtype = qtype
	return m.resp, m.err
}

func nsAnswers(names ...string) *doh.Response {
	resp := &doh.Response{Status: dns.RcodeSuccess}
	for _, n := range names {
		resp.Answer = append(resp.Answer, doh.Answer{Name: "example.com.", Type: dns.TypeNS, TTL: 300, Data: n})
	}
	return resp
}

func TestNameserverDelegated(t *testing.T) {
	const suffix = "ns.cloudflare.com"

	tests := []struct {
		name     string
		hostname string
		resolver *mockResolver
		want     bool
	}{
		{
			name:     "all nameservers delegated",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: nsAnswers("alice.ns.cloudflare.com.", "bob.ns.cloudflare.com.")},
			want:     true,
		},
		{
			name:     "answers without trailing dot",
			hostname: "example.com",
			resolver: &mockResolver{resp: nsAnswers("alice.ns.cloudflare.com")},
			want:     true,
		},
		{
			name:     "mixed nameservers",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: nsAnswers("alice.ns.cloudflare.com.", "ns1.registrar.net.")},
			want:     false,
		},
		{
			name:     "foreign nameservers",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: nsAnswers("ns-1.awsdns-01.org.")},
			want:     false,
		},
		{
			name:     "look-alike suffix",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: nsAnswers("evilns.cloudflare.com.")},
			want:     false,
		},
		{
			name:     "no answers",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: &doh.Response{Status: dns.RcodeSuccess}},
			want:     false,
		},
		{
			name:     "only non-NS answers",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: &doh.Response{Status: dns.RcodeSuccess, Answer: []doh.Answer{{Type: dns.TypeSOA, Data: "a.ns.cloudflare.com."}}}},
			want:     false,
		},
		{
			name:     "NXDOMAIN",
			hostname: "lms.example.com",
			resolver: &mockResolver{resp: &doh.Response{Status: dns.RcodeNameError}},
			want:     false,
		},
		{
			name:     "lookup error",
			hostname: "lms.example.com",
			resolver: &mockResolver{err: errors.New("context deadline exceeded")},
			want:     false,
		},
		{
			name:     "unparsable hostname",
			hostname: "localhost",
			resolver: &mockResolver{resp: nsAnswers("alice.ns.cloudflare.com.")},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NameserverDelegated(context.Background(), tt.resolver, tt.hostname, suffix)
			if got != tt.want {
				t.Errorf("NameserverDelegated() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNameserverDelegated_QueriesRegistrableDomain(t *testing.T) {
	resolver := &mockResolver{resp: nsAnswers("alice.ns.cloudflare.com.")}

	NameserverDelegated(context.Background(), resolver, "two.one.example.co.uk", "ns.cloudflare.com")

	if resolver.queried != "example.co.uk" {
		t.Errorf("queried %q, want example.co.uk", resolver.queried)
	}
	if resolver.qtype != dns.TypeNS {
		t.Errorf("qtype = %d, want NS", resolver.qtype)
	}
}
