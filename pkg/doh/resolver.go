// Package doh resolves DNS records over HTTPS.
//
// Two transports are provided: JSONResolver speaks the JSON API offered by
// dns.google and cloudflare-dns.com, and WireResolver speaks RFC 8484
// (application/dns-message). Both bound every lookup with a timeout; a timed out
// lookup is reported as an error like any other transport failure.
package doh

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultJSONEndpoint is Google's public JSON DoH API.
	DefaultJSONEndpoint = "https://dns.google/resolve"

	// DefaultWireEndpoint is Cloudflare's public RFC 8484 endpoint.
	DefaultWireEndpoint = "https://cloudflare-dns.com/dns-query"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 5 * time.Second
)

// Answer is a single resource record from a DoH response.
type Answer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  uint32 `json:"TTL"`
	Data string `json:"data"`
}

// Response is the decoded result of a lookup. Status is the DNS rcode.
type Response struct {
	Status int      `json:"Status"`
	Answer []Answer `json:"Answer"`
}

// Resolver looks up records of type qtype (dns.TypeNS, dns.TypeA, ...) for name.
type Resolver interface {
	Resolve(ctx context.Context, name string, qtype uint16) (*Response, error)
}

// Option configures a resolver.
type Option func(*options)

type options struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// WithEndpoint overrides the DoH endpoint URL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// WithTimeout sets the per-lookup timeout. A non-positive d keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func buildOptions(defaultEndpoint string, opts []Option) *options {
	o := &options{
		endpoint: defaultEndpoint,
		timeout:  DefaultTimeout,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = defaultEndpoint
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	return o
}
