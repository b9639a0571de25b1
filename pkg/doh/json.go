package doh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// JSONResolver queries a JSON DoH API with GET ?name=<name>&type=<TYPE>.
type JSONResolver struct {
	opts *options
}

// NewJSONResolver creates a resolver for the JSON API, defaulting to DefaultJSONEndpoint.
func NewJSONResolver(opts ...Option) *JSONResolver {
	return &JSONResolver{opts: buildOptions(DefaultJSONEndpoint, opts)}
}

// Endpoint returns the configured endpoint URL.
func (r *JSONResolver) Endpoint() string {
	return r.opts.endpoint
}

// Resolve performs a single lookup.
func (r *JSONResolver) Resolve(ctx context.Context, name string, qtype uint16) (*Response, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "doh.JSONResolver.Resolve")
	defer span.End()

	typeName := dns.TypeToString[qtype]
	span.SetAttributes(
		attribute.String("dns.name", name),
		attribute.String("dns.type", typeName),
		attribute.String("doh.endpoint", r.opts.endpoint),
	)

	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()

	u, err := url.Parse(r.opts.endpoint)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("invalid DoH endpoint %q: %w", r.opts.endpoint, err)
	}
	q := u.Query()
	q.Set("name", name)
	q.Set("type", typeName)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create DoH request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.opts.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("DoH lookup of %s %s failed: %w", name, typeName, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read-only response

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("DoH endpoint returned HTTP %d for %s %s", resp.StatusCode, name, typeName)
		span.RecordError(err)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read DoH response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to decode DoH response: %w", err)
	}

	span.SetAttributes(
		attribute.Int("dns.status", out.Status),
		attribute.Int("dns.answer_count", len(out.Answer)),
	)
	return &out, nil
}
