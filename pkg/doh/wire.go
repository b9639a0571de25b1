package doh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const dnsMessageType = "application/dns-message"

// WireResolver posts RFC 8484 wire-format queries.
type WireResolver struct {
	opts *options
}

// NewWireResolver creates an RFC 8484 resolver, defaulting to DefaultWireEndpoint.
func NewWireResolver(opts ...Option) *WireResolver {
	return &WireResolver{opts: buildOptions(DefaultWireEndpoint, opts)}
}

// Endpoint returns the configured endpoint URL.
func (r *WireResolver) Endpoint() string {
	return r.opts.endpoint
}

// Resolve performs a single lookup.
func (r *WireResolver) Resolve(ctx context.Context, name string, qtype uint16) (*Response, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "doh.WireResolver.Resolve")
	defer span.End()

	span.SetAttributes(
		attribute.String("dns.name", name),
		attribute.String("dns.type", dns.TypeToString[qtype]),
		attribute.String("doh.endpoint", r.opts.endpoint),
	)

	ctx, cancel := context.WithTimeout(ctx, r.opts.timeout)
	defer cancel()

	query := new(dns.Msg)
	query.SetQuestion(dns.Fqdn(name), qtype)
	// RFC 8484 recommends ID 0 for cache friendliness.
	query.Id = 0

	packed, err := query.Pack()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to pack DNS query for %s: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opts.endpoint, bytes.NewReader(packed))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create DoH request: %w", err)
	}
	req.Header.Set("Content-Type", dnsMessageType)
	req.Header.Set("Accept", dnsMessageType)

	resp, err := r.opts.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("DoH lookup of %s failed: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read-only response

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("DoH endpoint returned HTTP %d for %s", resp.StatusCode, name)
		span.RecordError(err)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, dns.MaxMsgSize))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read DoH response: %w", err)
	}

	msg := new(dns.Msg)
	if err := msg.Unpack(body); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to unpack DNS response: %w", err)
	}

	out := &Response{Status: msg.Rcode}
	for _, rr := range msg.Answer {
		out.Answer = append(out.Answer, answerFromRR(rr))
	}

	span.SetAttributes(
		attribute.Int("dns.status", out.Status),
		attribute.Int("dns.answer_count", len(out.Answer)),
	)
	return out, nil
}

func answerFromRR(rr dns.RR) Answer {
	hdr := rr.Header()
	a := Answer{
		Name: hdr.Name,
		Type: hdr.Rrtype,
		TTL:  hdr.Ttl,
	}
	switch v := rr.(type) {
	case *dns.NS:
		a.Data = v.Ns
	case *dns.CNAME:
		a.Data = v.Target
	case *dns.A:
		a.Data = v.A.String()
	case *dns.AAAA:
		a.Data = v.AAAA.String()
	default:
		a.Data = strings.TrimSpace(strings.TrimPrefix(rr.String(), hdr.String()))
	}
	return a
}

// StatusText returns the rcode mnemonic for a response status, e.g. "NXDOMAIN".
func StatusText(status int) string {
	if s, ok := dns.RcodeToString[status]; ok {
		return s
	}
	return fmt.Sprintf("RCODE%d", status)
}
