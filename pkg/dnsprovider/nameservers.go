package dnsprovider

import (
	"context"
	"log/slog"
	"strings"

	"github.com/miekg/dns"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/doh"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/domain"
)

// NameserverDelegated reports whether the registrable domain of hostname is
// delegated to nameservers ending in suffix. Any failure along the way
// (unparsable host, lookup error, non-zero DNS status, no NS answers or a
// foreign nameserver) yields false.
func NameserverDelegated(ctx context.Context, resolver doh.Resolver, hostname, suffix string) bool {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "dnsprovider.NameserverDelegated")
	defer span.End()

	span.SetAttributes(
		attribute.String("hostname", hostname),
		attribute.String("nameserver_suffix", suffix),
	)

	zone, err := domain.RegistrableDomain(hostname)
	if err != nil {
		span.RecordError(err)
		slog.Debug("Cannot determine zone for nameserver lookup", "hostname", hostname, "error", err)
		return false
	}
	span.SetAttributes(attribute.String("zone", zone))

	resp, err := resolver.Resolve(ctx, zone, dns.TypeNS)
	if err != nil {
		span.RecordError(err)
		slog.Warn("Nameserver lookup failed", "zone", zone, "error", err)
		return false
	}
	if resp.Status != dns.RcodeSuccess {
		slog.Debug("Nameserver lookup returned non-success status", "zone", zone, "status", doh.StatusText(resp.Status))
		return false
	}

	suffix = normalizeNameserver(suffix)
	found := 0
	for _, answer := range resp.Answer {
		if answer.Type != dns.TypeNS {
			continue
		}
		found++
		ns := normalizeNameserver(answer.Data)
		if ns != suffix && !strings.HasSuffix(ns, "."+suffix) {
			slog.Debug("Nameserver is not managed by the provider", "zone", zone, "nameserver", ns)
			return false
		}
	}

	span.SetAttributes(attribute.Int("nameserver_count", found))
	return found > 0
}

func normalizeNameserver(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}
