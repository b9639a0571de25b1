package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider/cloudflare"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/domain"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

var (
	routeDNSProvider string

	routeDNSCmd = &cobra.Command{
		Use:   "route-dns",
		Short: "Point every public host at the tunnel",
		Long: `Create or update a proxied CNAME record <host> -> <uuid>.cfargotunnel.com
for each host of CLOUDFLARED_PUBLIC_HOSTS, in the zone of LMS_HOST.

Requires CLOUDFLARED_TUNNEL_UUID (see set-tunnel-uuid) and a
CLOUDFLARE_API_TOKEN with Zone:Read and DNS:Edit permissions. Hostnames that
already have a non-CNAME record are reported and left untouched.`,
		Args: cobra.NoArgs,
		RunE: runRouteDNS,
	}
)

func init() {
	routeDNSCmd.Flags().StringVar(&routeDNSProvider, "provider", cloudflare.ProviderName, "DNS provider")
}

func runRouteDNS(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cmd.route-dns")
	defer span.End()

	ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
	defer cleanup()

	cfg, err := loadConfig(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	target, err := cloudflare.TunnelTarget(cfg.Settings.TunnelUUID)
	if err != nil {
		span.RecordError(err)
		return err
	}

	zone, err := domain.RegistrableDomain(cfg.LMSHost)
	if err != nil {
		span.RecordError(err)
		return err
	}

	registry, err := newDNSRegistry(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		return err
	}
	provider, err := registry.Get(ctx, routeDNSProvider)
	if err != nil {
		span.RecordError(err)
		return err
	}

	defined, _ := cfg.Hosts()
	hostnames := make([]string, 0, len(defined))
	for _, h := range defined {
		hostnames = append(hostnames, h.Value)
	}

	span.SetAttributes(
		attribute.String("zone", zone),
		attribute.String("target", target),
		attribute.StringSlice("hostnames", hostnames),
	)

	out := newPrinter(cmd)
	out.Title("Routing public hosts to " + target)
	if err := provider.EnsureTunnelRoutes(ctx, zone, hostnames, target); err != nil {
		span.RecordError(err)
		out.Error("❌ %v", err)
		return err
	}

	out.Info("✅ %d host(s) route to the tunnel", len(hostnames))
	return nil
}
