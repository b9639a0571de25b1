package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider/cloudflare"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/doctor"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/doh"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

var (
	doctorStrict          bool
	doctorVerifyRoutes    bool
	doctorMetricsTextfile string
	doctorProvider        string
	doctorDoHURL          string
	doctorDoHWire         bool
	doctorTimeout         time.Duration

	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Check that the DNS setup is ready for a Cloudflare tunnel",
		Long: `Run the following checks in order:
  1. LMS_HOST is not the default overhang.io domain.
  2. All public hosts share the root domain of LMS_HOST.
  3. The nameservers of the root domain are handled by Cloudflare.
  4. No public host is more than one subdomain level deep: Cloudflare's free
     certificate does not cover subdomains of subdomains.
  5. With --verify-routes, every public host has a CNAME to the tunnel.

Failures are reported with suggested fixes. The command exits with an error
only for configuration errors, or with --strict when a check failed.`,
		Args: cobra.NoArgs,
		RunE: runDoctor,
	}
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorStrict, "strict", false, "Exit with an error when a check fails")
	doctorCmd.Flags().BoolVar(&doctorVerifyRoutes, "verify-routes", false, "Also verify tunnel routes through the DNS provider API (needs CLOUDFLARE_API_TOKEN)")
	doctorCmd.Flags().StringVar(&doctorMetricsTextfile, "metrics-textfile", "", "Write the results as Prometheus metrics to this file")
	doctorCmd.Flags().StringVar(&doctorProvider, "provider", cloudflare.ProviderName, "DNS provider")
	doctorCmd.Flags().StringVar(&doctorDoHURL, "doh-url", "", "DNS-over-HTTPS endpoint (default CLOUDFLARED_DOH_URL)")
	doctorCmd.Flags().BoolVar(&doctorDoHWire, "doh-wire", false, "Use RFC 8484 wire format instead of the JSON API")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", doh.DefaultTimeout, "Timeout of each DNS lookup (non-positive uses the default)")
}

// newResolver returns the DoH resolver selected by the flags.
func newResolver(cfg *config.Config, endpoint string, wire bool, timeout time.Duration) doh.Resolver {
	if wire {
		return doh.NewWireResolver(doh.WithEndpoint(endpoint), doh.WithTimeout(timeout))
	}
	if endpoint == "" {
		endpoint = cfg.Settings.DoHURL
	}
	return doh.NewJSONResolver(doh.WithEndpoint(endpoint), doh.WithTimeout(timeout))
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cmd.doctor")
	defer span.End()

	span.SetAttributes(
		attribute.String("tutor.root", rootDir),
		attribute.Bool("strict", doctorStrict),
		attribute.Bool("verify_routes", doctorVerifyRoutes),
	)

	ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
	defer cleanup()

	cfg, err := loadConfig(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	registry, err := newDNSRegistry(ctx, cfg)
	if err != nil {
		span.RecordError(err)
		return err
	}
	provider, err := registry.Get(ctx, doctorProvider)
	if err != nil {
		span.RecordError(err)
		return err
	}

	opts := doctor.Options{
		Resolver:     newResolver(cfg, doctorDoHURL, doctorDoHWire, doctorTimeout),
		Provider:     provider,
		Printer:      newPrinter(cmd),
		VerifyRoutes: doctorVerifyRoutes,
	}
	if doctorVerifyRoutes && cfg.Settings.TunnelUUID != "" {
		target, err := cloudflare.TunnelTarget(cfg.Settings.TunnelUUID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		opts.TunnelTarget = target
	}

	d, err := doctor.New(cfg, opts)
	if err != nil {
		span.RecordError(err)
		return err
	}

	slog.Info("Running doctor", "root", rootDir, "lms_host", cfg.LMSHost)
	result := d.Run(ctx)

	if doctorMetricsTextfile != "" {
		if err := doctor.WriteMetrics(doctorMetricsTextfile, result, time.Now()); err != nil {
			span.RecordError(err)
			return err
		}
		slog.Info("Wrote doctor metrics", "path", doctorMetricsTextfile)
	}

	span.SetAttributes(
		attribute.Int("fatal_errors", result.FatalErrors),
		attribute.Int("warnings", result.Warnings),
	)

	if doctorStrict {
		if err := result.Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("doctor --strict: %w", err)
		}
	}
	return nil
}
