package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/tunnel"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/tutor"
)

var (
	tunnelName           string
	tunnelCredentialsDir string

	getTunnelUUIDCmd = &cobra.Command{
		Use:   "get-tunnel-uuid",
		Short: "Print the UUID of the cloudflared tunnel",
		Long: `Print the UUID of the tunnel named CLOUDFLARED_TUNNEL_NAME, as reported by
"cloudflared tunnel info". cloudflared runs from PATH, or from
CLOUDFLARED_BASE_IMAGE through docker when it is not installed.`,
		Args: cobra.NoArgs,
		RunE: runGetTunnelUUID,
	}

	setTunnelUUIDCmd = &cobra.Command{
		Use:   "set-tunnel-uuid",
		Short: "Store the tunnel UUID as CLOUDFLARED_TUNNEL_UUID",
		Long: `Look up the tunnel UUID like get-tunnel-uuid and save it with
"tutor config save --set CLOUDFLARED_TUNNEL_UUID=<uuid>", so that the
cloudflared configuration can be rendered.`,
		Args: cobra.NoArgs,
		RunE: runSetTunnelUUID,
	}
)

func init() {
	for _, cmd := range []*cobra.Command{getTunnelUUIDCmd, setTunnelUUIDCmd} {
		cmd.Flags().StringVar(&tunnelName, "name", "", "Tunnel name (default CLOUDFLARED_TUNNEL_NAME)")
		cmd.Flags().StringVar(&tunnelCredentialsDir, "credentials-dir", "", "cloudflared credentials directory (default ~/.cloudflared)")
	}
}

func lookupTunnelUUID(cmd *cobra.Command) (*config.Config, string, error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, "", err
	}

	name := tunnelName
	if name == "" {
		name = cfg.Settings.TunnelName
	}

	newPrinter(cmd).Info("Retrieving the UUID of tunnel %s", name)
	client := tunnel.NewClient(runner, cfg.Settings.BaseImage, tunnelCredentialsDir)
	id, err := client.UUID(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return cfg, id, nil
}

func runGetTunnelUUID(cmd *cobra.Command, args []string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(cmd.Context(), "cmd.get-tunnel-uuid")
	defer span.End()

	ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
	defer cleanup()
	cmd.SetContext(ctx)

	_, id, err := lookupTunnelUUID(cmd)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.String("tunnel.id", id))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runSetTunnelUUID(cmd *cobra.Command, args []string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(cmd.Context(), "cmd.set-tunnel-uuid")
	defer span.End()

	ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
	defer cleanup()
	cmd.SetContext(ctx)

	cfg, id, err := lookupTunnelUUID(cmd)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.String("tunnel.id", id))

	if cfg.Settings.TunnelUUID == id {
		slog.Info("Tunnel UUID already saved", "uuid", id)
		newPrinter(cmd).Info("✅ %s is already %s", config.KeyTunnelUUID, id)
		return nil
	}

	store := tutor.NewStore(runner, rootDir)
	if err := store.Set(ctx, config.KeyTunnelUUID, id); err != nil {
		span.RecordError(err)
		return err
	}

	newPrinter(cmd).Info("✅ Saved %s=%s", config.KeyTunnelUUID, id)
	return nil
}
