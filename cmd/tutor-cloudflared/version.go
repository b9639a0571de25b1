package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider/cloudflare"
)

// Set with -ldflags "-X main.commit=..."
var commit = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := otel.Tracer("tutor-cloudflared").Start(cmd.Context(), "cmd.version")
		defer span.End()

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "tutor-cloudflared %s (commit %s)\n", config.PluginVersion, commit)
		_, _ = fmt.Fprintf(out, "DNS providers: %s\n", cloudflare.ProviderName)
		return nil
	},
}
