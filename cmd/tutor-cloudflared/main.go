package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/console"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider/cloudflare"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/execx"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/telemetry"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/tutor"
)

var (
	// Tutor project root (--root)
	rootDir string

	verbose bool

	// Filesystem used for config and templates; tests swap in a memory FS.
	appFs = afero.NewOsFs()

	// Runner for tutor, cloudflared and docker
	runner execx.Runner = execx.NewOSRunner()

	rootCmd = &cobra.Command{
		Use:   "tutor-cloudflared",
		Short: "Expose an Open edX platform deployed with Tutor through a Cloudflare tunnel",
		Long: `tutor-cloudflared configures a cloudflared sidecar for a Tutor project.

It renders the tunnel configuration and docker-compose patches, builds the
cloudflared image, looks up and stores the tunnel UUID, routes public hosts
to the tunnel and checks that the DNS setup is ready before deployment.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}))
			slog.SetDefault(logger)
		},
	}
)

func init() {
	// Optional .env for CLOUDFLARE_API_TOKEN and TUTOR_* overrides
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&rootDir, "root", config.DefaultRoot(), "Tutor project root (env: TUTOR_ROOT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(getTunnelUUIDCmd)
	rootCmd.AddCommand(setTunnelUUIDCmd)
	rootCmd.AddCommand(routeDNSCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(patchesCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(versionCmd)
}

// projectRoot returns --root or $TUTOR_ROOT when given, otherwise the root
// reported by tutor when it is installed, otherwise the per-user default.
func projectRoot(ctx context.Context) string {
	if rootCmd.PersistentFlags().Changed("root") || os.Getenv("TUTOR_ROOT") != "" {
		return rootDir
	}
	if _, err := runner.LookPath(tutor.Binary); err != nil {
		return rootDir
	}
	root, err := tutor.NewStore(runner, "").PrintRoot(ctx)
	if err != nil || root == "" {
		slog.Debug("Using the default Tutor root", "root", rootDir, "error", err)
		return rootDir
	}
	return root
}

// loadConfig loads the Tutor configuration of the project root
func loadConfig(ctx context.Context) (*config.Config, error) {
	rootDir = projectRoot(ctx)
	cfg, err := config.Load(ctx, appFs, rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load Tutor configuration from %s: %w", rootDir, err)
	}
	return cfg, nil
}

// newDNSRegistry registers every supported DNS provider
func newDNSRegistry(ctx context.Context, cfg *config.Config) (*dnsprovider.Registry, error) {
	registry := dnsprovider.NewRegistry()
	cf := cloudflare.NewProvider(cloudflare.ConfigFromEnv(cfg.Settings.NameserverSuffix))
	if err := registry.Register(ctx, cf); err != nil {
		return nil, err
	}
	return registry, nil
}

func newPrinter(cmd *cobra.Command) *console.Printer {
	return console.NewPrinter(cmd.OutOrStdout())
}

func main() {
	ctx := context.Background()

	_, shutdown, err := telemetry.Setup(ctx, telemetry.OptionsFromEnv())
	if err != nil {
		slog.Error("Failed to setup telemetry", "error", err)
		os.Exit(1)
	}

	err = rootCmd.ExecuteContext(ctx)

	if shutdownErr := shutdown(ctx); shutdownErr != nil {
		slog.Error("Failed to shutdown telemetry", "error", shutdownErr)
	}
	if err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
