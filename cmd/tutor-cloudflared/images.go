package main

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/images"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/plugin"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/templates"
)

var (
	imagesNoCache bool

	imagesCmd = &cobra.Command{
		Use:   "images",
		Short: "Build, pull and push the plugin's Docker images",
	}

	imagesBuildCmd = &cobra.Command{
		Use:   "build [NAME...]",
		Short: "Build images (all by default); run 'render' first",
		RunE: imagesAction("build", func(ctx context.Context, m *images.Manager, names []string) error {
			return m.Build(ctx, names...)
		}),
	}

	imagesPullCmd = &cobra.Command{
		Use:   "pull [NAME...]",
		Short: "Pull images",
		RunE: imagesAction("pull", func(ctx context.Context, m *images.Manager, names []string) error {
			return m.Pull(ctx, names...)
		}),
	}

	imagesPushCmd = &cobra.Command{
		Use:   "push [NAME...]",
		Short: "Push images",
		RunE: imagesAction("push", func(ctx context.Context, m *images.Manager, names []string) error {
			return m.Push(ctx, names...)
		}),
	}
)

func init() {
	imagesBuildCmd.Flags().BoolVar(&imagesNoCache, "no-cache", false, "Do not use the docker build cache")

	imagesCmd.AddCommand(imagesBuildCmd)
	imagesCmd.AddCommand(imagesPullCmd)
	imagesCmd.AddCommand(imagesPushCmd)
}

type imagesFunc func(ctx context.Context, m *images.Manager, names []string) error

func imagesAction(action string, fn imagesFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tracer := otel.Tracer("tutor-cloudflared")
		ctx, span := tracer.Start(ctx, "cmd.images."+action)
		defer span.End()

		span.SetAttributes(attribute.StringSlice("images", args))

		ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
		defer cleanup()

		cfg, err := loadConfig(ctx)
		if err != nil {
			span.RecordError(err)
			return err
		}

		catalog, err := plugin.NewCatalog()
		if err != nil {
			span.RecordError(err)
			return err
		}

		var opts []images.Option
		if imagesNoCache {
			opts = append(opts, images.WithDockerArgs("--no-cache"))
		}
		manager := images.NewManager(runner, templates.NewRenderer(appFs, cfg),
			filepath.Join(cfg.Root, templates.EnvDir),
			catalog.Builds, catalog.Pulls, catalog.Pushes, opts...)

		if err := fn(ctx, manager, args); err != nil {
			span.RecordError(err)
			return err
		}
		return nil
	}
}
