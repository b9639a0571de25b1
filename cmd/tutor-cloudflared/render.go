package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/plugin"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/templates"
)

var (
	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the plugin templates into the Tutor environment",
		Long: `Render the cloudflared Dockerfile and ingress configuration into
$(tutor config printroot)/env/plugins/cloudflared.`,
		Args: cobra.NoArgs,
		RunE: runRender,
	}

	patchesCmd = &cobra.Command{
		Use:   "patches",
		Short: "Inspect the docker-compose patches of the plugin",
	}

	patchesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List patch names",
		Args:  cobra.NoArgs,
		RunE:  runPatchesList,
	}

	patchesShowCmd = &cobra.Command{
		Use:   "show NAME",
		Short: "Print a rendered patch",
		Args:  cobra.ExactArgs(1),
		RunE:  runPatchesShow,
	}

	initTaskCmd = &cobra.Command{
		Use:   "init-task",
		Short: "Print the rendered init task",
		Args:  cobra.NoArgs,
		RunE:  runInitTask,
	}
)

func init() {
	patchesCmd.AddCommand(patchesListCmd)
	patchesCmd.AddCommand(patchesShowCmd)
	renderCmd.AddCommand(initTaskCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cmd.render")
	defer span.End()

	ctx, cleanup := status.StartHandler(ctx, statusLogHandler(slog.Default()))
	defer cleanup()

	cfg, err := loadConfig(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	out := newPrinter(cmd)
	if cfg.Settings.TunnelUUID == "" {
		out.Alert("CLOUDFLARED_TUNNEL_UUID is not set: run set-tunnel-uuid, then render again.")
	}

	written, err := templates.NewRenderer(appFs, cfg).Render(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("file_count", len(written)))
	for _, path := range written {
		rel, err := filepath.Rel(cfg.Root, path)
		if err != nil {
			rel = path
		}
		out.Info("Rendered %s", rel)
	}
	return nil
}

func runPatchesList(cmd *cobra.Command, args []string) error {
	catalog, err := plugin.NewCatalog()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(catalog.Patches))
	for _, p := range catalog.Patches {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runPatchesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cmd.patches.show")
	defer span.End()

	span.SetAttributes(attribute.String("patch", args[0]))

	catalog, err := plugin.NewCatalog()
	if err != nil {
		span.RecordError(err)
		return err
	}
	raw, ok := catalog.Patch(args[0])
	if !ok {
		err := fmt.Errorf("unknown patch %q: see 'patches list'", args[0])
		span.RecordError(err)
		return err
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	rendered, err := templates.NewRenderer(appFs, cfg).RenderString(args[0], raw)
	if err != nil {
		span.RecordError(err)
		return err
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func runInitTask(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "cmd.render.init-task")
	defer span.End()

	cfg, err := loadConfig(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	script, err := templates.NewRenderer(appFs, cfg).InitTask(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), script)
	return nil
}
