// Package templates renders the plugin's embedded files (Dockerfile,
// cloudflared ingress config, init task and docker-compose patches) against a
// Tutor configuration.
package templates

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/domain"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

//go:embed all:files
var files embed.FS

//go:embed patches
var patches embed.FS

const (
	filesDir   = "files"
	patchesDir = "patches"

	// EnvDir is the rendered environment inside the Tutor root
	EnvDir = "env"

	// InitTaskPath is the init task template, relative to the template root
	InitTaskPath = "cloudflared/tasks/cloudflared/init"
)

// Target maps a template directory to its destination under <root>/env.
// Source "cloudflared/build" with Destination "plugins" renders into
// <root>/env/plugins/cloudflared/build.
type Target struct {
	Source      string
	Destination string
}

// Targets are the template directories rendered into the environment
var Targets = []Target{
	{Source: "cloudflared/build", Destination: "plugins"},
	{Source: "cloudflared/apps", Destination: "plugins"},
}

// Root returns the embedded template root.
func Root() fs.FS {
	sub, err := fs.Sub(files, filesDir)
	if err != nil {
		panic(err)
	}
	return sub
}

// PatchNames lists the embedded patches in sorted order.
func PatchNames() ([]string, error) {
	entries, err := fs.ReadDir(patches, patchesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read patches directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// RawPatch returns the unrendered content of a patch.
func RawPatch(name string) (string, error) {
	content, err := patches.ReadFile(path.Join(patchesDir, name))
	if err != nil {
		return "", fmt.Errorf("patch %q not found: %w", name, err)
	}
	return string(content), nil
}

// Renderer renders templates with the values of one Tutor project.
type Renderer struct {
	fs  afero.Fs
	cfg *config.Config
}

// NewRenderer creates a renderer writing through fsys.
func NewRenderer(fsys afero.Fs, cfg *config.Config) *Renderer {
	return &Renderer{fs: fsys, cfg: cfg}
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		// domains yields the public hosts that have a value, as Key/Value pairs.
		"domains": func() []config.Host {
			defined, _ := r.cfg.Hosts()
			return defined
		},
		"registrable": func(host string) (string, error) {
			return domain.RegistrableDomain(host)
		},
	}
}

// RenderString renders content, named name for error messages.
func (r *Renderer) RenderString(name, content string) (string, error) {
	tmpl, err := template.New(name).Funcs(r.funcs()).Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, r.cfg.Values()); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Patch renders a single patch.
func (r *Renderer) Patch(ctx context.Context, name string) (string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "templates.Patch")
	defer span.End()

	span.SetAttributes(attribute.String("patch", name))

	raw, err := RawPatch(name)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	out, err := r.RenderString(name, raw)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return out, nil
}

// InitTask renders the cloudflared init task script.
func (r *Renderer) InitTask(ctx context.Context) (string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "templates.InitTask")
	defer span.End()

	content, err := RawInitTask()
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	out, err := r.RenderString(InitTaskPath, content)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return out, nil
}

// Render renders every target into <root>/env and returns the written paths.
func (r *Renderer) Render(ctx context.Context) ([]string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "templates.Render")
	defer span.End()

	var written []string
	for _, target := range Targets {
		paths, err := r.renderTarget(ctx, target)
		if err != nil {
			span.RecordError(err)
			return written, err
		}
		written = append(written, paths...)
	}

	span.SetAttributes(attribute.Int("file_count", len(written)))
	return written, nil
}

func (r *Renderer) renderTarget(ctx context.Context, target Target) ([]string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "templates.renderTarget")
	defer span.End()

	span.SetAttributes(
		attribute.String("source", target.Source),
		attribute.String("destination", target.Destination),
	)

	root := Root()
	destRoot := filepath.Join(r.cfg.Root, EnvDir, target.Destination)

	var written []string
	err := fs.WalkDir(root, target.Source, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Hidden and underscore-prefixed entries are partials or editor files.
		if p != target.Source && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_")) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		destPath := filepath.Join(destRoot, filepath.FromSlash(p))
		if d.IsDir() {
			return r.fs.MkdirAll(destPath, 0755)
		}

		content, err := fs.ReadFile(root, p)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", p, err)
		}
		rendered, err := r.RenderString(p, string(content))
		if err != nil {
			return err
		}

		if err := r.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", destPath, err)
		}
		if err := afero.WriteFile(r.fs, destPath, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		written = append(written, destPath)
		status.Progressf(ctx, "Rendered %s", destPath)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return written, fmt.Errorf("failed to render %s: %w", target.Source, err)
	}

	return written, nil
}

// RawInitTask returns the unrendered init task script.
func RawInitTask() (string, error) {
	content, err := fs.ReadFile(Root(), InitTaskPath)
	if err != nil {
		return "", fmt.Errorf("init task template not found: %w", err)
	}
	return string(content), nil
}
