// Package images builds, pulls and pushes the plugin's Docker images.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/execx"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

// Build describes an image built from a directory of the rendered environment.
type Build struct {
	Name string

	// Path is the build context relative to <root>/env.
	Path []string

	// Tag is a template rendered against the configuration.
	Tag string

	BuildArgs []string
}

// Image is an image to pull or push; Tag is a template.
type Image struct {
	Name string
	Tag  string
}

// TagRenderer renders tag templates such as "{{ .CLOUDFLARED_DOCKER_IMAGE }}".
type TagRenderer interface {
	RenderString(name, content string) (string, error)
}

// MaxParallelTransfers bounds concurrent docker pull/push commands.
const MaxParallelTransfers = 3

// Manager runs docker for the registered images.
type Manager struct {
	runner    execx.Runner
	tags      TagRenderer
	envRoot   string
	builds    []Build
	pulls     []Image
	pushes    []Image
	docker    string
	extraArgs []string
}

// Option configures a Manager
type Option func(*Manager)

// WithDockerArgs adds arguments to every docker build (e.g. --no-cache).
func WithDockerArgs(args ...string) Option {
	return func(m *Manager) { m.extraArgs = append(m.extraArgs, args...) }
}

// NewManager creates a manager for the given image lists. envRoot is <root>/env.
func NewManager(runner execx.Runner, tags TagRenderer, envRoot string, builds []Build, pulls, pushes []Image, opts ...Option) *Manager {
	m := &Manager{
		runner:  runner,
		tags:    tags,
		envRoot: envRoot,
		builds:  builds,
		pulls:   pulls,
		pushes:  pushes,
		docker:  "docker",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Names returns the names of every build, pull and push image, without duplicates.
func (m *Manager) Names() []string {
	seen := map[string]bool{}
	var names []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, b := range m.builds {
		add(b.Name)
	}
	for _, i := range m.pulls {
		add(i.Name)
	}
	for _, i := range m.pushes {
		add(i.Name)
	}
	return names
}

// selected reports whether name is requested; no names selects everything.
func selected(names []string, name string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == name || n == "all" {
			return true
		}
	}
	return false
}

func (m *Manager) checkKnown(names []string) error {
	known := map[string]bool{"all": true}
	for _, n := range m.Names() {
		known[n] = true
	}
	var unknown []string
	for _, n := range names {
		if !known[n] {
			unknown = append(unknown, n)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown image(s): %s (available: %s)", strings.Join(unknown, ", "), strings.Join(m.Names(), ", "))
	}
	return nil
}

func (m *Manager) tag(name, tmpl string) (string, error) {
	tag, err := m.tags.RenderString(name+"-tag", tmpl)
	if err != nil {
		return "", err
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", fmt.Errorf("image %s has an empty tag", name)
	}
	return tag, nil
}

// Build builds the named images, or every build image when names is empty.
func (m *Manager) Build(ctx context.Context, names ...string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "images.Build")
	defer span.End()

	span.SetAttributes(attribute.StringSlice("images", names))

	if err := m.checkKnown(names); err != nil {
		span.RecordError(err)
		return err
	}

	for _, b := range m.builds {
		if !selected(names, b.Name) {
			continue
		}
		tag, err := m.tag(b.Name, b.Tag)
		if err != nil {
			span.RecordError(err)
			return err
		}

		args := []string{"build", "-t", tag}
		for _, arg := range b.BuildArgs {
			args = append(args, "--build-arg", arg)
		}
		args = append(args, m.extraArgs...)
		args = append(args, filepath.Join(append([]string{m.envRoot}, b.Path...)...))

		status.Send(ctx, status.NewUpdate(status.LevelProgress, fmt.Sprintf("Building image %s", tag)).
			WithResource("image").
			WithAction("build"))
		slog.Info("Building image", "name", b.Name, "tag", tag)

		if err := m.runner.Run(ctx, m.docker, args...); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to build image %s: %w", b.Name, err)
		}
	}
	return nil
}

// Pull pulls the named images.
func (m *Manager) Pull(ctx context.Context, names ...string) error {
	return m.transfer(ctx, "pull", m.pulls, names)
}

// Push pushes the named images.
func (m *Manager) Push(ctx context.Context, names ...string) error {
	return m.transfer(ctx, "push", m.pushes, names)
}

func (m *Manager) transfer(ctx context.Context, action string, images []Image, names []string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "images."+action)
	defer span.End()

	span.SetAttributes(attribute.StringSlice("images", names))

	if err := m.checkKnown(names); err != nil {
		span.RecordError(err)
		return err
	}

	type job struct{ name, tag string }
	var jobs []job
	for _, img := range images {
		if !selected(names, img.Name) {
			continue
		}
		tag, err := m.tag(img.Name, img.Tag)
		if err != nil {
			span.RecordError(err)
			return err
		}
		jobs = append(jobs, job{img.Name, tag})
	}

	if len(jobs) == 0 {
		slog.Info("No images to transfer", "action", action)
		status.Infof(ctx, "No images to %s", action)
		return nil
	}

	// Transfer images in parallel using errgroup
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelTransfers)

	for _, j := range jobs {
		j := j // per-iteration copy (go directive < 1.22)
		g.Go(func() error {
			status.Send(gctx, status.NewUpdate(status.LevelProgress, fmt.Sprintf("%s image %s", action, j.tag)).
				WithResource("image").
				WithAction(action))
			slog.Info("Transferring image", "action", action, "name", j.name, "tag", j.tag)

			if err := m.runner.Run(gctx, m.docker, action, j.tag); err != nil {
				return fmt.Errorf("failed to %s image %s: %w", action, j.name, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.Int("image_count", len(jobs)),
		attribute.Bool("parallel_transfer", len(jobs) > 1),
	)
	return nil
}
