// Package tutor drives the tutor CLI for the operations this tool cannot do
// on its own, such as persisting configuration.
package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/execx"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

// Binary is the tutor executable name
const Binary = "tutor"

// Store reads and writes Tutor configuration through the tutor CLI.
type Store struct {
	runner execx.Runner
	root   string
}

// NewStore creates a store. When root is non-empty it is passed as --root.
func NewStore(runner execx.Runner, root string) *Store {
	return &Store{runner: runner, root: root}
}

func (s *Store) args(args ...string) []string {
	if s.root == "" {
		return args
	}
	return append([]string{"--root", s.root}, args...)
}

// Set persists KEY=VALUE with `tutor config save --set`.
func (s *Store) Set(ctx context.Context, key, value string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "tutor.Set")
	defer span.End()

	span.SetAttributes(attribute.String("config.key", key))

	if key == "" {
		err := fmt.Errorf("config key is empty")
		span.RecordError(err)
		return err
	}

	if err := s.runner.Run(ctx, Binary, s.args("config", "save", "--set", key+"="+value)...); err != nil {
		span.RecordError(err)
		status.Errorf(ctx, "Failed to save %s", key)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	slog.Info("Saved Tutor setting", "key", key)
	status.Successf(ctx, "Saved %s", key)
	return nil
}

// PrintRoot returns the project root reported by `tutor config printroot`.
func (s *Store) PrintRoot(ctx context.Context) (string, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "tutor.PrintRoot")
	defer span.End()

	out, err := s.runner.Output(ctx, Binary, s.args("config", "printroot")...)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to get the Tutor root: %w", err)
	}

	root := strings.TrimSpace(string(out))
	span.SetAttributes(attribute.String("tutor.root", root))
	return root, nil
}
