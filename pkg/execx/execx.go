// Package execx runs the external binaries this tool drives (tutor,
// cloudflared, docker) behind a small interface so callers can be tested
// without them.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned when the binary is not on PATH
var ErrNotFound = errors.New("executable not found")

// Runner runs external commands.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)

	// Run runs the command with stdout and stderr attached to the runner's writers.
	Run(ctx context.Context, name string, args ...string) error

	// LookPath reports where name is found on PATH.
	LookPath(name string) (string, error)
}

// OSRunner runs commands with os/exec.
type OSRunner struct {
	Stdout io.Writer
	Stderr io.Writer

	// Env is appended to the current environment.
	Env []string
}

// NewOSRunner returns a runner writing to the process stdout and stderr.
func NewOSRunner() *OSRunner {
	return &OSRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// LookPath resolves name on PATH, wrapping ErrNotFound.
func (r *OSRunner) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return path, nil
}

func (r *OSRunner) command(ctx context.Context, name string, args []string) (*exec.Cmd, error) {
	path, err := r.LookPath(name)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, path, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd, nil
}

// Output runs the command and returns its stdout. On failure the error
// includes the command's stderr.
func (r *OSRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "execx.Output")
	defer span.End()

	span.SetAttributes(
		attribute.String("command", name),
		attribute.StringSlice("args", args),
	)

	cmd, err := r.command(ctx, name, args)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	slog.Debug("Running command", "command", name, "args", args)
	out, err := cmd.Output()
	if err != nil {
		err = commandError(name, args, err, stderr.String())
		span.RecordError(err)
		return out, err
	}
	return out, nil
}

// Run runs the command attached to the runner's writers.
func (r *OSRunner) Run(ctx context.Context, name string, args ...string) error {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "execx.Run")
	defer span.End()

	span.SetAttributes(
		attribute.String("command", name),
		attribute.StringSlice("args", args),
	)

	cmd, err := r.command(ctx, name, args)
	if err != nil {
		span.RecordError(err)
		return err
	}
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	slog.Debug("Running command", "command", name, "args", args)
	if err := cmd.Run(); err != nil {
		err = commandError(name, args, err, "")
		span.RecordError(err)
		return err
	}
	return nil
}

func commandError(name string, args []string, err error, stderr string) error {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%s failed: %w: %s", line, err, msg)
	}
	return fmt.Errorf("%s failed: %w", line, err)
}
