// Package tunnel queries cloudflared for tunnel metadata.
package tunnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/execx"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

const (
	// Binary is the cloudflared executable name
	Binary = "cloudflared"

	// containerCredentialsDir is where the cloudflared image looks for cert.pem
	containerCredentialsDir = "/home/nonroot/.cloudflared"
)

// Info is the subset of `cloudflared tunnel info -o json` this tool reads.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Client looks up tunnels by running cloudflared, either from PATH or, when it
// is not installed, through `docker run` of Image.
type Client struct {
	runner         execx.Runner
	image          string
	credentialsDir string
}

// NewClient creates a tunnel client. image is used when cloudflared is not on
// PATH; credentialsDir defaults to ~/.cloudflared.
func NewClient(runner execx.Runner, image, credentialsDir string) *Client {
	if credentialsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			credentialsDir = filepath.Join(home, ".cloudflared")
		}
	}
	return &Client{runner: runner, image: image, credentialsDir: credentialsDir}
}

// command returns the program and arguments that run cloudflared with args.
func (c *Client) command(args ...string) (string, []string, error) {
	if _, err := c.runner.LookPath(Binary); err == nil {
		return Binary, args, nil
	}
	if c.image == "" {
		return "", nil, fmt.Errorf("%s is not installed and no image is configured: %w", Binary, execx.ErrNotFound)
	}
	dockerArgs := []string{"run", "--rm"}
	if c.credentialsDir != "" {
		dockerArgs = append(dockerArgs, "-v", c.credentialsDir+":"+containerCredentialsDir)
	}
	dockerArgs = append(dockerArgs, c.image)
	return "docker", append(dockerArgs, args...), nil
}

// Info returns the metadata of the tunnel called name.
func (c *Client) Info(ctx context.Context, name string) (*Info, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "tunnel.Info")
	defer span.End()

	span.SetAttributes(attribute.String("tunnel.name", name))

	if strings.TrimSpace(name) == "" {
		err := errors.New("tunnel name is empty: set CLOUDFLARED_TUNNEL_NAME")
		span.RecordError(err)
		return nil, err
	}

	program, args, err := c.command("tunnel", "info", "-o", "json", name)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("tunnel.program", program))
	if program != Binary {
		status.Warningf(ctx, "%s is not on PATH, running it from %s", Binary, c.image)
	}
	status.Progressf(ctx, "Looking up tunnel %s", name)

	out, err := c.runner.Output(ctx, program, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get info for tunnel %q: %w", name, err)
	}

	info, err := parseInfo(out)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("tunnel %q: %w", name, err)
	}

	slog.Debug("Resolved tunnel", "name", name, "id", info.ID)
	status.Infof(ctx, "Tunnel %s has id %s", name, info.ID)
	return info, nil
}

// UUID returns the ID of the tunnel called name.
func (c *Client) UUID(ctx context.Context, name string) (string, error) {
	info, err := c.Info(ctx, name)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func parseInfo(out []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to decode cloudflared output: %w", err)
	}
	id, err := uuid.Parse(info.ID)
	if err != nil {
		return nil, fmt.Errorf("cloudflared returned an invalid tunnel id %q: %w", info.ID, err)
	}
	info.ID = id.String()
	return &info, nil
}
