package tunnel

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/execx"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

const tunnelID = "6ff42ae2-765d-4adf-8112-31c55c1551ef"

// mockRunner records calls and returns canned output
type mockRunner struct {
	onPath map[string]bool
	out    []byte
	err    error

	name string
	args []string
}

func (m *mockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.name, m.args = name, args
	return m.out, m.err
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.name, m.args = name, args
	return m.err
}

func (m *mockRunner) LookPath(name string) (string, error) {
	if m.onPath[name] {
		return "/usr/bin/" + name, nil
	}
	return "", execx.ErrNotFound
}

func TestClient_UUID_LocalBinary(t *testing.T) {
	runner := &mockRunner{
		onPath: map[string]bool{"cloudflared": true},
		out:    []byte(`{"id":"` + tunnelID + `","name":"openedx","createdAt":"2024-01-01T00:00:00Z","conns":[]}`),
	}
	client := NewClient(runner, "cloudflare/cloudflared:latest", "/home/me/.cloudflared")

	got, err := client.UUID(context.Background(), "openedx")
	if err != nil {
		t.Fatalf("UUID() error = %v", err)
	}
	if got != tunnelID {
		t.Errorf("UUID() = %q, want %q", got, tunnelID)
	}
	if runner.name != "cloudflared" {
		t.Errorf("ran %q, want cloudflared", runner.name)
	}
	if want := []string{"tunnel", "info", "-o", "json", "openedx"}; !reflect.DeepEqual(runner.args, want) {
		t.Errorf("args = %v, want %v", runner.args, want)
	}
}

func TestClient_UUID_Docker(t *testing.T) {
	runner := &mockRunner{out: []byte(`{"id":"` + strings.ToUpper(tunnelID) + `"}`)}
	client := NewClient(runner, "cloudflare/cloudflared:latest", "/home/me/.cloudflared")

	got, err := client.UUID(context.Background(), "openedx")
	if err != nil {
		t.Fatalf("UUID() error = %v", err)
	}
	if got != tunnelID {
		t.Errorf("UUID() = %q, want normalized %q", got, tunnelID)
	}

	want := []string{
		"run", "--rm", "-v", "/home/me/.cloudflared:/home/nonroot/.cloudflared",
		"cloudflare/cloudflared:latest", "tunnel", "info", "-o", "json", "openedx",
	}
	if runner.name != "docker" || !reflect.DeepEqual(runner.args, want) {
		t.Errorf("ran %s %v, want docker %v", runner.name, runner.args, want)
	}
}

func TestClient_UUID_Errors(t *testing.T) {
	tests := []struct {
		name        string
		runner      *mockRunner
		image       string
		tunnel      string
		errContains string
	}{
		{
			name:        "empty tunnel name",
			runner:      &mockRunner{onPath: map[string]bool{"cloudflared": true}},
			tunnel:      " ",
			errContains: "CLOUDFLARED_TUNNEL_NAME",
		},
		{
			name:        "no binary and no image",
			runner:      &mockRunner{},
			tunnel:      "openedx",
			errContains: "not installed",
		},
		{
			name:        "command fails",
			runner:      &mockRunner{onPath: map[string]bool{"cloudflared": true}, err: errors.New("exit status 1")},
			tunnel:      "openedx",
			errContains: `failed to get info for tunnel "openedx"`,
		},
		{
			name:        "not json",
			runner:      &mockRunner{onPath: map[string]bool{"cloudflared": true}, out: []byte("Tunnel openedx not found")},
			tunnel:      "openedx",
			errContains: "failed to decode",
		},
		{
			name:        "invalid id",
			runner:      &mockRunner{onPath: map[string]bool{"cloudflared": true}, out: []byte(`{"id":"not-a-uuid"}`)},
			tunnel:      "openedx",
			errContains: "invalid tunnel id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.runner, tt.image, "/tmp/creds")
			_, err := client.UUID(context.Background(), tt.tunnel)
			if err == nil {
				t.Fatal("UUID() should fail")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want substring %q", err, tt.errContains)
			}
		})
	}
}

// collectUpdates runs fn with a status channel and returns what it sent
func collectUpdates(fn func(ctx context.Context)) []status.Update {
	var updates []status.Update
	ctx, cleanup := status.StartHandler(context.Background(), func(u status.Update) {
		updates = append(updates, u)
	})
	fn(ctx)
	cleanup()
	return updates
}

func TestClient_InfoReportsStatus(t *testing.T) {
	tests := []struct {
		name       string
		onPath     map[string]bool
		wantLevels []status.Level
	}{
		{
			name:       "local binary",
			onPath:     map[string]bool{"cloudflared": true},
			wantLevels: []status.Level{status.LevelProgress, status.LevelInfo},
		},
		{
			name:       "docker fallback",
			wantLevels: []status.Level{status.LevelWarning, status.LevelProgress, status.LevelInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{onPath: tt.onPath, out: []byte(`{"id":"` + tunnelID + `"}`)}
			client := NewClient(runner, "cloudflare/cloudflared:latest", "/home/me/.cloudflared")

			updates := collectUpdates(func(ctx context.Context) {
				if _, err := client.Info(ctx, "openedx"); err != nil {
					t.Errorf("Info() error = %v", err)
				}
			})

			var levels []status.Level
			for _, u := range updates {
				levels = append(levels, u.Level)
			}
			if !reflect.DeepEqual(levels, tt.wantLevels) {
				t.Errorf("levels = %v, want %v", levels, tt.wantLevels)
			}
			if last := updates[len(updates)-1]; !strings.Contains(last.Message, tunnelID) {
				t.Errorf("last update = %q, want the tunnel id", last.Message)
			}
		})
	}
}
