package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// FileName is the Tutor config file inside the project root.
	FileName = "config.yml"

	// EnvPrefix marks environment variables that override config keys.
	EnvPrefix = "TUTOR_"

	maxReferenceDepth = 10
)

var referencePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// LoadOption configures Load.
type LoadOption func(*loadOptions)

type loadOptions struct {
	defaults  []Setting
	lookupEnv func(string) (string, bool)
}

// WithDefaults replaces the default settings merged under config.yml.
func WithDefaults(defaults []Setting) LoadOption {
	return func(o *loadOptions) { o.defaults = defaults }
}

// WithLookupEnv replaces os.LookupEnv for TUTOR_* overrides.
func WithLookupEnv(fn func(string) (string, bool)) LoadOption {
	return func(o *loadOptions) { o.lookupEnv = fn }
}

// Load merges, in increasing precedence, the plugin defaults, <root>/config.yml
// and TUTOR_<KEY> environment variables, resolves {{ KEY }} references and
// validates required keys. A missing config.yml is not an error; a missing
// LMS_HOST is.
func Load(ctx context.Context, fsys afero.Fs, root string, opts ...LoadOption) (*Config, error) {
	tracer := otel.Tracer("tutor-cloudflared")
	_, span := tracer.Start(ctx, "config.Load")
	defer span.End()

	o := &loadOptions{
		defaults:  Defaults(),
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(o)
	}

	path := filepath.Join(root, FileName)
	span.SetAttributes(attribute.String("config.file", path))

	values := make(map[string]any, len(o.defaults))
	for _, s := range o.defaults {
		values[s.Name] = s.Default
	}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if exists {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		var fileValues map[string]any
		if err := yaml.Unmarshal(data, &fileValues); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}

	if err := applyEnv(values, o.lookupEnv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	resolveReferences(values)

	cfg, err := New(root, values)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("config.lms_host", cfg.LMSHost),
		attribute.Int("config.public_hosts", len(cfg.Settings.PublicHosts)),
	)
	return cfg, nil
}

// applyEnv overrides known keys, and the keys named by CLOUDFLARED_PUBLIC_HOSTS,
// with TUTOR_<KEY>. Values are parsed as YAML so lists and booleans survive.
func applyEnv(values map[string]any, lookupEnv func(string) (string, bool)) error {
	keys := make(map[string]struct{}, len(values))
	for k := range values {
		keys[k] = struct{}{}
	}
	keys[KeyLMSHost] = struct{}{}
	for _, k := range stringList(values[KeyPublicHosts]) {
		keys[k] = struct{}{}
	}

	for k := range keys {
		raw, ok := lookupEnv(EnvPrefix + k)
		if !ok {
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			return fmt.Errorf("failed to parse %s%s: %w", EnvPrefix, k, err)
		}
		values[k] = v
	}
	return nil
}

// resolveReferences expands "{{ KEY }}" in string values, the way Tutor
// renders e.g. PREVIEW_LMS_HOST: "preview.{{ LMS_HOST }}".
func resolveReferences(values map[string]any) {
	for depth := 0; depth < maxReferenceDepth; depth++ {
		changed := false
		for k, v := range values {
			switch val := v.(type) {
			case string:
				if out := expand(val, values); out != val {
					values[k] = out
					changed = true
				}
			case []any:
				for i, item := range val {
					if s, ok := item.(string); ok {
						if out := expand(s, values); out != s {
							val[i] = out
							changed = true
						}
					}
				}
			}
		}
		if !changed {
			return
		}
	}
}

func expand(s string, values map[string]any) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return referencePattern.ReplaceAllStringFunc(s, func(m string) string {
		key := referencePattern.FindStringSubmatch(m)[1]
		v, ok := values[key]
		if !ok || v == nil {
			return m
		}
		return fmt.Sprint(v)
	})
}

func stringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// decodeSettings converts the merged map into Settings by re-marshaling, so
// YAML-typed values (e.g. []any) land in the typed fields.
func decodeSettings(values map[string]any, target *Settings) error {
	subset := make(map[string]any)
	for _, s := range Defaults() {
		if v, ok := values[s.Name]; ok && v != nil {
			subset[s.Name] = v
		}
	}

	data, err := yaml.Marshal(subset)
	if err != nil {
		return fmt.Errorf("failed to marshal plugin settings: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to unmarshal plugin settings: %w", err)
	}
	return nil
}

// DefaultRoot returns $TUTOR_ROOT or the per-user Tutor data directory.
func DefaultRoot() string {
	if root := os.Getenv("TUTOR_ROOT"); root != "" {
		return root
	}
	return filepath.Join(userDataDir(), "tutor")
}

func userDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
		return filepath.Join(home, "AppData", "Local")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir
		}
		return filepath.Join(home, ".local", "share")
	}
}
