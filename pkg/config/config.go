// Package config loads the Tutor configuration the plugin reads.
package config

import (
	"errors"
	"fmt"
	"maps"
)

const (
	// KeyLMSHost is the primary public host.
	KeyLMSHost = "LMS_HOST"

	// KeyPublicHosts lists the config keys exposed through the tunnel.
	KeyPublicHosts = "CLOUDFLARED_PUBLIC_HOSTS"

	// KeyTunnelUUID stores the tunnel identifier.
	KeyTunnelUUID = "CLOUDFLARED_TUNNEL_UUID"
)

// ErrMissingKey is returned by Load when a required setting is absent.
var ErrMissingKey = errors.New("required configuration key is missing")

// Host is a public host setting that has a value.
type Host struct {
	Key   string
	Value string
}

// Config is the merged, read-only configuration of one Tutor project.
type Config struct {
	// Root is the Tutor project root the config was loaded from.
	Root string

	// LMSHost is the primary public host (LMS_HOST).
	LMSHost string

	// Settings are the plugin's own keys.
	Settings Settings

	values map[string]any
}

// Get returns key as a string. Absent, null and empty values report false.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	if !ok || v == nil {
		return "", false
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "", false
	}
	return s, true
}

// Values returns a copy of every merged key, for template rendering.
func (c *Config) Values() map[string]any {
	return maps.Clone(c.values)
}

// Hosts splits CLOUDFLARED_PUBLIC_HOSTS into keys that have a value, in list
// order, and keys that are not set.
func (c *Config) Hosts() (defined []Host, undefined []string) {
	for _, key := range c.Settings.PublicHosts {
		if v, ok := c.Get(key); ok {
			defined = append(defined, Host{Key: key, Value: v})
		} else {
			undefined = append(undefined, key)
		}
	}
	return defined, undefined
}

// HostMap returns the defined public hosts keyed by config key.
func (c *Config) HostMap() map[string]string {
	defined, _ := c.Hosts()
	out := make(map[string]string, len(defined))
	for _, h := range defined {
		out[h.Key] = h.Value
	}
	return out
}

// New builds a Config from already merged values. It performs the same
// required-key validation as Load.
func New(root string, values map[string]any) (*Config, error) {
	cfg := &Config{Root: root, values: maps.Clone(values)}
	if cfg.values == nil {
		cfg.values = map[string]any{}
	}

	if err := decodeSettings(cfg.values, &cfg.Settings); err != nil {
		return nil, err
	}

	host, ok := cfg.Get(KeyLMSHost)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, KeyLMSHost)
	}
	cfg.LMSHost = host

	if len(cfg.Settings.PublicHosts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, KeyPublicHosts)
	}

	return cfg, nil
}
