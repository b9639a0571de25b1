package config

import (
	"fmt"
	"reflect"
	"strings"
)

// PluginVersion is the release of this plugin; it also tags the cloudflared image.
const PluginVersion = "1.0.0"

// Settings holds the plugin's own CLOUDFLARED_* keys. Defaults come from the
// `default` tags and are registered with the host through plugin.Register.
type Settings struct {
	// Plugin release, used as the default image tag.
	Version string `yaml:"CLOUDFLARED_VERSION" default:"1.0.0"`

	// Name of the image built by `images build cloudflared`.
	DockerImage string `yaml:"CLOUDFLARED_DOCKER_IMAGE" default:"cloudflared"`

	// Upstream cloudflared image the Dockerfile builds from.
	BaseImage string `yaml:"CLOUDFLARED_BASE_IMAGE" default:"cloudflare/cloudflared:latest"`

	// Name of the tunnel created with `cloudflared tunnel create`.
	TunnelName string `yaml:"CLOUDFLARED_TUNNEL_NAME" default:"openedx"`

	// UUID of the tunnel; set it with `set-tunnel-uuid`.
	TunnelUUID string `yaml:"CLOUDFLARED_TUNNEL_UUID" default:""`

	// Config keys whose values are exposed through the tunnel.
	PublicHosts []string `yaml:"CLOUDFLARED_PUBLIC_HOSTS" default:"LMS_HOST,CMS_HOST,PREVIEW_LMS_HOST,MFE_HOST,ECOMMERCE_HOST,DISCOVERY_HOST,NOTES_HOST"`

	// Service every ingress rule forwards to.
	OriginService string `yaml:"CLOUDFLARED_ORIGIN_SERVICE" default:"http://caddy:80"`

	// Suffix every delegated nameserver must end with.
	NameserverSuffix string `yaml:"CLOUDFLARED_NS_SUFFIX" default:"ns.cloudflare.com"`

	// DNS-over-HTTPS endpoint used by doctor.
	DoHURL string `yaml:"CLOUDFLARED_DOH_URL" default:"https://dns.google/resolve"`
}

// Setting is a single key with its default value.
type Setting struct {
	Name    string
	Default any
}

// Defaults returns the plugin settings in declaration order.
func Defaults() []Setting {
	t := reflect.TypeOf(Settings{})
	settings := make([]Setting, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		settings = append(settings, Setting{Name: name, Default: parseDefault(f)})
	}
	return settings
}

func parseDefault(f reflect.StructField) any {
	raw := f.Tag.Get("default")
	switch f.Type.Kind() {
	case reflect.Slice:
		if raw == "" {
			return []string{}
		}
		return strings.Split(raw, ",")
	case reflect.String:
		return raw
	default:
		panic(fmt.Sprintf("config: unsupported settings field type %s for %s", f.Type, f.Name))
	}
}

// TutorPublicHosts lists Tutor's public host keys, the default of CLOUDFLARED_PUBLIC_HOSTS.
func TutorPublicHosts() []string {
	for _, s := range Defaults() {
		if s.Name == KeyPublicHosts {
			return s.Default.([]string)
		}
	}
	return nil
}
