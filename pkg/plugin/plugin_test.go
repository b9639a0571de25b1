package plugin

import (
	"io/fs"
	"reflect"
	"strings"
	"testing"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/templates"
)

func TestRegister(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	if !reflect.DeepEqual(c.Defaults, config.Defaults()) {
		t.Errorf("Defaults = %v, want config.Defaults()", c.Defaults)
	}

	if len(c.Builds) != 1 {
		t.Fatalf("Builds = %+v, want one image", c.Builds)
	}
	b := c.Builds[0]
	if b.Name != "cloudflared" || b.Tag != "{{ .CLOUDFLARED_DOCKER_IMAGE }}" {
		t.Errorf("build = %+v", b)
	}
	if want := []string{"plugins", "cloudflared", "build", "cloudflared"}; !reflect.DeepEqual(b.Path, want) {
		t.Errorf("build path = %v, want %v", b.Path, want)
	}
	if len(c.Pulls) != 0 || len(c.Pushes) != 0 {
		t.Errorf("pull/push lists should be empty: %v / %v", c.Pulls, c.Pushes)
	}

	want := []templates.Target{
		{Source: "cloudflared/build", Destination: "plugins"},
		{Source: "cloudflared/apps", Destination: "plugins"},
	}
	if !reflect.DeepEqual(c.Targets, want) {
		t.Errorf("Targets = %v, want %v", c.Targets, want)
	}
	if len(c.TemplateRoots) != 1 {
		t.Fatalf("TemplateRoots = %d, want 1", len(c.TemplateRoots))
	}
	if _, err := fs.Stat(c.TemplateRoots[0], "cloudflared/build/cloudflared/Dockerfile"); err != nil {
		t.Errorf("template root should contain the Dockerfile: %v", err)
	}

	names, err := templates.PatchNames()
	if err != nil {
		t.Fatalf("PatchNames() error = %v", err)
	}
	if len(c.Patches) != len(names) {
		t.Errorf("registered %d patches, want one per patch file (%d)", len(c.Patches), len(names))
	}
	content, ok := c.Patch("local-docker-compose-services")
	if !ok || !strings.Contains(content, "{{ .CLOUDFLARED_DOCKER_IMAGE }}") {
		t.Errorf("compose patch should be registered unrendered: %q", content)
	}
	if _, ok := c.Patch("missing"); ok {
		t.Error("Patch(missing) should report false")
	}

	if len(c.InitTasks) != 1 || c.InitTasks[0].Service != "cloudflared" {
		t.Fatalf("InitTasks = %+v", c.InitTasks)
	}
	if !strings.Contains(c.InitTasks[0].Script, "cloudflared tunnel info") {
		t.Errorf("init task script = %q", c.InitTasks[0].Script)
	}
}
