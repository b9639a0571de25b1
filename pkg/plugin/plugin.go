// Package plugin declares everything the cloudflared plugin contributes to a
// Tutor project: settings, images, templates, patches and the init task.
//
// The host calls Register once with its own Hooks implementation. Catalog is
// an in-process implementation used by the standalone CLI.
package plugin

import (
	"fmt"
	"io/fs"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/images"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/templates"
)

// Name is the plugin name
const Name = "cloudflared"

// Hooks receives the plugin's registrations.
type Hooks interface {
	AddConfigDefaults(settings ...config.Setting)
	AddImageBuilds(builds ...images.Build)
	AddImagePulls(imgs ...images.Image)
	AddImagePushes(imgs ...images.Image)
	AddTemplateRoot(root fs.FS)
	AddTemplateTargets(targets ...templates.Target)
	AddPatch(name, content string)
	AddInitTask(service, script string)
}

// Register adds the plugin's contributions to h.
func Register(h Hooks) error {
	h.AddConfigDefaults(config.Defaults()...)

	h.AddImageBuilds(images.Build{
		Name: Name,
		Path: []string{"plugins", "cloudflared", "build", "cloudflared"},
		Tag:  "{{ .CLOUDFLARED_DOCKER_IMAGE }}",
	})
	// Nothing to pull or push by default.
	h.AddImagePulls()
	h.AddImagePushes()

	h.AddTemplateRoot(templates.Root())
	h.AddTemplateTargets(templates.Targets...)

	names, err := templates.PatchNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		content, err := templates.RawPatch(name)
		if err != nil {
			return err
		}
		h.AddPatch(name, content)
	}

	script, err := templates.RawInitTask()
	if err != nil {
		return fmt.Errorf("failed to load init task: %w", err)
	}
	h.AddInitTask(Name, script)

	return nil
}
