package plugin

import (
	"io/fs"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/images"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/templates"
)

// InitTask is a script run in service during `tutor local do init`.
type InitTask struct {
	Service string
	Script  string
}

// Patch is a named snippet inserted into a Tutor template.
type Patch struct {
	Name    string
	Content string
}

// Catalog records registrations in memory, in registration order.
type Catalog struct {
	Defaults      []config.Setting
	Builds        []images.Build
	Pulls         []images.Image
	Pushes        []images.Image
	TemplateRoots []fs.FS
	Targets       []templates.Target
	Patches       []Patch
	InitTasks     []InitTask
}

var _ Hooks = (*Catalog)(nil)

// NewCatalog returns a catalog with the plugin already registered.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{}
	if err := Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) AddConfigDefaults(settings ...config.Setting) {
	c.Defaults = append(c.Defaults, settings...)
}

func (c *Catalog) AddImageBuilds(builds ...images.Build) {
	c.Builds = append(c.Builds, builds...)
}

func (c *Catalog) AddImagePulls(imgs ...images.Image) {
	c.Pulls = append(c.Pulls, imgs...)
}

func (c *Catalog) AddImagePushes(imgs ...images.Image) {
	c.Pushes = append(c.Pushes, imgs...)
}

func (c *Catalog) AddTemplateRoot(root fs.FS) {
	c.TemplateRoots = append(c.TemplateRoots, root)
}

func (c *Catalog) AddTemplateTargets(targets ...templates.Target) {
	c.Targets = append(c.Targets, targets...)
}

func (c *Catalog) AddPatch(name, content string) {
	c.Patches = append(c.Patches, Patch{Name: name, Content: content})
}

func (c *Catalog) AddInitTask(service, script string) {
	c.InitTasks = append(c.InitTasks, InitTask{Service: service, Script: script})
}

// Patch returns the raw content of the named patch.
func (c *Catalog) Patch(name string) (string, bool) {
	for _, p := range c.Patches {
		if p.Name == name {
			return p.Content, true
		}
	}
	return "", false
}
