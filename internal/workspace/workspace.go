// Package workspace loads the local workspace configuration consulted by
// strict-strategy site validation.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the workspace file name under the config directory
const DefaultFileName = "workspace.yml"

// Workspace holds the locally configured workspace settings
type Workspace struct {
	// Sites is the allowlist of known execution sites
	Sites []string `yaml:"sites"`
	// DefaultSite is the site used by tooling when none is given
	DefaultSite string `yaml:"default_site,omitempty"`
}

// DefaultPath returns the default location of the workspace file,
// ~/.config/workflow/workspace.yml
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "workflow", DefaultFileName)
	}
	return filepath.Join(home, ".config", "workflow", DefaultFileName)
}

// Load reads the workspace file at path. A missing file is not an error: an
// empty Workspace is returned, which makes strict-strategy validation reject
// every site.
func Load(path string) (*Workspace, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Workspace{}, nil
		}
		return nil, fmt.Errorf("error reading workspace file %s: %w", path, err)
	}

	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("error parsing workspace file %s: %w", path, err)
	}

	return &ws, nil
}

// HasSite reports whether site is in the configured allowlist
func (w *Workspace) HasSite(site string) bool {
	if w == nil {
		return false
	}
	for _, s := range w.Sites {
		if s == site {
			return true
		}
	}
	return false
}
