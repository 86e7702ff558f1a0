// Package hooks reads the on-disk manifest describing which hook scripts a
// folder has installed. Installation itself is out of this platform's
// scope (spec.md treats it as external tooling); this package only reports
// what is already there, for the diagnostic `/api/folders/{id}/hooks`
// endpoint.
package hooks

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Hook describes one installed hook script.
type Hook struct {
	Name        string `toml:"name"`
	Event       string `toml:"event"`
	Script      string `toml:"script"`
	Description string `toml:"description,omitempty"`
	Enabled     bool   `toml:"enabled"`
}

// Manifest is the parsed contents of a folder's hooks.toml.
type Manifest struct {
	Hooks []Hook `toml:"hook"`
}

// manifestFileName is the file a folder's hook installer writes.
const manifestFileName = "hooks.toml"

// Load reads `<projectPath>/.remote-dev/hooks.toml`. A missing manifest is
// not an error: it means the folder has no hooks installed, reported as an
// empty list rather than surfaced to the caller as a failure.
func Load(projectPath string) (*Manifest, error) {
	path := filepath.Join(projectPath, ".remote-dev", manifestFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Manifest{Hooks: []Hook{}}, nil
	}

	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, err
	}
	if m.Hooks == nil {
		m.Hooks = []Hook{}
	}
	return &m, nil
}
