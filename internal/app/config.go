package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns the same `.remote-dev` home HomeDir resolves, so the
// CLI's config.yaml lives alongside the daemon's socket, PID file, and
// database rather than in a separate dotfile tree.
func ConfigDir() (string, error) {
	return homeDirUnchecked()
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# rdv configuration
# Run: rdv --help

# Optional: override the SQLite database location.
# Can also be set via RDV_DB_PATH or --db-path.
# db_path: ~/.remote-dev/rdv.db
`
