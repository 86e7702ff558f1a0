package hooks

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingManifestReturnsEmpty(t *testing.T) {
	m, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, m.Hooks)
}

func TestLoad_ParsesInstalledHooks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".remote-dev"), 0o755))
	manifest := `
[[hook]]
name = "pre-commit-lint"
event = "pre_commit"
script = "hooks/lint.sh"
enabled = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".remote-dev", manifestFileName), []byte(manifest), 0o644))

	m, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, m.Hooks, 1)
	assert.Equal(t, "pre-commit-lint", m.Hooks[0].Name)
	assert.True(t, m.Hooks[0].Enabled)
}
