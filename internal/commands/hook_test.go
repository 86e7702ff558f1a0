package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHookCmd_ListRequiresPath(t *testing.T) {
	cmd := NewHookCmd()
	cmd.SetArgs([]string{"list"})
	err := cmd.Execute()
	require.Error(t, err)
}

func TestNewHookListCmd_MissingManifestReturnsEmptyList(t *testing.T) {
	dir := t.TempDir()

	cmd := newHookListCmd()
	require.NoError(t, cmd.Flags().Set("path", dir))
	require.NoError(t, cmd.RunE(cmd, nil))
}

func TestNewHookListCmd_ReadsManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".remote-dev"), 0o755))
	manifest := `
[[hook]]
name = "lint-on-save"
event = "PostToolUse"
script = "scripts/lint.sh"
enabled = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".remote-dev", "hooks.toml"), []byte(manifest), 0o644))

	cmd := newHookListCmd()
	require.NoError(t, cmd.Flags().Set("path", dir))
	require.NoError(t, cmd.RunE(cmd, nil))
}
