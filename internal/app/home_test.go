package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeDir_RespectsOverride(t *testing.T) {
	t.Setenv(RDVHomeEnv, filepath.Join(t.TempDir(), "custom-home"))

	dir, err := HomeDir()
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestSocketAndPIDPaths_ShareRunDir(t *testing.T) {
	t.Setenv(RDVHomeEnv, t.TempDir())

	sock, err := SocketPath()
	require.NoError(t, err)
	pid, err := PIDPath()
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(sock), filepath.Dir(pid))
	assert.Equal(t, "api.sock", filepath.Base(sock))
	assert.Equal(t, "server.pid", filepath.Base(pid))
}

func TestProjectKnowledgePath(t *testing.T) {
	got := ProjectKnowledgePath("/work/myproj")
	assert.Equal(t, "/work/myproj/.remote-dev/knowledge/project-knowledge.json", got)
}
