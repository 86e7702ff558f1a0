package terminal

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTmux(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed in this environment")
	}
}

func TestSessionExists_FalseForUnknownSession(t *testing.T) {
	requireTmux(t)
	a := NewTmuxAdapter()

	exists, err := a.SessionExists("rdv-test-session-that-does-not-exist")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateCaptureKillSession_RoundTrip(t *testing.T) {
	requireTmux(t)
	a := NewTmuxAdapter()
	name := "rdv-test-round-trip"

	_ = a.KillSession(name)

	require.NoError(t, a.CreateSession(CreateOptions{Name: name}))
	t.Cleanup(func() { _ = a.KillSession(name) })

	exists, err := a.SessionExists(name)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = a.CapturePane(name, 10)
	require.NoError(t, err)

	require.NoError(t, a.SendKeys(name, "echo hi", true))

	require.NoError(t, a.KillSession(name))
	exists, err = a.SessionExists(name)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestKillSession_NotFoundErrors(t *testing.T) {
	requireTmux(t)
	a := NewTmuxAdapter()

	err := a.KillSession("rdv-test-session-that-does-not-exist")
	require.Error(t, err)
}
