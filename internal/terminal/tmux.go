package terminal

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// TmuxAdapter shells out to the system tmux binary. Grounded on
// original_source's tmux/mod.rs: same subcommands, same has-session
// existence check before every other operation, same auto-respawn hook.
type TmuxAdapter struct{}

// NewTmuxAdapter builds a TmuxAdapter. No state: every call re-invokes tmux.
func NewTmuxAdapter() *TmuxAdapter {
	return &TmuxAdapter{}
}

func runTmux(args ...string) (string, error) {
	out, err := exec.Command("tmux", args...).CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("tmux %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

// SessionExists reports whether a tmux session by this name exists.
func (t *TmuxAdapter) SessionExists(name string) (bool, error) {
	cmd := exec.Command("tmux", "has-session", "-t", name)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, fmt.Errorf("tmux has-session: %w", err)
	}
	return true, nil
}

// ListSessions returns every tmux session currently running.
func (t *TmuxAdapter) ListSessions() ([]SessionInfo, error) {
	out, err := runTmux("list-sessions", "-F", "#{session_name}:#{session_created}:#{session_attached}")
	if err != nil {
		if strings.Contains(out, "no server running") || strings.Contains(out, "no sessions") {
			return nil, nil
		}
		return nil, err
	}

	var sessions []SessionInfo
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		createdUnix, _ := strconv.ParseInt(parts[1], 10, 64)
		sessions = append(sessions, SessionInfo{
			Name:     parts[0],
			Created:  time.Unix(createdUnix, 0),
			Attached: parts[2] == "1",
		})
	}
	return sessions, nil
}

// CreateSession starts a new detached tmux session.
func (t *TmuxAdapter) CreateSession(opts CreateOptions) error {
	exists, err := t.SessionExists(opts.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("session already exists: %s", opts.Name)
	}

	args := []string{"new-session", "-d", "-s", opts.Name}
	if opts.WorkingDirectory != "" {
		args = append(args, "-c", opts.WorkingDirectory)
	}
	if opts.Command != "" {
		args = append(args, opts.Command)
	}
	if _, err := runTmux(args...); err != nil {
		return err
	}

	for key, value := range opts.Env {
		// Best-effort: a failed set-environment call never aborts session
		// creation, matching the original's fire-and-forget behavior.
		if _, err := runTmux("set-environment", "-t", opts.Name, key, value); err != nil {
			slog.Debug("set-environment failed", "session", opts.Name, "key", key, "error", err)
		}
	}

	if opts.AutoRespawn {
		if _, err := runTmux("set-hook", "-t", opts.Name, "pane-died", "respawn-pane -k"); err != nil {
			slog.Debug("set-hook pane-died failed", "session", opts.Name, "error", err)
		}
	}

	slog.Debug("created tmux session", "session", opts.Name)
	return nil
}

// KillSession terminates a tmux session.
func (t *TmuxAdapter) KillSession(name string) error {
	exists, err := t.SessionExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session not found: %s", name)
	}
	_, err = runTmux("kill-session", "-t", name)
	return err
}

// CapturePane returns the session's scrollback buffer, optionally limited to
// the last n lines of history.
func (t *TmuxAdapter) CapturePane(name string, lines int) (string, error) {
	exists, err := t.SessionExists(name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("session not found: %s", name)
	}

	args := []string{"capture-pane", "-t", name, "-p"}
	if lines > 0 {
		args = append(args, "-S", fmt.Sprintf("-%d", lines))
	}
	return runTmux(args...)
}

// SendKeys injects keystrokes into the session, optionally followed by Enter.
func (t *TmuxAdapter) SendKeys(name, keys string, enter bool) error {
	exists, err := t.SessionExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session not found: %s", name)
	}

	args := []string{"send-keys", "-t", name, keys}
	if enter {
		args = append(args, "Enter")
	}
	_, err = runTmux(args...)
	return err
}

// GetPaneStatus reports whether the session's pane process has died.
func (t *TmuxAdapter) GetPaneStatus(name string) (PaneStatus, error) {
	exists, err := t.SessionExists(name)
	if err != nil {
		return PaneStatus{}, err
	}
	if !exists {
		return PaneStatus{}, fmt.Errorf("session not found: %s", name)
	}

	out, err := runTmux("list-panes", "-t", name, "-F", "#{pane_dead}:#{pane_pid}")
	if err != nil {
		return PaneStatus{}, err
	}
	parts := strings.SplitN(strings.TrimSpace(out), ":", 2)
	status := PaneStatus{SessionName: name}
	if len(parts) > 0 {
		status.IsDead = parts[0] == "1"
	}
	if len(parts) > 1 {
		status.PID, _ = strconv.Atoi(parts[1])
	}
	return status, nil
}

// RespawnPane restarts a dead pane's process, optionally with a new command.
func (t *TmuxAdapter) RespawnPane(name, command string) error {
	exists, err := t.SessionExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("session not found: %s", name)
	}

	args := []string{"respawn-pane", "-t", name, "-k"}
	if command != "" {
		args = append(args, command)
	}
	_, err = runTmux(args...)
	return err
}
