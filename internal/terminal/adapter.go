// Package terminal defines the contract a supervised multiplexer session
// must satisfy, plus a tmux-backed implementation of it. Monitoring and
// lifecycle code depend on the Adapter interface, never on tmux directly.
package terminal

import "time"

// SessionInfo describes one multiplexer session as the adapter sees it.
type SessionInfo struct {
	Name     string
	Created  time.Time
	Attached bool
}

// PaneStatus is the liveness of a session's pane.
type PaneStatus struct {
	SessionName string
	IsDead      bool
	PID         int
}

// CreateOptions configures a new session.
type CreateOptions struct {
	Name             string
	WorkingDirectory string
	Command          string
	AutoRespawn      bool
	Env              map[string]string
}

// Adapter is the contract every terminal multiplexer backend must satisfy.
// internal/monitoring.ScrollbackCapturer is a narrower view of the same
// contract; anything implementing Adapter satisfies it too.
type Adapter interface {
	SessionExists(name string) (bool, error)
	ListSessions() ([]SessionInfo, error)
	CreateSession(opts CreateOptions) error
	KillSession(name string) error
	CapturePane(name string, lines int) (string, error)
	SendKeys(name, keys string, enter bool) error
	GetPaneStatus(name string) (PaneStatus, error)
	RespawnPane(name, command string) error
}
