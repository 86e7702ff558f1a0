// Package monitoring implements timestamp-based stall detection: a session's
// last_activity_at is set when it is created and each time the daemon sends
// it a command (store.TouchSessionActivity), and a lightweight per-orchestrator timer loop periodically checks whether
// any session has gone quiet for longer than its orchestrator's threshold.
// Scrollback capture is on-demand only, never part of the regular loop.
package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/remotedev/rdv/internal/insight"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// ScrollbackCapturer is the terminal-adapter collaborator CaptureSessionScrollback
// depends on. internal/terminal.Adapter satisfies this structurally; kept as
// a narrow interface here so monitoring never imports internal/terminal.
type ScrollbackCapturer interface {
	SessionExists(name string) (bool, error)
	CapturePane(name string, lines int) (string, error)
}

// StallCheckResult is the outcome of one check_for_stalled_sessions pass.
type StallCheckResult struct {
	OrchestratorID  string
	StalledSessions []models.StalledSession
	CheckedAt       time.Time
}

// Service manages per-orchestrator stall-check loops.
type Service struct {
	db        *sql.DB
	generator *insight.Generator
	terminal  ScrollbackCapturer
	reg       *registry
}

// NewService builds a Service. terminal may be nil; CaptureSessionScrollback
// then always reports an error rather than panicking.
func NewService(db *sql.DB, generator *insight.Generator, terminal ScrollbackCapturer) *Service {
	return &Service{db: db, generator: generator, terminal: terminal, reg: newRegistry()}
}

// CheckForStalledSessions resolves orchestratorID (verifying it belongs to
// userID when it is not that user's master orchestrator), then returns every
// session stalled past its configured threshold.
func (s *Service) CheckForStalledSessions(orchestratorID, userID string) (*StallCheckResult, error) {
	orch, err := s.resolveOwnedOrchestrator(orchestratorID, userID)
	if err != nil {
		return nil, err
	}

	folderID := ""
	if orch.Kind == models.OrchestratorKindFolder {
		folderID = orch.ScopeID
	}

	stalled, err := store.GetStalledSessions(s.db, userID, folderID, orch.StallThresholdSecs, time.Now())
	if err != nil {
		return nil, fmt.Errorf("get stalled sessions: %w", err)
	}

	return &StallCheckResult{
		OrchestratorID:  orchestratorID,
		StalledSessions: stalled,
		CheckedAt:       time.Now(),
	}, nil
}

func (s *Service) resolveOwnedOrchestrator(orchestratorID, userID string) (*models.Orchestrator, error) {
	master, err := store.GetMasterOrchestrator(s.db, userID)
	if err == nil && master.ID == orchestratorID {
		return master, nil
	}

	orch, err := store.GetOrchestrator(s.db, orchestratorID)
	if err != nil {
		return nil, err
	}
	if orch.UserID != userID {
		return nil, &store.AccessDeniedError{Entity: "orchestrator", ID: orchestratorID}
	}
	return orch, nil
}

// CaptureSessionScrollback is an on-demand diagnostic: it is never called
// from the regular stall-check loop.
func (s *Service) CaptureSessionScrollback(tmuxSessionName string, lines int) (string, error) {
	if s.terminal == nil {
		return "", fmt.Errorf("no terminal adapter configured")
	}
	exists, err := s.terminal.SessionExists(tmuxSessionName)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", fmt.Errorf("session %s does not exist", tmuxSessionName)
	}
	if lines <= 0 {
		lines = 100
	}
	return s.terminal.CapturePane(tmuxSessionName, lines)
}

// StartStallChecking starts (or restarts) a periodic stall-check loop for
// orchestratorID, ticking every interval. Each tick that finds a stalled
// session without an existing unresolved stall insight generates one.
func (s *Service) StartStallChecking(orchestratorID, userID string, interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	replaced := s.reg.start(orchestratorID, &handle{cancel: cancel, done: done})
	if replaced {
		slog.Info("replacing existing stall check", "orchestrator_id", orchestratorID)
	}
	slog.Info("starting stall checking", "orchestrator_id", orchestratorID, "interval", interval)

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runCheckCycle(orchestratorID, userID)
			}
		}
	}()
}

func (s *Service) runCheckCycle(orchestratorID, userID string) {
	result, err := s.CheckForStalledSessions(orchestratorID, userID)
	if err != nil {
		slog.Error("stall check failed", "orchestrator_id", orchestratorID, "error", err)
		return
	}
	if len(result.StalledSessions) == 0 {
		return
	}
	slog.Info("found potentially stalled sessions", "orchestrator_id", orchestratorID, "count", len(result.StalledSessions))

	for _, stalled := range result.StalledSessions {
		sess := stalled.Session
		slog.Debug("stalled session detected", "session_name", sess.Name, "stalled_minutes", stalled.StalledMinutes)

		has, err := store.HasUnresolvedStallInsight(s.db, orchestratorID, sess.ID)
		if err != nil {
			slog.Error("check unresolved stall insight failed", "session_id", sess.ID, "error", err)
			continue
		}
		if has {
			continue
		}

		duration := time.Duration(stalled.StalledMinutes) * time.Minute
		if _, err := s.generator.GenerateStallInsight(orchestratorID, userID, sess.ID, sess.FolderID, duration); err != nil {
			slog.Error("failed to create stall insight", "session_id", sess.ID, "error", err)
		}
	}
}

// StopStallChecking stops the loop for orchestratorID, if any, and blocks
// until its goroutine has returned.
func (s *Service) StopStallChecking(orchestratorID string) {
	s.reg.stop(orchestratorID)
	slog.Info("stopped stall checking", "orchestrator_id", orchestratorID)
}

// StopAllStallChecking stops every running loop and blocks until each has
// returned.
func (s *Service) StopAllStallChecking() {
	s.reg.stopAll()
	slog.Info("stopped all stall checking")
}

// IsStallCheckingActive reports whether orchestratorID has a running loop.
func (s *Service) IsStallCheckingActive(orchestratorID string) bool {
	return s.reg.isActive(orchestratorID)
}

// GetActiveStallChecks returns every orchestrator_id with a running loop.
func (s *Service) GetActiveStallChecks() []string {
	return s.reg.activeIDs()
}
