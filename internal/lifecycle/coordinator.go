// Package lifecycle wires a session's start/activity/end into the memory
// store: session start loads relevant memory back into context, activity
// capture records observations and errors to short-term memory, and session
// end runs maintenance (auto-promote, expire) over what accumulated.
package lifecycle

import (
	"database/sql"
	"fmt"

	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/models"
)

const recentShortTermLimit = 10

// MemoryLoadStats breaks down how many memories on_session_start loaded per
// tier.
type MemoryLoadStats struct {
	LongTerm  int `json:"long_term"`
	Working   int `json:"working"`
	ShortTerm int `json:"short_term"`
}

// SessionStartResult is the outcome of on_session_start.
type SessionStartResult struct {
	SessionID string
	UserID    string
	FolderID  string
	Memories  []*models.MemoryEntry
	Stats     MemoryLoadStats
}

// SessionEndResult is the outcome of on_session_end.
type SessionEndResult struct {
	Promoted  []int64
	CleanedUp int
	Errors    []string
}

// Coordinator wires session lifecycle events to the memory store.
type Coordinator struct {
	db       *sql.DB
	embedder memory.Embedder
}

// NewCoordinator builds a Coordinator. embedder may be nil.
func NewCoordinator(db *sql.DB, embedder memory.Embedder) *Coordinator {
	return &Coordinator{db: db, embedder: embedder}
}

// OnSessionStart loads relevant memory for a session beginning work in
// folderID: long-term knowledge for the folder, active working memory for
// the user, and the 10 most recent short-term observations.
func (c *Coordinator) OnSessionStart(sessionID, userID, folderID string) (*SessionStartResult, error) {
	var all []*models.MemoryEntry
	var stats MemoryLoadStats

	longTerm, err := memory.Knowledge(c.db, userID, folderID, nil)
	if err != nil {
		return nil, fmt.Errorf("load long-term knowledge: %w", err)
	}
	stats.LongTerm = len(longTerm)
	all = append(all, longTerm...)

	working, err := memory.Active(c.db, userID, "", folderID, "")
	if err != nil {
		return nil, fmt.Errorf("load active working memory: %w", err)
	}
	stats.Working = len(working)
	all = append(all, working...)

	recent, err := memory.Recent(c.db, userID, "", folderID, recentShortTermLimit)
	if err != nil {
		return nil, fmt.Errorf("load recent short-term memory: %w", err)
	}
	stats.ShortTerm = len(recent)
	all = append(all, recent...)

	return &SessionStartResult{
		SessionID: sessionID,
		UserID:    userID,
		FolderID:  folderID,
		Memories:  all,
		Stats:     stats,
	}, nil
}

// CaptureObservation records a session-scoped observation to short-term
// memory.
func (c *Coordinator) CaptureObservation(userID, sessionID, folderID, content string, contentType models.ContentType) (*models.MemoryEntry, error) {
	if contentType == "" {
		contentType = models.ContentTypeObservation
	}
	return memory.Remember(c.db, userID, sessionID, folderID, content, memory.RememberOptions{ContentType: contentType})
}

// CaptureError records a session-scoped error observation at high
// confidence, since an observed error is rarely a false positive.
func (c *Coordinator) CaptureError(userID, sessionID, folderID, errorContent string) (*models.MemoryEntry, error) {
	return memory.Remember(c.db, userID, sessionID, folderID, errorContent, memory.RememberOptions{
		ContentType: models.ContentTypeError,
		Confidence:  0.9,
	})
}

// HoldContext pins a piece of active task context in working memory.
func (c *Coordinator) HoldContext(userID, sessionID, folderID, content, name string) (*models.MemoryEntry, error) {
	return memory.Hold(c.db, userID, sessionID, folderID, content, memory.HoldOptions{
		ContentType: models.ContentTypeContext,
		Confidence:  0.7,
	})
}

// LearnPattern records a convention or pattern to long-term memory.
func (c *Coordinator) LearnPattern(userID, folderID, content, name string) (*models.MemoryEntry, error) {
	return memory.Learn(c.db, userID, folderID, content, models.ContentTypePattern, memory.LearnOptions{
		Name:       name,
		Confidence: 0.8,
	})
}

// OnSessionEnd runs maintenance for the user whose session just ended:
// auto-promotion by access count and expiry cleanup. Scoped per-user (not
// per-session), matching spec.md §9's auto-promotion-scope decision.
func (c *Coordinator) OnSessionEnd(userID string) *SessionEndResult {
	result := memory.Maintain(c.db, userID)
	return &SessionEndResult{
		Promoted:  result.Promoted,
		CleanedUp: result.ExpiredCleaned,
		Errors:    result.Errors,
	}
}

// Search queries the folder's long-term memory via memory.Recall, optionally
// ranked by an embedder; short-term and working entries are not searched.
func (c *Coordinator) Search(userID, folderID, query string, limit int) ([]*models.MemoryEntry, error) {
	return memory.Recall(c.db, c.embedder, userID, folderID, query, limit)
}

// ConsolidateMemory promotes a single working-memory entry to long-term.
func (c *Coordinator) ConsolidateMemory(id int64) error {
	_, err := memory.Consolidate(c.db, id)
	return err
}

// ReleaseMemory demotes a working-memory entry back to short-term.
func (c *Coordinator) ReleaseMemory(id int64) error {
	_, err := memory.Release(c.db, id)
	return err
}

// ForgetMemory deletes a memory entry regardless of tier.
func (c *Coordinator) ForgetMemory(id int64) error {
	return memory.Forget(c.db, id)
}
