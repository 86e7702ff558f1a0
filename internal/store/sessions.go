package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateSessionID generates a session ID using pattern: sess_<unix_nano>_<random_hex>.
func GenerateSessionID() string {
	return generatePrefixedID("sess")
}

// CreateSessionParams are the fields accepted when registering a new session.
type CreateSessionParams struct {
	UserID          string
	FolderID        string
	Name            string
	TmuxSessionName string
	ProjectPath     string
	WorktreeBranch  string
	AgentProvider   string
	IsOrchestrator  bool
}

// CreateSession inserts a new session in the active status.
func CreateSession(db *sql.DB, p CreateSessionParams) (*models.Session, error) {
	if p.TmuxSessionName == "" {
		return nil, &InvalidArgumentError{Field: "tmux_session_name", Reason: "must not be empty"}
	}
	var session *models.Session
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateSessionID()
		var folderID any
		if p.FolderID != "" {
			folderID = p.FolderID
		}
		if _, err := tx.Exec(`
			INSERT INTO sessions (id, user_id, folder_id, name, tmux_session_name, project_path,
				worktree_branch, agent_provider, is_orchestrator_session, status, last_activity_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?, ?)
		`, id, p.UserID, folderID, p.Name, p.TmuxSessionName, p.ProjectPath, p.WorktreeBranch,
			p.AgentProvider, boolToInt(p.IsOrchestrator), now, now, now); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		s, err := GetSessionTx(tx, id)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const sessionSelect = `
	SELECT id, user_id, name, tmux_session_name, project_path, COALESCE(folder_id, ''),
		worktree_branch, agent_provider, is_orchestrator_session, status, last_activity_at, created_at, updated_at
	FROM sessions`

func scanSession(row *sql.Row, s *models.Session) error {
	var isOrch int
	var lastActivity sql.NullTime
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.TmuxSessionName, &s.ProjectPath, &s.FolderID,
		&s.WorktreeBranch, &s.AgentProvider, &isOrch, &s.Status, &lastActivity, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return err
	}
	s.IsOrchestratorSession = isOrch != 0
	if lastActivity.Valid {
		t := lastActivity.Time
		s.LastActivityAt = &t
	}
	return nil
}

// GetSession retrieves a session by ID.
func GetSession(db *sql.DB, id string) (*models.Session, error) {
	var s models.Session
	err := RetryWithBackoff(context.Background(), func() error {
		return scanSession(db.QueryRow(sessionSelect+` WHERE id = ?`, id), &s)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

// GetSessionTx retrieves a session by ID inside an existing transaction.
func GetSessionTx(q Querier, id string) (*models.Session, error) {
	var s models.Session
	err := scanSession(q.QueryRow(sessionSelect+` WHERE id = ?`, id), &s)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

// TouchSessionActivity updates last_activity_at to now. Called by the
// daemon's exec handler when a command is sent to the session, never from
// the monitoring loop itself
// (spec.md §4.6: the Monitoring Service only reads timestamps on a timer).
func TouchSessionActivity(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.Exec(`UPDATE sessions SET last_activity_at = ?, updated_at = ? WHERE id = ?`, now, now, id)
		if err != nil {
			return fmt.Errorf("touch session activity: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "session", ID: id}
		}
		return nil
	})
}

// SetSessionStatus transitions a session's status, enforcing the lifecycle
// DAG (active <-> suspended, {active,suspended} -> closed).
func SetSessionStatus(db *sql.DB, id string, next models.SessionStatus) error {
	return Transact(db, func(tx *sql.Tx) error {
		s, err := GetSessionTx(tx, id)
		if err != nil {
			return err
		}
		if s.Status == next {
			return nil
		}
		if !s.Status.CanTransitionTo(next) {
			return &ConflictError{Reason: fmt.Sprintf("session %s cannot transition from %s to %s", id, s.Status, next)}
		}
		res, err := tx.Exec(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`, next, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update session status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "session", ID: id}
		}
		return nil
	})
}

// ListSessions returns sessions owned by a user, optionally filtered by folder.
func ListSessions(db *sql.DB, userID, folderID string) ([]*models.Session, error) {
	var out []*models.Session
	err := RetryWithBackoff(context.Background(), func() error {
		var rows *sql.Rows
		var err error
		if folderID == "" {
			rows, err = db.Query(sessionSelect+` WHERE user_id = ? ORDER BY created_at DESC`, userID)
		} else {
			rows, err = db.Query(sessionSelect+` WHERE user_id = ? AND folder_id = ? ORDER BY created_at DESC`, userID, folderID)
		}
		if err != nil {
			return fmt.Errorf("query sessions: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Session, 0)
		for rows.Next() {
			var s models.Session
			var isOrch int
			var lastActivity sql.NullTime
			if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.TmuxSessionName, &s.ProjectPath, &s.FolderID,
				&s.WorktreeBranch, &s.AgentProvider, &isOrch, &s.Status, &lastActivity, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return fmt.Errorf("scan session row: %w", err)
			}
			s.IsOrchestratorSession = isOrch != 0
			if lastActivity.Valid {
				t := lastActivity.Time
				s.LastActivityAt = &t
			}
			out = append(out, &s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStalledSessions returns active sessions whose last_activity_at is older
// than thresholdSecs, scoped to userID's sessions in folderID (every session
// of the user when folderID is empty). A session that has never reported activity (last_activity_at is
// null) is also considered stalled once created_at is older than the
// threshold. Boundary is strict: exactly `now - threshold` is NOT stalled.
func GetStalledSessions(db *sql.DB, userID, folderID string, thresholdSecs int, now time.Time) ([]models.StalledSession, error) {
	cutoff := now.Add(-time.Duration(thresholdSecs) * time.Second)
	var out []models.StalledSession
	err := RetryWithBackoff(context.Background(), func() error {
		var rows *sql.Rows
		var err error
		if folderID == "" {
			rows, err = db.Query(sessionSelect+`
				WHERE user_id = ? AND status = 'active'
				AND (
					(last_activity_at IS NOT NULL AND last_activity_at < ?)
					OR (last_activity_at IS NULL AND created_at < ?)
				)
				ORDER BY COALESCE(last_activity_at, created_at) ASC
			`, userID, cutoff, cutoff)
		} else {
			rows, err = db.Query(sessionSelect+`
				WHERE user_id = ? AND folder_id = ? AND status = 'active'
				AND (
					(last_activity_at IS NOT NULL AND last_activity_at < ?)
					OR (last_activity_at IS NULL AND created_at < ?)
				)
				ORDER BY COALESCE(last_activity_at, created_at) ASC
			`, userID, folderID, cutoff, cutoff)
		}
		if err != nil {
			return fmt.Errorf("query stalled sessions: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]models.StalledSession, 0)
		for rows.Next() {
			var s models.Session
			var isOrch int
			var lastActivity sql.NullTime
			if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.TmuxSessionName, &s.ProjectPath, &s.FolderID,
				&s.WorktreeBranch, &s.AgentProvider, &isOrch, &s.Status, &lastActivity, &s.CreatedAt, &s.UpdatedAt); err != nil {
				return fmt.Errorf("scan stalled session row: %w", err)
			}
			s.IsOrchestratorSession = isOrch != 0
			var stalledMinutes int
			if lastActivity.Valid {
				t := lastActivity.Time
				s.LastActivityAt = &t
				stalledMinutes = int(now.Sub(t).Minutes())
			} else {
				stalledMinutes = int(now.Sub(s.CreatedAt).Minutes())
			}
			out = append(out, models.StalledSession{Session: s, StalledMinutes: stalledMinutes})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
