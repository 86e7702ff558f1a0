package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Diagnostic represents a single consistency check finding.
type Diagnostic struct {
	Level           string `json:"level"` // "warning" or "error"
	Code            string `json:"code"`
	Message         string `json:"message"`
	SuggestedAction string `json:"suggested_action,omitempty"`
}

// RunDiagnostics performs consistency checks and returns findings.
func RunDiagnostics(db *sql.DB) ([]Diagnostic, error) {
	var diags []Diagnostic

	staleInsights, err := findStaleUnresolvedInsights(db)
	if err != nil {
		return nil, fmt.Errorf("stale insights check: %w", err)
	}
	diags = append(diags, staleInsights...)

	idleOrchestrators, err := findRunningOrchestratorsWithNoActiveSessions(db)
	if err != nil {
		return nil, fmt.Errorf("idle orchestrator check: %w", err)
	}
	diags = append(diags, idleOrchestrators...)

	neverActiveSessions, err := findActiveSessionsNeverMonitored(db)
	if err != nil {
		return nil, fmt.Errorf("unmonitored session check: %w", err)
	}
	diags = append(diags, neverActiveSessions...)

	return diags, nil
}

// findStaleUnresolvedInsights finds insights that have sat unresolved for over
// a day, a sign the orchestrator raising them has nobody acting on them.
func findStaleUnresolvedInsights(db *sql.DB) ([]Diagnostic, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT id, orchestrator_id, type, severity
		FROM insights
		WHERE resolved = 0
		  AND created_at < datetime('now', '-1 day')
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var id, orchestratorID, kind, severity string
		if err := rows.Scan(&id, &orchestratorID, &kind, &severity); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:           "warning",
			Code:            "STALE_INSIGHT",
			Message:         fmt.Sprintf("insight %s (%s/%s) on orchestrator %s has been unresolved for over a day", id, kind, severity, orchestratorID),
			SuggestedAction: fmt.Sprintf("rdv orchestrator escalate --insight %s", id),
		})
	}
	return diags, rows.Err()
}

// findRunningOrchestratorsWithNoActiveSessions finds folder orchestrators that
// are still marked running even though their folder has no active session to
// watch — the monitoring loop is spinning on nothing.
func findRunningOrchestratorsWithNoActiveSessions(db *sql.DB) ([]Diagnostic, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT o.id, o.scope_id
		FROM orchestrators o
		WHERE o.status = 'running'
		  AND o.kind = 'folder'
		  AND NOT EXISTS (
		    SELECT 1 FROM sessions s
		    WHERE s.folder_id = o.scope_id AND s.status = 'active'
		  )
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var orchestratorID, folderID string
		if err := rows.Scan(&orchestratorID, &folderID); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:           "warning",
			Code:            "IDLE_RUNNING_ORCHESTRATOR",
			Message:         fmt.Sprintf("orchestrator %s is running against folder %s, which has no active sessions", orchestratorID, folderID),
			SuggestedAction: fmt.Sprintf("rdv orchestrator monitoring stop --id %s", orchestratorID),
		})
	}
	return diags, rows.Err()
}

// findActiveSessionsNeverMonitored finds sessions marked active for over an
// hour with no last_activity_at recorded, meaning no stall check has ever
// observed their scrollback.
func findActiveSessionsNeverMonitored(db *sql.DB) ([]Diagnostic, error) {
	rows, err := db.QueryContext(context.Background(), `
		SELECT id, tmux_session_name
		FROM sessions
		WHERE status = 'active'
		  AND last_activity_at IS NULL
		  AND created_at < datetime('now', '-1 hour')
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var diags []Diagnostic
	for rows.Next() {
		var id, tmuxName string
		if err := rows.Scan(&id, &tmuxName); err != nil {
			return nil, err
		}
		diags = append(diags, Diagnostic{
			Level:           "warning",
			Code:            "UNMONITORED_SESSION",
			Message:         fmt.Sprintf("session %s (tmux: %s) has been active for over an hour with no recorded stall check", id, tmuxName),
			SuggestedAction: "confirm a folder or master orchestrator is monitoring this session",
		})
	}
	return diags, rows.Err()
}
