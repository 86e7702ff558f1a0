package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// GenerateOrchestratorID generates an orchestrator ID using pattern: orch_<unix_nano>_<random_hex>.
func GenerateOrchestratorID() string {
	return generatePrefixedID("orch")
}

// defaultMonitoringIntervalSecs and defaultStallThresholdSecs mirror spec.md
// §4.6's stated defaults for a freshly created orchestrator.
const (
	defaultMonitoringIntervalSecs = 30
	defaultStallThresholdSecs     = 300
)

// CreateOrchestratorParams are the fields accepted when registering a new
// orchestrator. A master orchestrator has ScopeType/ScopeID empty; a folder
// orchestrator's ScopeType is "folder" and ScopeID is the folder id.
type CreateOrchestratorParams struct {
	UserID                 string
	Kind                   models.OrchestratorKind
	ScopeType              string
	ScopeID                string
	SessionID              string
	CustomInstructions     string
	MonitoringIntervalSecs int
	StallThresholdSecs     int
	AutoIntervention       bool
}

// CreateOrchestrator inserts a new orchestrator. The (user, kind, scope_type,
// scope_id) unique index enforces spec.md §8's "at most one per (user,
// scope)" invariant; a violation surfaces as a ConflictError.
func CreateOrchestrator(db *sql.DB, p CreateOrchestratorParams) (*models.Orchestrator, error) {
	interval := p.MonitoringIntervalSecs
	if interval <= 0 {
		interval = defaultMonitoringIntervalSecs
	}
	threshold := p.StallThresholdSecs
	if threshold <= 0 {
		threshold = defaultStallThresholdSecs
	}

	var orch *models.Orchestrator
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateOrchestratorID()
		var sessionID any
		if p.SessionID != "" {
			sessionID = p.SessionID
		}
		_, err := tx.Exec(`
			INSERT INTO orchestrators (id, user_id, session_id, kind, scope_type, scope_id,
				custom_instructions, monitoring_interval_secs, stall_threshold_secs, status, auto_intervention, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'idle', ?, ?, ?)
		`, id, p.UserID, sessionID, p.Kind, p.ScopeType, p.ScopeID,
			p.CustomInstructions, interval, threshold, boolToInt(p.AutoIntervention), now, now)
		if err != nil {
			if IsUniqueConstraintErr(err) {
				return &ConflictError{Reason: fmt.Sprintf("an orchestrator already exists for scope %q/%q", p.ScopeType, p.ScopeID)}
			}
			return fmt.Errorf("insert orchestrator: %w", err)
		}
		o, err := GetOrchestratorTx(tx, id)
		if err != nil {
			return err
		}
		orch = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orch, nil
}

const orchestratorSelect = `
	SELECT id, user_id, COALESCE(session_id, ''), kind, scope_type, scope_id, custom_instructions,
		monitoring_interval_secs, stall_threshold_secs, status, auto_intervention, created_at, updated_at
	FROM orchestrators`

// GetOrchestrator retrieves an orchestrator by ID.
func GetOrchestrator(db *sql.DB, id string) (*models.Orchestrator, error) {
	var o models.Orchestrator
	var autoIntervention int
	err := RetryWithBackoff(context.Background(), func() error {
		return db.QueryRow(orchestratorSelect+` WHERE id = ?`, id).Scan(
			&o.ID, &o.UserID, &o.SessionID, &o.Kind, &o.ScopeType, &o.ScopeID, &o.CustomInstructions,
			&o.MonitoringIntervalSecs, &o.StallThresholdSecs, &o.Status, &autoIntervention, &o.CreatedAt, &o.UpdatedAt)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "orchestrator", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query orchestrator: %w", err)
	}
	o.AutoIntervention = autoIntervention != 0
	return &o, nil
}

// GetOrchestratorTx retrieves an orchestrator by ID inside a transaction.
func GetOrchestratorTx(q Querier, id string) (*models.Orchestrator, error) {
	var o models.Orchestrator
	var autoIntervention int
	err := q.QueryRow(orchestratorSelect+` WHERE id = ?`, id).Scan(
		&o.ID, &o.UserID, &o.SessionID, &o.Kind, &o.ScopeType, &o.ScopeID, &o.CustomInstructions,
		&o.MonitoringIntervalSecs, &o.StallThresholdSecs, &o.Status, &autoIntervention, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "orchestrator", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query orchestrator: %w", err)
	}
	o.AutoIntervention = autoIntervention != 0
	return &o, nil
}

// GetMasterOrchestrator is a supplemented feature (SPEC_FULL §4 item 4): the
// master orchestrator is a privileged, separately-addressable lookup rather
// than just a filter of the general orchestrator list.
func GetMasterOrchestrator(db *sql.DB, userID string) (*models.Orchestrator, error) {
	var o models.Orchestrator
	var autoIntervention int
	err := RetryWithBackoff(context.Background(), func() error {
		return db.QueryRow(orchestratorSelect+` WHERE user_id = ? AND kind = ?`, userID, models.OrchestratorKindMaster).Scan(
			&o.ID, &o.UserID, &o.SessionID, &o.Kind, &o.ScopeType, &o.ScopeID, &o.CustomInstructions,
			&o.MonitoringIntervalSecs, &o.StallThresholdSecs, &o.Status, &autoIntervention, &o.CreatedAt, &o.UpdatedAt)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "master orchestrator", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("query master orchestrator: %w", err)
	}
	o.AutoIntervention = autoIntervention != 0
	return &o, nil
}

// ListOrchestrators returns every orchestrator owned by a user.
func ListOrchestrators(db *sql.DB, userID string) ([]*models.Orchestrator, error) {
	var out []*models.Orchestrator
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(orchestratorSelect+` WHERE user_id = ? ORDER BY created_at ASC`, userID)
		if err != nil {
			return fmt.Errorf("query orchestrators: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Orchestrator, 0)
		for rows.Next() {
			var o models.Orchestrator
			var autoIntervention int
			if err := rows.Scan(&o.ID, &o.UserID, &o.SessionID, &o.Kind, &o.ScopeType, &o.ScopeID, &o.CustomInstructions,
				&o.MonitoringIntervalSecs, &o.StallThresholdSecs, &o.Status, &autoIntervention, &o.CreatedAt, &o.UpdatedAt); err != nil {
				return fmt.Errorf("scan orchestrator row: %w", err)
			}
			o.AutoIntervention = autoIntervention != 0
			out = append(out, &o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetOrchestratorStatus updates the run state of an orchestrator's monitoring loop.
func SetOrchestratorStatus(db *sql.DB, id string, status models.OrchestratorStatus) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE orchestrators SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update orchestrator status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "orchestrator", ID: id}
		}
		return nil
	})
}

// UpdateOrchestratorInstructions updates the freeform operator notes field
// (SPEC_FULL §4 item 3).
func UpdateOrchestratorInstructions(db *sql.DB, id, instructions string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE orchestrators SET custom_instructions = ?, updated_at = ? WHERE id = ?`,
			instructions, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("update orchestrator instructions: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "orchestrator", ID: id}
		}
		return nil
	})
}

// DeleteOrchestrator deletes an orchestrator and its insights (cascade).
func DeleteOrchestrator(db *sql.DB, id string) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM orchestrators WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete orchestrator: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "orchestrator", ID: id}
		}
		return nil
	})
}
