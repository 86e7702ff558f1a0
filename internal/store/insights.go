package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remotedev/rdv/internal/models"
)

// GenerateInsightID mints a UUIDv4, matching original_source's insight.rs
// (which mints a UUID per insight rather than the prefixed-timestamp scheme
// used for every other entity kind).
func GenerateInsightID() string {
	return uuid.NewString()
}

// CreateInsightParams are the fields accepted when recording a new insight.
type CreateInsightParams struct {
	OrchestratorID   string
	SessionID        string
	Type             models.InsightType
	Severity         models.InsightSeverity
	Title            string
	Description      string
	Context          json.RawMessage
	SuggestedActions []models.SuggestedAction
	Confidence       float64
}

// CreateInsight inserts a new insight. When Type is stall, the partial
// unique index on (orchestrator_id, session_id) WHERE type='stall' AND
// resolved=0 enforces spec.md §8's guard; a violation surfaces as a
// ConflictError so callers can treat it the same as a failed
// has_unresolved_stall_insight pre-check.
func CreateInsight(db *sql.DB, p CreateInsightParams) (*models.Insight, error) {
	var insight *models.Insight
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		id := GenerateInsightID()
		ctx := p.Context
		if len(ctx) == 0 {
			ctx = json.RawMessage("{}")
		}
		actions, err := json.Marshal(p.SuggestedActions)
		if err != nil {
			return fmt.Errorf("marshal suggested actions: %w", err)
		}
		var sessionID any
		if p.SessionID != "" {
			sessionID = p.SessionID
		}
		_, err = tx.Exec(`
			INSERT INTO insights (id, orchestrator_id, session_id, type, severity, title, description,
				context, suggested_actions, confidence, resolved, resolved_at, resolved_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, '', ?)
		`, id, p.OrchestratorID, sessionID, p.Type, p.Severity, p.Title, p.Description,
			string(ctx), string(actions), clampUnit(p.Confidence), now)
		if err != nil {
			if IsUniqueConstraintErr(err) {
				return &ConflictError{Reason: "an unresolved stall insight already exists for this orchestrator/session"}
			}
			return fmt.Errorf("insert insight: %w", err)
		}
		i, err := GetInsightTx(tx, id)
		if err != nil {
			return err
		}
		insight = i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insight, nil
}

const insightSelect = `
	SELECT id, orchestrator_id, COALESCE(session_id, ''), type, severity, title, description,
		context, suggested_actions, confidence, resolved, resolved_at, resolved_by, created_at
	FROM insights`

func scanInsight(row *sql.Row, i *models.Insight) error {
	var resolved int
	var resolvedAt sql.NullTime
	var ctx, actions string
	if err := row.Scan(&i.ID, &i.OrchestratorID, &i.SessionID, &i.Type, &i.Severity, &i.Title, &i.Description,
		&ctx, &actions, &i.Confidence, &resolved, &resolvedAt, &i.ResolvedBy, &i.CreatedAt); err != nil {
		return err
	}
	i.Resolved = resolved != 0
	if resolvedAt.Valid {
		t := resolvedAt.Time
		i.ResolvedAt = &t
	}
	i.Context = json.RawMessage(ctx)
	_ = json.Unmarshal([]byte(actions), &i.SuggestedActions)
	return nil
}

// GetInsight retrieves an insight by ID.
func GetInsight(db *sql.DB, id string) (*models.Insight, error) {
	var i models.Insight
	err := RetryWithBackoff(context.Background(), func() error {
		return scanInsight(db.QueryRow(insightSelect+` WHERE id = ?`, id), &i)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "insight", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query insight: %w", err)
	}
	return &i, nil
}

// GetInsightTx retrieves an insight by ID inside a transaction.
func GetInsightTx(q Querier, id string) (*models.Insight, error) {
	var i models.Insight
	err := scanInsight(q.QueryRow(insightSelect+` WHERE id = ?`, id), &i)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "insight", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("query insight: %w", err)
	}
	return &i, nil
}

// HasUnresolvedStallInsight implements has_unresolved_stall_insight: the
// guard checked before create_stall_insight so a second monitoring cycle
// does not duplicate an insight for the same (orchestrator, session).
func HasUnresolvedStallInsight(db *sql.DB, orchestratorID, sessionID string) (bool, error) {
	var count int
	err := RetryWithBackoff(context.Background(), func() error {
		return db.QueryRow(`
			SELECT COUNT(*) FROM insights
			WHERE orchestrator_id = ? AND session_id = ? AND type = 'stall' AND resolved = 0
		`, orchestratorID, sessionID).Scan(&count)
	})
	if err != nil {
		return false, fmt.Errorf("query unresolved stall insight: %w", err)
	}
	return count > 0, nil
}

// ListInsights returns insights for an orchestrator, newest first, optionally
// restricted to unresolved ones.
func ListInsights(db *sql.DB, orchestratorID string, unresolvedOnly bool) ([]*models.Insight, error) {
	query := insightSelect + ` WHERE orchestrator_id = ?`
	if unresolvedOnly {
		query += ` AND resolved = 0`
	}
	query += ` ORDER BY created_at DESC`

	var out []*models.Insight
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(query, orchestratorID)
		if err != nil {
			return fmt.Errorf("query insights: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.Insight, 0)
		for rows.Next() {
			var i models.Insight
			var resolved int
			var resolvedAt sql.NullTime
			var ctx, actions string
			if err := rows.Scan(&i.ID, &i.OrchestratorID, &i.SessionID, &i.Type, &i.Severity, &i.Title, &i.Description,
				&ctx, &actions, &i.Confidence, &resolved, &resolvedAt, &i.ResolvedBy, &i.CreatedAt); err != nil {
				return fmt.Errorf("scan insight row: %w", err)
			}
			i.Resolved = resolved != 0
			if resolvedAt.Valid {
				t := resolvedAt.Time
				i.ResolvedAt = &t
			}
			i.Context = json.RawMessage(ctx)
			_ = json.Unmarshal([]byte(actions), &i.SuggestedActions)
			out = append(out, &i)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveInsight marks an insight resolved by the given actor (a user id, or
// "system" for automatic resolution).
func ResolveInsight(db *sql.DB, id, resolvedBy string) error {
	return Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.Exec(`UPDATE insights SET resolved = 1, resolved_at = ?, resolved_by = ? WHERE id = ?`,
			now, resolvedBy, id)
		if err != nil {
			return fmt.Errorf("resolve insight: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "insight", ID: id}
		}
		return nil
	})
}

// EscalateInsight is the supplemented `rdv orchestrator escalate` feature
// (SPEC_FULL §4 item 9): it copies an unresolved insight onto the master
// orchestrator's insight stream, annotating the context with the originating
// orchestrator id.
func EscalateInsight(db *sql.DB, insightID, masterOrchestratorID string) (*models.Insight, error) {
	var escalated *models.Insight
	err := Transact(db, func(tx *sql.Tx) error {
		original, err := GetInsightTx(tx, insightID)
		if err != nil {
			return err
		}
		var ctxMap map[string]any
		if len(original.Context) > 0 {
			_ = json.Unmarshal(original.Context, &ctxMap)
		}
		if ctxMap == nil {
			ctxMap = map[string]any{}
		}
		ctxMap["escalated_from_orchestrator_id"] = original.OrchestratorID
		ctxMap["escalated_from_insight_id"] = original.ID
		ctxJSON, err := json.Marshal(ctxMap)
		if err != nil {
			return fmt.Errorf("marshal escalation context: %w", err)
		}
		actionsJSON, err := json.Marshal(original.SuggestedActions)
		if err != nil {
			return fmt.Errorf("marshal suggested actions: %w", err)
		}
		now := time.Now().UTC()
		id := GenerateInsightID()
		var sessionID any
		if original.SessionID != "" {
			sessionID = original.SessionID
		}
		_, err = tx.Exec(`
			INSERT INTO insights (id, orchestrator_id, session_id, type, severity, title, description,
				context, suggested_actions, confidence, resolved, resolved_at, resolved_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, '', ?)
		`, id, masterOrchestratorID, sessionID, original.Type, original.Severity, original.Title, original.Description,
			string(ctxJSON), string(actionsJSON), original.Confidence, now)
		if err != nil {
			return fmt.Errorf("insert escalated insight: %w", err)
		}
		e, err := GetInsightTx(tx, id)
		if err != nil {
			return err
		}
		escalated = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return escalated, nil
}
