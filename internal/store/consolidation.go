package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// ListConsolidationBatch returns up to batchSize memory entries for a user,
// across every tier, created at least minAge ago, oldest first, ties broken
// by higher relevance first — the candidate set the consolidation engine
// evaluates per cycle.
func ListConsolidationBatch(db *sql.DB, userID string, minAge time.Duration, batchSize int) ([]*models.MemoryEntry, error) {
	cutoff := time.Now().UTC().Add(-minAge)
	var out []*models.MemoryEntry
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(memoryEntrySelect+`
			WHERE user_id = ? AND created_at <= ?
			ORDER BY created_at ASC, relevance DESC
			LIMIT ?
		`, userID, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("query consolidation batch: %w", err)
		}
		defer func() { _ = rows.Close() }()
		out = make([]*models.MemoryEntry, 0)
		for rows.Next() {
			var e models.MemoryEntry
			var ttl sql.NullInt64
			var meta string
			if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.FolderID, &e.Tier, &e.ContentType, &e.Content, &e.ContentHash,
				&e.Name, &e.Description, &e.TaskID, &e.Priority, &e.Confidence, &e.Relevance, &ttl, &e.AccessCount,
				&e.CreatedAt, &e.LastAccessedAt, &meta); err != nil {
				return fmt.Errorf("scan consolidation batch row: %w", err)
			}
			if ttl.Valid {
				v := ttl.Int64
				e.TTLSeconds = &v
			}
			e.Metadata = json.RawMessage(meta)
			out = append(out, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteIrrelevantEntries implements consolidation step 2: delete entries
// with relevance < relevanceThreshold AND confidence < confidenceThreshold
// AND access_count = 0, never touching long-term entries.
func DeleteIrrelevantEntries(db *sql.DB, userID string, relevanceThreshold, confidenceThreshold float64) (int, error) {
	var deleted int
	err := Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			DELETE FROM memory_entries
			WHERE user_id = ? AND relevance < ? AND confidence < ? AND access_count = 0 AND tier != ?
		`, userID, relevanceThreshold, confidenceThreshold, models.MemoryTierLongTerm)
		if err != nil {
			return fmt.Errorf("delete irrelevant entries: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		deleted = int(n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// SetMemoryEntryTier transitions an entry's tier without touching its
// access clock or metrics — the primitive consolidation's promote/demote
// steps use, distinct from UpdateMemoryEntry's caller-facing partial update.
func SetMemoryEntryTier(db *sql.DB, id int64, tier models.MemoryTier) (*models.MemoryEntry, error) {
	var entry *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		var ttl any
		if tier == models.MemoryTierLongTerm {
			ttl = nil
		} else {
			existing, err := GetMemoryEntryTx(tx, id)
			if err != nil {
				return err
			}
			if existing.TTLSeconds != nil {
				ttl = *existing.TTLSeconds
			}
		}
		res, err := tx.Exec(`UPDATE memory_entries SET tier = ?, ttl_seconds = ? WHERE id = ?`, tier, ttl, id)
		if err != nil {
			return fmt.Errorf("set memory entry tier: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
		}
		e, err := GetMemoryEntryTx(tx, id)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// MergedEntryParams describes the equivalence-class merge computed by the
// consolidation engine's similarity step.
type MergedEntryParams struct {
	BaseID      int64
	DeleteIDs   []int64
	Content     string
	AccessCount int64
	Confidence  float64
	Relevance   float64
}

// MergeMemoryEntries overwrites the base entry with the merged content and
// metrics, recomputing content_hash, then deletes the rest of the
// equivalence class. The base row is preserved for referential stability
// (its id may be referenced elsewhere), per spec.md §4.4 step 5.
func MergeMemoryEntries(db *sql.DB, p MergedEntryParams) (*models.MemoryEntry, error) {
	var merged *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		hash := ContentHash(p.Content)
		_, err := tx.Exec(`
			UPDATE memory_entries
			SET content = ?, content_hash = ?, access_count = ?, confidence = ?, relevance = ?
			WHERE id = ?
		`, p.Content, hash, p.AccessCount, clampUnit(p.Confidence), clampUnit(p.Relevance), p.BaseID)
		if err != nil {
			return fmt.Errorf("update merged base entry: %w", err)
		}
		for _, id := range p.DeleteIDs {
			if id == p.BaseID {
				continue
			}
			if _, err := tx.Exec(`DELETE FROM memory_entries WHERE id = ?`, id); err != nil {
				return fmt.Errorf("delete merged member %d: %w", id, err)
			}
		}
		e, err := GetMemoryEntryTx(tx, p.BaseID)
		if err != nil {
			return err
		}
		merged = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// BumpRelevance sets an entry's relevance to newRelevance (already clamped
// and capped by the caller), used by consolidation step 6's singleton
// relevance boost.
func BumpRelevance(db *sql.DB, id int64, newRelevance float64) (*models.MemoryEntry, error) {
	var entry *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE memory_entries SET relevance = ? WHERE id = ?`, clampUnit(newRelevance), id)
		if err != nil {
			return fmt.Errorf("bump relevance: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
		}
		e, err := GetMemoryEntryTx(tx, id)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
