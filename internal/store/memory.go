package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/remotedev/rdv/internal/models"
)

// ContentHash returns the SHA-256 hex digest of content. Kept as its own
// function so store(X) then get(id) round trips always recompute the same
// hash, per spec.md §8's "content_hash = SHA-256(content)" invariant.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// StoreMemoryParams are the fields accepted when recording a new memory entry.
type StoreMemoryParams struct {
	UserID      string
	SessionID   string
	FolderID    string
	Tier        models.MemoryTier
	ContentType models.ContentType
	Content     string
	Name        string
	Description string
	TaskID      string
	Priority    int
	Confidence  float64
	Relevance   float64
	TTLSeconds  *int64
	Metadata    json.RawMessage
}

// StoreMemoryEntry inserts a new memory entry with access_count = 0, per
// spec.md §8's store round-trip law.
func StoreMemoryEntry(db *sql.DB, p StoreMemoryParams) (*models.MemoryEntry, error) {
	if p.Tier == models.MemoryTierLongTerm && p.TTLSeconds != nil {
		return nil, &InvalidArgumentError{Field: "ttl_seconds", Reason: "long-term entries must not carry a TTL"}
	}
	var entry *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		hash := ContentHash(p.Content)
		meta := p.Metadata
		if len(meta) == 0 {
			meta = json.RawMessage("{}")
		}
		var sessionID, folderID any
		if p.SessionID != "" {
			sessionID = p.SessionID
		}
		if p.FolderID != "" {
			folderID = p.FolderID
		}
		res, err := tx.Exec(`
			INSERT INTO memory_entries (user_id, session_id, folder_id, tier, content_type, content, content_hash,
				name, description, task_id, priority, confidence, relevance, ttl_seconds, access_count,
				created_at, last_accessed_at, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
		`, p.UserID, sessionID, folderID, p.Tier, p.ContentType, p.Content, hash,
			p.Name, p.Description, p.TaskID, p.Priority, clampUnit(p.Confidence), clampUnit(p.Relevance), p.TTLSeconds,
			now, now, string(meta))
		if err != nil {
			return fmt.Errorf("insert memory entry: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
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

// clampUnit clamps a score to [0, 1], matching ClampConfidence's role in the
// teacher's memory store for the new confidence/relevance fields.
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const memoryEntrySelect = `
	SELECT id, user_id, COALESCE(session_id, ''), COALESCE(folder_id, ''), tier, content_type, content, content_hash,
		name, description, task_id, priority, confidence, relevance, ttl_seconds, access_count,
		created_at, last_accessed_at, metadata
	FROM memory_entries`

func scanMemoryEntry(row *sql.Row, e *models.MemoryEntry) error {
	var ttl sql.NullInt64
	var meta string
	if err := row.Scan(&e.ID, &e.UserID, &e.SessionID, &e.FolderID, &e.Tier, &e.ContentType, &e.Content, &e.ContentHash,
		&e.Name, &e.Description, &e.TaskID, &e.Priority, &e.Confidence, &e.Relevance, &ttl, &e.AccessCount,
		&e.CreatedAt, &e.LastAccessedAt, &meta); err != nil {
		return err
	}
	if ttl.Valid {
		v := ttl.Int64
		e.TTLSeconds = &v
	}
	e.Metadata = json.RawMessage(meta)
	return nil
}

// GetMemoryEntry retrieves a memory entry by ID.
func GetMemoryEntry(db *sql.DB, id int64) (*models.MemoryEntry, error) {
	var e models.MemoryEntry
	err := RetryWithBackoff(context.Background(), func() error {
		return scanMemoryEntry(db.QueryRow(memoryEntrySelect+` WHERE id = ?`, id), &e)
	})
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("query memory entry: %w", err)
	}
	return &e, nil
}

// GetMemoryEntryTx retrieves a memory entry by ID inside a transaction.
func GetMemoryEntryTx(q Querier, id int64) (*models.MemoryEntry, error) {
	var e models.MemoryEntry
	err := scanMemoryEntry(q.QueryRow(memoryEntrySelect+` WHERE id = ?`, id), &e)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
	}
	if err != nil {
		return nil, fmt.Errorf("query memory entry: %w", err)
	}
	return &e, nil
}

// TouchMemoryEntry increments access_count and advances last_accessed_at to
// now. spec.md §8: touch(id) n times -> access_count >= n and
// last_accessed_at monotonically non-decreasing.
func TouchMemoryEntry(db *sql.DB, id int64) (*models.MemoryEntry, error) {
	var entry *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.Exec(`
			UPDATE memory_entries
			SET access_count = access_count + 1, last_accessed_at = ?
			WHERE id = ? AND last_accessed_at <= ?
		`, now, id, now)
		if err != nil {
			return fmt.Errorf("touch memory entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Row exists but last_accessed_at is already >= now (clock skew or
			// concurrent touch): still bump access_count, never the timestamp.
			res2, err2 := tx.Exec(`UPDATE memory_entries SET access_count = access_count + 1 WHERE id = ?`, id)
			if err2 != nil {
				return fmt.Errorf("touch memory entry (count only): %w", err2)
			}
			if n2, _ := res2.RowsAffected(); n2 == 0 {
				return &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
			}
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

// UpdateMemoryEntryParams carries the mutable fields of update_memory_entry.
// Nil pointers leave the corresponding column unchanged.
type UpdateMemoryEntryParams struct {
	Content    *string
	Confidence *float64
	Relevance  *float64
	Tier       *models.MemoryTier
	TTLSeconds *int64
	ClearTTL   bool
}

// UpdateMemoryEntry applies a partial update. Recomputes content_hash when
// Content changes. Per spec.md §9's Open Question decision, updating the
// content of a long-term entry (tier == long_term after applying Tier) is
// rejected outright rather than silently ignored.
func UpdateMemoryEntry(db *sql.DB, id int64, p UpdateMemoryEntryParams) (*models.MemoryEntry, error) {
	var entry *models.MemoryEntry
	err := Transact(db, func(tx *sql.Tx) error {
		existing, err := GetMemoryEntryTx(tx, id)
		if err != nil {
			return err
		}

		finalTier := existing.Tier
		if p.Tier != nil {
			finalTier = *p.Tier
		}
		if p.Content != nil && finalTier == models.MemoryTierLongTerm {
			return &InvalidArgumentError{Field: "content", Reason: "long-term memory entries do not support content updates"}
		}

		content := existing.Content
		hash := existing.ContentHash
		if p.Content != nil {
			content = *p.Content
			hash = ContentHash(content)
		}
		confidence := existing.Confidence
		if p.Confidence != nil {
			confidence = clampUnit(*p.Confidence)
		}
		relevance := existing.Relevance
		if p.Relevance != nil {
			relevance = clampUnit(*p.Relevance)
		}
		ttl := existing.TTLSeconds
		if p.ClearTTL {
			ttl = nil
		} else if p.TTLSeconds != nil {
			ttl = p.TTLSeconds
		}
		if finalTier == models.MemoryTierLongTerm {
			ttl = nil
		}

		_, err = tx.Exec(`
			UPDATE memory_entries
			SET content = ?, content_hash = ?, confidence = ?, relevance = ?, tier = ?, ttl_seconds = ?
			WHERE id = ?
		`, content, hash, confidence, relevance, finalTier, ttl, id)
		if err != nil {
			return fmt.Errorf("update memory entry: %w", err)
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

// ListMemoryEntries implements list_memory_entries: every optional filter
// dimension applies simultaneously (AND), matching spec.md §4.1.
func ListMemoryEntries(db *sql.DB, f models.MemoryFilter) ([]*models.MemoryEntry, error) {
	query := memoryEntrySelect + ` WHERE user_id = ?`
	args := []any{f.UserID}

	if f.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.FolderID != "" {
		query += ` AND folder_id = ?`
		args = append(args, f.FolderID)
	}
	if f.Tier != nil {
		query += ` AND tier = ?`
		args = append(args, *f.Tier)
	}
	if f.ContentType != nil {
		query += ` AND content_type = ?`
		args = append(args, *f.ContentType)
	}
	if f.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, f.TaskID)
	}
	if f.MinRelevance != nil {
		query += ` AND relevance >= ?`
		args = append(args, *f.MinRelevance)
	}
	if f.MinConfidence != nil {
		query += ` AND confidence >= ?`
		args = append(args, *f.MinConfidence)
	}
	if !f.IncludeExpired {
		now := time.Now().UTC()
		query += ` AND (ttl_seconds IS NULL OR datetime(last_accessed_at, '+' || ttl_seconds || ' seconds') >= ?)`
		args = append(args, now)
	}
	query += ` ORDER BY relevance DESC, last_accessed_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var out []*models.MemoryEntry
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(query, args...)
		if err != nil {
			return fmt.Errorf("query memory entries: %w", err)
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
				return fmt.Errorf("scan memory entry row: %w", err)
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

// CleanupExpiredMemory deletes every entry whose TTL clock (anchored at
// last_accessed_at) has elapsed, and returns the count removed.
func CleanupExpiredMemory(db *sql.DB, userID string) (int, error) {
	var deleted int
	err := Transact(db, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.Exec(`
			DELETE FROM memory_entries
			WHERE user_id = ? AND ttl_seconds IS NOT NULL
			AND datetime(last_accessed_at, '+' || ttl_seconds || ' seconds') < ?
		`, userID, now)
		if err != nil {
			return fmt.Errorf("cleanup expired memory: %w", err)
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

// GetMemoryStats implements get_memory_stats: the per-tier entry counts.
func GetMemoryStats(db *sql.DB, userID string) (*models.MemoryStats, error) {
	var stats models.MemoryStats
	err := RetryWithBackoff(context.Background(), func() error {
		rows, err := db.Query(`SELECT tier, COUNT(*) FROM memory_entries WHERE user_id = ? GROUP BY tier`, userID)
		if err != nil {
			return fmt.Errorf("query memory stats: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var tier string
			var count int
			if err := rows.Scan(&tier, &count); err != nil {
				return fmt.Errorf("scan memory stats row: %w", err)
			}
			switch models.MemoryTier(tier) {
			case models.MemoryTierShortTerm:
				stats.ShortTerm = count
			case models.MemoryTierWorking:
				stats.Working = count
			case models.MemoryTierLongTerm:
				stats.LongTerm = count
			}
			stats.Total += count
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteMemoryEntry removes a single memory entry by ID.
func DeleteMemoryEntry(db *sql.DB, id int64) error {
	return Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM memory_entries WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete memory entry: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{Entity: "memory_entry", ID: fmt.Sprint(id)}
		}
		return nil
	})
}

// ClearTaskMemory deletes every memory entry scoped to a task, mirroring
// hierarchical.rs's clear_task.
func ClearTaskMemory(db *sql.DB, userID, taskID string) (int, error) {
	var deleted int
	err := Transact(db, func(tx *sql.Tx) error {
		res, err := tx.Exec(`DELETE FROM memory_entries WHERE user_id = ? AND task_id = ?`, userID, taskID)
		if err != nil {
			return fmt.Errorf("clear task memory: %w", err)
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
