package memory

import (
	"database/sql"
	"errors"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// HoldOptions carries the optional fields accepted by Hold.
type HoldOptions struct {
	ContentType models.ContentType
	TaskID      string
	Priority    int
	Confidence  float64
	Relevance   float64
	Metadata    []byte
}

// Hold stores current task context in working memory: active files,
// hypotheses, in-progress plans. Working entries carry no TTL of their own;
// Refresh keeps one alive, Release lets it decay back to short-term.
func Hold(db *sql.DB, userID, sessionID, folderID, content string, opts HoldOptions) (*models.MemoryEntry, error) {
	if content == "" {
		return nil, errors.New("content is required")
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = models.ContentTypeContext
	}
	return store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID:      userID,
		SessionID:   sessionID,
		FolderID:    folderID,
		Tier:        models.MemoryTierWorking,
		ContentType: contentType,
		Content:     content,
		TaskID:      opts.TaskID,
		Priority:    opts.Priority,
		Confidence:  opts.Confidence,
		Relevance:   opts.Relevance,
	})
}

// Release demotes a working entry back to short-term, letting it expire on
// the default short-term TTL rather than staying pinned as active context.
func Release(db *sql.DB, id int64) (*models.MemoryEntry, error) {
	shortTerm := models.MemoryTierShortTerm
	ttl := int64(defaultShortTermTTLSeconds)
	return store.UpdateMemoryEntry(db, id, store.UpdateMemoryEntryParams{
		Tier:       &shortTerm,
		TTLSeconds: &ttl,
	})
}

// Consolidate promotes a single working entry straight to long-term,
// clearing its TTL. Distinct from the consolidation engine's batched sweep:
// this is the explicit, caller-requested promotion of one entry.
func Consolidate(db *sql.DB, id int64) (*models.MemoryEntry, error) {
	longTerm := models.MemoryTierLongTerm
	return store.UpdateMemoryEntry(db, id, store.UpdateMemoryEntryParams{
		Tier:     &longTerm,
		ClearTTL: true,
	})
}

// Active returns working entries for the scope, optionally narrowed to a task.
func Active(db *sql.DB, userID, sessionID, folderID, taskID string) ([]*models.MemoryEntry, error) {
	tier := models.MemoryTierWorking
	return store.ListMemoryEntries(db, models.MemoryFilter{
		UserID:    userID,
		SessionID: sessionID,
		FolderID:  folderID,
		Tier:      &tier,
		TaskID:    taskID,
	})
}

// Refresh touches a working entry, advancing its access clock so anything
// keyed off last_accessed_at (TTL, recency ordering) treats it as live.
func Refresh(db *sql.DB, id int64) (*models.MemoryEntry, error) {
	return store.TouchMemoryEntry(db, id)
}
