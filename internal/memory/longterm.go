package memory

import (
	"database/sql"
	"errors"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// LearnOptions carries the optional fields accepted by Learn.
type LearnOptions struct {
	Name        string
	Description string
	Confidence  float64
	Metadata    []byte
}

// Learn records project knowledge in long-term memory. Session is always
// empty: long-term knowledge belongs to a user/folder, not a terminal.
func Learn(db *sql.DB, userID, folderID, content string, contentType models.ContentType, opts LearnOptions) (*models.MemoryEntry, error) {
	if content == "" {
		return nil, errors.New("content is required")
	}
	return store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID:      userID,
		FolderID:    folderID,
		Tier:        models.MemoryTierLongTerm,
		ContentType: contentType,
		Content:     content,
		Name:        opts.Name,
		Description: opts.Description,
		Confidence:  opts.Confidence,
		Relevance:   1,
		Metadata:    opts.Metadata,
	})
}

// Recall returns long-term entries for the scope, ranked by an optional
// Embedder when provided, or by recency otherwise — the fallback spec.md §8
// relies on for every scenario that does not exercise semantic similarity.
func Recall(db *sql.DB, embedder Embedder, userID, folderID, query string, limit int) ([]*models.MemoryEntry, error) {
	tier := models.MemoryTierLongTerm
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{
		UserID:   userID,
		FolderID: folderID,
		Tier:     &tier,
		Limit:    0, // rank/truncate below so the embedder sees the full candidate set
	})
	if err != nil {
		return nil, err
	}
	if embedder != nil && query != "" {
		return embedder.Rank(query, entries, limit), nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Unlearn deletes a long-term entry.
func Unlearn(db *sql.DB, id int64) error {
	return store.DeleteMemoryEntry(db, id)
}

// Knowledge returns every long-term entry for the scope, optionally filtered
// to a single content type.
func Knowledge(db *sql.DB, userID, folderID string, contentType *models.ContentType) ([]*models.MemoryEntry, error) {
	tier := models.MemoryTierLongTerm
	return store.ListMemoryEntries(db, models.MemoryFilter{
		UserID:      userID,
		FolderID:    folderID,
		Tier:        &tier,
		ContentType: contentType,
	})
}
