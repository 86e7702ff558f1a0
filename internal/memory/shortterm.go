package memory

import (
	"database/sql"
	"errors"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// RememberOptions carries the optional fields accepted by Remember.
type RememberOptions struct {
	ContentType models.ContentType
	Name        string
	Confidence  float64
	TTLSeconds  *int64
	Metadata    []byte
}

// Remember stores an observation in short-term memory. Short-term entries
// carry a TTL (default 5 minutes, per spec) anchored at last_accessed_at;
// they are pruned once that clock elapses without a touch.
func Remember(db *sql.DB, userID, sessionID, folderID, content string, opts RememberOptions) (*models.MemoryEntry, error) {
	if content == "" {
		return nil, errors.New("content is required")
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = models.ContentTypeObservation
	}
	ttl := opts.TTLSeconds
	if ttl == nil {
		d := int64(defaultShortTermTTLSeconds)
		ttl = &d
	}
	return store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID:      userID,
		SessionID:   sessionID,
		FolderID:    folderID,
		Tier:        models.MemoryTierShortTerm,
		ContentType: contentType,
		Content:     content,
		Name:        opts.Name,
		Confidence:  opts.Confidence,
		TTLSeconds:  ttl,
		Metadata:    opts.Metadata,
	})
}

// Recent returns non-expired short-term entries for the scope, newest first.
func Recent(db *sql.DB, userID, sessionID, folderID string, limit int) ([]*models.MemoryEntry, error) {
	tier := models.MemoryTierShortTerm
	return store.ListMemoryEntries(db, models.MemoryFilter{
		UserID:    userID,
		SessionID: sessionID,
		FolderID:  folderID,
		Tier:      &tier,
		Limit:     limit,
	})
}

// Forget deletes a single memory entry regardless of tier.
func Forget(db *sql.DB, id int64) error {
	return store.DeleteMemoryEntry(db, id)
}

// Prune evicts every expired entry (any tier carrying a TTL) for a user.
func Prune(db *sql.DB, userID string) (int, error) {
	return store.CleanupExpiredMemory(db, userID)
}
