package store

import (
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMemoryEntry_ContentHashRoundTrip(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	e, err := StoreMemoryEntry(db, StoreMemoryParams{
		UserID: u.ID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation,
		Content: "git status",
	})
	require.NoError(t, err)
	assert.Equal(t, ContentHash("git status"), e.ContentHash)
	assert.Zero(t, e.AccessCount)

	fetched, err := GetMemoryEntry(db, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ContentHash, fetched.ContentHash)
}

func TestStoreMemoryEntry_RejectsTTLOnLongTerm(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	ttl := int64(60)
	_, err := StoreMemoryEntry(db, StoreMemoryParams{
		UserID: u.ID, Tier: models.MemoryTierLongTerm, ContentType: models.ContentTypePattern,
		Content: "x", TTLSeconds: &ttl,
	})
	require.Error(t, err)
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestTouchMemoryEntry_MonotonicAccessCount(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	e, err := StoreMemoryEntry(db, StoreMemoryParams{
		UserID: u.ID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation, Content: "x",
	})
	require.NoError(t, err)

	var last *models.MemoryEntry
	for i := 0; i < 3; i++ {
		last, err = TouchMemoryEntry(db, e.ID)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, last.AccessCount, int64(3))
	assert.False(t, last.LastAccessedAt.Before(e.LastAccessedAt))
}

func TestUpdateMemoryEntry_RejectsContentUpdateOnLongTerm(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	e, err := StoreMemoryEntry(db, StoreMemoryParams{
		UserID: u.ID, Tier: models.MemoryTierLongTerm, ContentType: models.ContentTypePattern, Content: "original",
	})
	require.NoError(t, err)

	newContent := "changed"
	_, err = UpdateMemoryEntry(db, e.ID, UpdateMemoryEntryParams{Content: &newContent})
	require.Error(t, err)
	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestCleanupExpiredMemory(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	ttl := int64(1)
	e, err := StoreMemoryEntry(db, StoreMemoryParams{
		UserID: u.ID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation,
		Content: "expires soon", TTLSeconds: &ttl,
	})
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE memory_entries SET last_accessed_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Hour), e.ID)
	require.NoError(t, err)

	deleted, err := CleanupExpiredMemory(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = GetMemoryEntry(db, e.ID)
	require.Error(t, err)
}

func TestGetMemoryStats(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)

	_, err := StoreMemoryEntry(db, StoreMemoryParams{UserID: u.ID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation, Content: "a"})
	require.NoError(t, err)
	_, err = StoreMemoryEntry(db, StoreMemoryParams{UserID: u.ID, Tier: models.MemoryTierWorking, ContentType: models.ContentTypeContext, Content: "b"})
	require.NoError(t, err)
	_, err = StoreMemoryEntry(db, StoreMemoryParams{UserID: u.ID, Tier: models.MemoryTierLongTerm, ContentType: models.ContentTypePattern, Content: "c"})
	require.NoError(t, err)

	stats, err := GetMemoryStats(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.ShortTerm)
	assert.Equal(t, 1, stats.Working)
	assert.Equal(t, 1, stats.LongTerm)
}
