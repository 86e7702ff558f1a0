package consolidation

import (
	"database/sql"
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConsolidationTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	return db, u.ID
}

func TestRunCycle_PrunesIrrelevantEntries(t *testing.T) {
	db, userID := setupConsolidationTestDB(t)

	e, err := store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID: userID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation,
		Content: "irrelevant noise", Confidence: 0.1, Relevance: 0.05,
	})
	require.NoError(t, err)

	result := RunCycle(db, userID, DefaultConfig(), time.Now())
	assert.Equal(t, 1, result.IrrelevantPruned)
	assert.Empty(t, result.Errors)

	_, err = store.GetMemoryEntry(db, e.ID)
	require.Error(t, err)
}

func TestRunCycle_PromotesShortTermByAccessCount(t *testing.T) {
	db, userID := setupConsolidationTestDB(t)

	e, err := store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID: userID, Tier: models.MemoryTierShortTerm, ContentType: models.ContentTypeObservation,
		Content: "frequently touched", Confidence: 0.5, Relevance: 0.5,
	})
	require.NoError(t, err)
	for i := 0; i < shortTermPromoteAccessCount; i++ {
		_, err = store.TouchMemoryEntry(db, e.ID)
		require.NoError(t, err)
	}

	result := RunCycle(db, userID, Config{MinAge: 0, PromotionEnabled: true}, time.Now())
	assert.Equal(t, 1, result.Promoted)

	promoted, err := store.GetMemoryEntry(db, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierWorking, promoted.Tier)
}

func TestRunCycle_MergesSimilarEntries(t *testing.T) {
	db, userID := setupConsolidationTestDB(t)

	_, err := store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID: userID, Tier: models.MemoryTierWorking, ContentType: models.ContentTypeContext,
		Content: "run the build script", Confidence: 0.5, Relevance: 0.5,
	})
	require.NoError(t, err)
	_, err = store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID: userID, Tier: models.MemoryTierWorking, ContentType: models.ContentTypeContext,
		Content: "run the  build script", Confidence: 0.7, Relevance: 0.5,
	})
	require.NoError(t, err)

	result := RunCycle(db, userID, Config{MinAge: 0}, time.Now())
	assert.Equal(t, 1, result.Merged)

	tier := models.MemoryTierWorking
	remaining, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, Tier: &tier})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRunCycle_NeverDemotesHighConfidenceLongTerm(t *testing.T) {
	db, userID := setupConsolidationTestDB(t)

	e, err := store.StoreMemoryEntry(db, store.StoreMemoryParams{
		UserID: userID, Tier: models.MemoryTierLongTerm, ContentType: models.ContentTypePattern,
		Content: "stable knowledge", Confidence: 0.95, Relevance: 0.1,
	})
	require.NoError(t, err)
	old := time.Now().Add(-60 * 24 * time.Hour)
	_, execErr := db.Exec(`UPDATE memory_entries SET created_at = ? WHERE id = ?`, old, e.ID)
	require.NoError(t, execErr)

	result := RunCycle(db, userID, Config{MinAge: 0, DemotionEnabled: true}, time.Now())
	assert.Equal(t, 0, result.Demoted)

	unchanged, err := store.GetMemoryEntry(db, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierLongTerm, unchanged.Tier)
}
