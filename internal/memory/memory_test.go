package memory

import (
	"database/sql"
	"testing"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMemoryTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	return db, u.ID
}

func TestRemember_DefaultsToShortTermWithTTL(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	e, err := Remember(db, userID, "sess_1", "", "git status", RememberOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierShortTerm, e.Tier)
	require.NotNil(t, e.TTLSeconds)
	assert.EqualValues(t, defaultShortTermTTLSeconds, *e.TTLSeconds)
}

func TestRecent_ReturnsNewestFirst(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	_, err := Remember(db, userID, "sess_1", "", "first", RememberOptions{})
	require.NoError(t, err)
	_, err = Remember(db, userID, "sess_1", "", "second", RememberOptions{})
	require.NoError(t, err)

	entries, err := Recent(db, userID, "sess_1", "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestHold_Release_Consolidate(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	held, err := Hold(db, userID, "sess_1", "", "working on auth", HoldOptions{TaskID: "task-1", Priority: 10})
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierWorking, held.Tier)
	assert.Equal(t, "task-1", held.TaskID)

	released, err := Release(db, held.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierShortTerm, released.Tier)
	require.NotNil(t, released.TTLSeconds)

	consolidated, err := Consolidate(db, held.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierLongTerm, consolidated.Tier)
	assert.Nil(t, consolidated.TTLSeconds)
}

func TestLearn_SessionAlwaysEmpty(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	e, err := Learn(db, userID, "folder_1", "always use async/await", models.ContentTypePattern, LearnOptions{
		Name: "async convention", Confidence: 0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierLongTerm, e.Tier)
	assert.Empty(t, e.SessionID)
}

func TestAutoPromote_PromotesAtThreshold(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	e, err := Remember(db, userID, "sess_1", "", "x", RememberOptions{})
	require.NoError(t, err)
	for i := 0; i < autoPromoteAccessCount; i++ {
		_, err = store.TouchMemoryEntry(db, e.ID)
		require.NoError(t, err)
	}

	promoted, err := AutoPromote(db, userID)
	require.NoError(t, err)
	assert.Contains(t, promoted, e.ID)

	updated, err := store.GetMemoryEntry(db, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierWorking, updated.Tier)
}

func TestMaintain_IsolatesStepErrors(t *testing.T) {
	db, userID := setupMemoryTestDB(t)

	_, err := Remember(db, userID, "sess_1", "", "x", RememberOptions{})
	require.NoError(t, err)

	result := Maintain(db, userID)
	assert.Empty(t, result.Errors)
}
