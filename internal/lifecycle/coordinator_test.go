package lifecycle

import (
	"database/sql"
	"testing"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLifecycleTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	return db, u.ID
}

func TestOnSessionStart_LoadsAcrossAllThreeTiers(t *testing.T) {
	db, userID := setupLifecycleTestDB(t)
	c := NewCoordinator(db, nil)

	_, err := c.LearnPattern(userID, "folder_1", "use conventional commits", "commit-style")
	require.NoError(t, err)
	_, err = c.HoldContext(userID, "sess_1", "folder_1", "investigating flaky test", "")
	require.NoError(t, err)
	_, err = c.CaptureObservation(userID, "sess_1", "folder_1", "ran the test suite", "")
	require.NoError(t, err)

	result, err := c.OnSessionStart("sess_1", userID, "folder_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.LongTerm)
	assert.Equal(t, 1, result.Stats.Working)
	assert.Equal(t, 1, result.Stats.ShortTerm)
	assert.Len(t, result.Memories, 3)
}

func TestCaptureError_DefaultsToErrorContentType(t *testing.T) {
	db, userID := setupLifecycleTestDB(t)
	c := NewCoordinator(db, nil)

	e, err := c.CaptureError(userID, "sess_1", "", "panic: index out of range")
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeError, e.ContentType)
	assert.Equal(t, models.MemoryTierShortTerm, e.Tier)
}

func TestOnSessionEnd_RunsMaintenance(t *testing.T) {
	db, userID := setupLifecycleTestDB(t)
	c := NewCoordinator(db, nil)

	_, err := c.CaptureObservation(userID, "sess_1", "", "first observation", "")
	require.NoError(t, err)

	result := c.OnSessionEnd(userID)
	assert.Empty(t, result.Errors)
}

func TestConsolidateAndReleaseMemory_RoundTrip(t *testing.T) {
	db, userID := setupLifecycleTestDB(t)
	c := NewCoordinator(db, nil)

	held, err := c.HoldContext(userID, "sess_1", "", "active hypothesis", "")
	require.NoError(t, err)

	require.NoError(t, c.ConsolidateMemory(held.ID))
	entry, err := store.GetMemoryEntry(db, held.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryTierLongTerm, entry.Tier)
}
