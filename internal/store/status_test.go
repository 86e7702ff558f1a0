package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStatusCounts_SingleAtomicQuery(t *testing.T) {
	db := setupStoreTestDB(t)

	user, err := GetOrCreateLocalUser(db)
	require.NoError(t, err)

	// Empty DB should return all zeros
	counts, err := GetStatusCounts(db)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Sessions.Active)
	assert.Equal(t, 0, counts.Sessions.Suspended)
	assert.Equal(t, 0, counts.Sessions.Closed)
	assert.Equal(t, 0, counts.Folders)
	assert.Equal(t, 0, counts.Orchestrators)
	assert.Equal(t, 0, counts.UnresolvedInsights)

	folder, err := CreateFolder(db, CreateFolderParams{UserID: user.ID, Name: "work"})
	require.NoError(t, err)

	session1, err := CreateSession(db, CreateSessionParams{
		UserID: user.ID, FolderID: folder.ID, Name: "s1", TmuxSessionName: "tmux-1",
	})
	require.NoError(t, err)

	session2, err := CreateSession(db, CreateSessionParams{
		UserID: user.ID, FolderID: folder.ID, Name: "s2", TmuxSessionName: "tmux-2",
	})
	require.NoError(t, err)
	require.NoError(t, SetSessionStatus(db, session2.ID, "suspended"))

	orch, err := CreateOrchestrator(db, CreateOrchestratorParams{
		UserID: user.ID, Kind: "folder", ScopeType: "folder", ScopeID: folder.ID,
	})
	require.NoError(t, err)

	_, err = StoreMemoryEntry(db, StoreMemoryParams{
		UserID: user.ID, Tier: "short_term", ContentType: "fact", Content: "hello",
	})
	require.NoError(t, err)

	insight, err := CreateInsight(db, CreateInsightParams{
		OrchestratorID: orch.ID, SessionID: session1.ID, Type: "stall", Severity: "warning",
		Title: "stalled", Description: "session appears stuck",
	})
	require.NoError(t, err)
	require.NotEmpty(t, insight.ID)

	counts, err = GetStatusCounts(db)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Sessions.Active)
	assert.Equal(t, 1, counts.Sessions.Suspended)
	assert.Equal(t, 0, counts.Sessions.Closed)
	assert.Equal(t, 1, counts.Folders)
	assert.Equal(t, 1, counts.Orchestrators)
	assert.Equal(t, 1, counts.Memory.ShortTerm)
	assert.Equal(t, 0, counts.Memory.Working)
	assert.Equal(t, 0, counts.Memory.LongTerm)
	assert.Equal(t, 1, counts.UnresolvedInsights)
}
