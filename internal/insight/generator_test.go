package insight

import (
	"database/sql"
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInsightTestDB(t *testing.T) (*sql.DB, string, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	o, err := store.CreateOrchestrator(db, store.CreateOrchestratorParams{
		UserID: u.ID, Kind: models.OrchestratorKindMaster,
	})
	require.NoError(t, err)
	return db, u.ID, o.ID
}

func TestGenerateStallInsight_SeverityScalesWithDuration(t *testing.T) {
	db, userID, orchestratorID := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	i, err := g.GenerateStallInsight(orchestratorID, userID, "sess_1", "", 700*time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.InsightSeverityCritical, i.Severity)
	assert.Equal(t, models.InsightTypeStall, i.Type)
	assert.False(t, i.Resolved)

	tier := models.MemoryTierShortTerm
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, Tier: &tier})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "stall-insight-"+i.ID[:8], entries[0].Name)
	assert.Equal(t, i.Confidence, entries[0].Confidence)
}

func TestGenerateStallInsight_DuplicateUnresolvedConflicts(t *testing.T) {
	db, userID, orchestratorID := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	_, err := g.GenerateStallInsight(orchestratorID, userID, "sess_1", "", 200*time.Second)
	require.NoError(t, err)

	_, err = g.GenerateStallInsight(orchestratorID, userID, "sess_1", "", 200*time.Second)
	require.Error(t, err)
	var conflict *store.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGenerateErrorInsight_RecordsErrorInMemory(t *testing.T) {
	db, userID, orchestratorID := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	i, err := g.GenerateErrorInsight(orchestratorID, userID, "sess_1", "", "panic: nil pointer dereference")
	require.NoError(t, err)
	assert.Equal(t, models.InsightTypeError, i.Type)
	assert.Equal(t, models.InsightSeverityError, i.Severity)

	tier := models.MemoryTierShortTerm
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, Tier: &tier})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ContentTypeError, entries[0].ContentType)
	assert.Equal(t, 0.9, entries[0].Confidence)
}

func TestGeneratePatternInsight_LearnsLongTermKnowledge(t *testing.T) {
	db, userID, orchestratorID := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	i, err := g.GeneratePatternInsight(orchestratorID, userID, "folder_1", "always run gofmt before commit", 0.85)
	require.NoError(t, err)
	assert.Equal(t, models.InsightTypePattern, i.Type)
	assert.Equal(t, 0.85, i.Confidence)

	tier := models.MemoryTierLongTerm
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, FolderID: "folder_1", Tier: &tier})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ContentTypePattern, entries[0].ContentType)
}

func TestRecordActionOutcome_SuccessGoesToWorkingMemory(t *testing.T) {
	db, userID, _ := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	require.NoError(t, g.RecordActionOutcome(userID, "sess_1", "", "restart the session", true))

	tier := models.MemoryTierWorking
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, Tier: &tier})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "SUCCESS:")
	assert.Equal(t, 0.9, entries[0].Confidence)
	assert.Equal(t, 0.8, entries[0].Relevance)
}

func TestRecordActionOutcome_FailureGoesToShortTermMemory(t *testing.T) {
	db, userID, orchestratorID := setupInsightTestDB(t)
	g := NewGenerator(db, nil)

	require.NoError(t, g.RecordActionOutcome(userID, "sess_1", "", "restart the session", false))

	tier := models.MemoryTierShortTerm
	entries, err := store.ListMemoryEntries(db, models.MemoryFilter{UserID: userID, Tier: &tier})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Content, "FAILED:")
	assert.Equal(t, 0.5, entries[0].Confidence)

	i, err := g.GenerateErrorInsight(orchestratorID, userID, "sess_1", "", "still stuck after restart")
	require.NoError(t, err)
	assert.Equal(t, models.InsightTypeError, i.Type)
}
