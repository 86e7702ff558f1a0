package monitoring

import (
	"database/sql"
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/insight"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMonitoringTestDB(t *testing.T) (*sql.DB, string, *models.Orchestrator) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	o, err := store.CreateOrchestrator(db, store.CreateOrchestratorParams{
		UserID: u.ID, Kind: models.OrchestratorKindMaster, StallThresholdSecs: 60,
	})
	require.NoError(t, err)
	return db, u.ID, o
}

func TestCheckForStalledSessions_ReportsStalledOnly(t *testing.T) {
	db, userID, orch := setupMonitoringTestDB(t)
	svc := NewService(db, insight.NewGenerator(db, nil), nil)

	sess, err := store.CreateSession(db, store.CreateSessionParams{
		UserID: userID, Name: "s1", TmuxSessionName: "tmux-s1",
	})
	require.NoError(t, err)
	old := time.Now().Add(-5 * time.Minute)
	_, err = db.Exec(`UPDATE sessions SET last_activity_at = ? WHERE id = ?`, old, sess.ID)
	require.NoError(t, err)

	result, err := svc.CheckForStalledSessions(orch.ID, userID)
	require.NoError(t, err)
	require.Len(t, result.StalledSessions, 1)
	assert.Equal(t, sess.ID, result.StalledSessions[0].Session.ID)
}

func TestCheckForStalledSessions_RejectsForeignOrchestrator(t *testing.T) {
	db, _, _ := setupMonitoringTestDB(t)
	svc := NewService(db, insight.NewGenerator(db, nil), nil)

	other, err := store.CreateUser(db, "Other", "other@example.com")
	require.NoError(t, err)
	otherOrch, err := store.CreateOrchestrator(db, store.CreateOrchestratorParams{
		UserID: other.ID, Kind: models.OrchestratorKindMaster,
	})
	require.NoError(t, err)

	mallory, err := store.CreateUser(db, "Mallory", "mallory@example.com")
	require.NoError(t, err)

	_, err = svc.CheckForStalledSessions(otherOrch.ID, mallory.ID)
	require.Error(t, err)
	var denied *store.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestStartStopStallChecking_RegistryLifecycle(t *testing.T) {
	db, userID, orch := setupMonitoringTestDB(t)
	svc := NewService(db, insight.NewGenerator(db, nil), nil)

	svc.StartStallChecking(orch.ID, userID, 20*time.Millisecond)
	assert.True(t, svc.IsStallCheckingActive(orch.ID))
	assert.Contains(t, svc.GetActiveStallChecks(), orch.ID)

	svc.StopStallChecking(orch.ID)
	assert.False(t, svc.IsStallCheckingActive(orch.ID))
}

func TestCaptureSessionScrollback_NoAdapterConfigured(t *testing.T) {
	db, _, _ := setupMonitoringTestDB(t)
	svc := NewService(db, insight.NewGenerator(db, nil), nil)

	_, err := svc.CaptureSessionScrollback("tmux-s1", 50)
	require.Error(t, err)
}
