package store

import (
	"database/sql"
	"testing"
	"time"

	"github.com/remotedev/rdv/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	u, err := CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	return u
}

func TestSetSessionStatus_LegalAndIllegalTransitions(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)
	s, err := CreateSession(db, CreateSessionParams{UserID: u.ID, TmuxSessionName: "tmux-a"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusActive, s.Status)

	require.NoError(t, SetSessionStatus(db, s.ID, models.SessionStatusSuspended))
	require.NoError(t, SetSessionStatus(db, s.ID, models.SessionStatusActive))
	require.NoError(t, SetSessionStatus(db, s.ID, models.SessionStatusClosed))

	err = SetSessionStatus(db, s.ID, models.SessionStatusActive)
	require.Error(t, err)
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestGetStalledSessions_StrictBoundary(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)
	s, err := CreateSession(db, CreateSessionParams{UserID: u.ID, TmuxSessionName: "tmux-b"})
	require.NoError(t, err)

	now := time.Now().UTC()
	threshold := 10

	// Exactly at the boundary (now - threshold): not stalled.
	_, err = db.Exec(`UPDATE sessions SET last_activity_at = ? WHERE id = ?`,
		now.Add(-time.Duration(threshold)*time.Second), s.ID)
	require.NoError(t, err)
	stalled, err := GetStalledSessions(db, u.ID, "", threshold, now)
	require.NoError(t, err)
	assert.Empty(t, stalled)

	// Just past the boundary: stalled.
	_, err = db.Exec(`UPDATE sessions SET last_activity_at = ? WHERE id = ?`,
		now.Add(-time.Duration(threshold)*time.Second-time.Millisecond), s.ID)
	require.NoError(t, err)
	stalled, err = GetStalledSessions(db, u.ID, "", threshold, now)
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, s.ID, stalled[0].Session.ID)
}

func TestGetStalledSessions_NullLastActivityFallsBackToCreatedAt(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)
	s, err := CreateSession(db, CreateSessionParams{UserID: u.ID, TmuxSessionName: "tmux-never-active"})
	require.NoError(t, err)

	now := time.Now().UTC()
	threshold := 10

	// Never reported activity, but created recently: not stalled.
	_, err = db.Exec(`UPDATE sessions SET last_activity_at = NULL, created_at = ? WHERE id = ?`,
		now.Add(-time.Duration(threshold)*time.Second+time.Second), s.ID)
	require.NoError(t, err)
	stalled, err := GetStalledSessions(db, u.ID, "", threshold, now)
	require.NoError(t, err)
	assert.Empty(t, stalled)

	// Never reported activity, created well before the threshold: stalled.
	_, err = db.Exec(`UPDATE sessions SET last_activity_at = NULL, created_at = ? WHERE id = ?`,
		now.Add(-time.Duration(threshold)*time.Second-time.Minute), s.ID)
	require.NoError(t, err)
	stalled, err = GetStalledSessions(db, u.ID, "", threshold, now)
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, s.ID, stalled[0].Session.ID)
	assert.Nil(t, stalled[0].Session.LastActivityAt)
	assert.True(t, stalled[0].StalledMinutes > 0)
}

func TestTouchSessionActivity(t *testing.T) {
	db := setupStoreTestDB(t)
	u := mustUser(t, db)
	s, err := CreateSession(db, CreateSessionParams{UserID: u.ID, TmuxSessionName: "tmux-c"})
	require.NoError(t, err)

	require.NoError(t, TouchSessionActivity(db, s.ID))
	updated, err := GetSession(db, s.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastActivityAt)
}
