package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStoreTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCreateUser_GetUser(t *testing.T) {
	db := setupStoreTestDB(t)

	u, err := CreateUser(db, "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)

	fetched, err := GetUser(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", fetched.Email)
	assert.Equal(t, "Alice", fetched.Name)
}

func TestGetUser_NotFound(t *testing.T) {
	db := setupStoreTestDB(t)

	_, err := GetUser(db, "user_doesnotexist")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestDeleteUser_CascadesSessions(t *testing.T) {
	db := setupStoreTestDB(t)

	u, err := CreateUser(db, "Bob", "bob@example.com")
	require.NoError(t, err)

	s, err := CreateSession(db, CreateSessionParams{UserID: u.ID, TmuxSessionName: "tmux-1"})
	require.NoError(t, err)

	require.NoError(t, DeleteUser(db, u.ID))

	_, err = GetSession(db, s.ID)
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
