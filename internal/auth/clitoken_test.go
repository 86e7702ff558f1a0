package auth

import (
	"database/sql"
	"testing"

	"github.com/remotedev/rdv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	u, err := store.CreateUser(db, "Tester", "tester@example.com")
	require.NoError(t, err)
	return db, u.ID
}

func TestMintCLIToken_DefaultsNameWhenBlank(t *testing.T) {
	db, userID := setupAuthTestDB(t)

	minted, err := MintCLIToken(db, userID, "   ")
	require.NoError(t, err)
	assert.Equal(t, "unnamed token", minted.Token.Name)
	assert.Contains(t, minted.Plaintext, "rdv_")
}

func TestAuthenticateCLIToken_RoundTrip(t *testing.T) {
	db, userID := setupAuthTestDB(t)

	minted, err := MintCLIToken(db, userID, "laptop")
	require.NoError(t, err)

	authed, err := AuthenticateCLIToken(db, minted.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, userID, authed.UserID)
	assert.NotNil(t, authed.LastUsedAt)
}

func TestAuthenticateCLIToken_RejectsMissingPrefix(t *testing.T) {
	db, _ := setupAuthTestDB(t)

	_, err := AuthenticateCLIToken(db, "not-a-real-token")
	assert.Error(t, err)
}

func TestAuthenticateCLIToken_RejectsRevoked(t *testing.T) {
	db, userID := setupAuthTestDB(t)

	minted, err := MintCLIToken(db, userID, "laptop")
	require.NoError(t, err)
	require.NoError(t, RevokeCLIToken(db, minted.Token.ID))

	_, err = AuthenticateCLIToken(db, minted.Plaintext)
	assert.Error(t, err)
}

func TestListCLITokens_ReturnsAllForUser(t *testing.T) {
	db, userID := setupAuthTestDB(t)

	_, err := MintCLIToken(db, userID, "laptop")
	require.NoError(t, err)
	_, err = MintCLIToken(db, userID, "desktop")
	require.NoError(t, err)

	tokens, err := ListCLITokens(db, userID)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}

func TestAuthContext_IsService(t *testing.T) {
	service := AuthContext{UserID: "u1"}
	cli := AuthContext{UserID: "u1", TokenID: "tok_1"}

	assert.True(t, service.IsService())
	assert.False(t, cli.IsService())
}
