package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateServiceToken_ProducesDistinctTokens(t *testing.T) {
	t1, err := GenerateServiceToken()
	require.NoError(t, err)
	t2, err := GenerateServiceToken()
	require.NoError(t, err)

	assert.NotEqual(t, t1.Token, t2.Token)
	assert.NotEqual(t, t1.TokenID, t2.TokenID)
	assert.Len(t, t1.Token, 32)
}

func TestServiceToken_Verify(t *testing.T) {
	token, err := GenerateServiceToken()
	require.NoError(t, err)

	assert.True(t, token.Verify(token.Token))
	assert.False(t, token.Verify(make([]byte, 32)))
	assert.False(t, token.Verify(nil))
}

func TestServiceToken_FileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service-token")

	original, err := GenerateServiceToken()
	require.NoError(t, err)
	require.NoError(t, original.WriteToFile(path))

	loaded, err := ReadServiceTokenFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.Token, loaded.Token)
}

func TestServiceToken_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service-token")

	token, err := GenerateServiceToken()
	require.NoError(t, err)
	require.NoError(t, token.WriteToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestReadServiceTokenFile_RejectsWrongLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service-token")
	require.NoError(t, os.WriteFile(path, []byte("dG9vc2hvcnQ="), 0o600))

	_, err := ReadServiceTokenFile(path)
	assert.Error(t, err)
}
