package server

import (
	"bytes"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remotedev/rdv/internal/auth"
	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/store"
)

func setupServerTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := store.InitDBWithPath(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestServer(t *testing.T) (*Server, *auth.ServiceToken) {
	t.Helper()
	db := setupServerTestDB(t)
	tokenPath := filepath.Join(t.TempDir(), "service-token")
	tok, err := auth.GenerateServiceToken()
	require.NoError(t, err)
	require.NoError(t, tok.WriteToFile(tokenPath))

	s := New(Config{ServiceTokenPath: tokenPath}, db, memory.LevenshteinEmbedder{}, nil)
	return s, tok
}

func bearerFor(tok *auth.ServiceToken) string {
	return "Bearer " + base64.StdEncoding.EncodeToString(tok.Token)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRoutes_RejectMissingAuth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCreateAndGet_RoundTrip(t *testing.T) {
	s, tok := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"name":              "task-1",
		"tmux_session_name": "rdv-task-foo-abcd1234",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerFor(tok))
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	getReq := httptest.NewRequest(http.MethodGet, "/api/sessions/"+created.Data.ID, nil)
	getReq.Header.Set("Authorization", bearerFor(tok))
	getW := httptest.NewRecorder()
	s.Router().ServeHTTP(getW, getReq)
	assert.Equal(t, http.StatusOK, getW.Code)
}

func TestFolderKnowledge_PatchAndGet(t *testing.T) {
	s, tok := newTestServer(t)

	folderBody, _ := json.Marshal(map[string]string{"name": "my-project"})
	folderReq := httptest.NewRequest(http.MethodPost, "/api/folders", bytes.NewReader(folderBody))
	folderReq.Header.Set("Authorization", bearerFor(tok))
	folderW := httptest.NewRecorder()
	s.Router().ServeHTTP(folderW, folderReq)
	require.Equal(t, http.StatusCreated, folderW.Code)

	var folder struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(folderW.Body.Bytes(), &folder))

	patchBody, _ := json.Marshal(map[string]string{
		"content":      "this repo uses conventional commits",
		"content_type": "pattern",
	})
	patchReq := httptest.NewRequest(http.MethodPatch, "/api/folders/"+folder.Data.ID+"/knowledge", bytes.NewReader(patchBody))
	patchReq.Header.Set("Authorization", bearerFor(tok))
	patchW := httptest.NewRecorder()
	s.Router().ServeHTTP(patchW, patchReq)
	require.Equal(t, http.StatusCreated, patchW.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/folders/"+folder.Data.ID+"/knowledge", nil)
	getReq.Header.Set("Authorization", bearerFor(tok))
	getW := httptest.NewRecorder()
	s.Router().ServeHTTP(getW, getReq)
	require.Equal(t, http.StatusOK, getW.Code)

	var got struct {
		Data []struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &got))
	require.Len(t, got.Data, 1)
	assert.Equal(t, "this repo uses conventional commits", got.Data[0].Content)
}
