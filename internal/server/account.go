package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/auth"
	"github.com/remotedev/rdv/internal/store"
)

func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	user, err := store.GetUser(s.db, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) listTokens(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	tokens, err := auth.ListCLITokens(s.db, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type createTokenRequest struct {
	Name string `json:"name"`
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	minted, err := auth.MintCLIToken(s.db, ac.UserID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	// The plaintext is returned exactly once, at mint time; the envelope's
	// Data field carries both the persisted (hashed) record and the secret.
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":     minted.Token,
		"plaintext": minted.Plaintext,
	})
}

// ownedToken confirms tokenID belongs to the requesting user before any
// mutation, the same pattern every other owned* helper in this package
// follows.
func (s *Server) ownedToken(r *http.Request, tokenID string) error {
	ac, _ := authContextFrom(r)
	tokens, err := auth.ListCLITokens(s.db, ac.UserID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.ID == tokenID {
			return nil
		}
	}
	return &store.AccessDeniedError{Entity: "cli_token", ID: tokenID}
}

func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "tokenID")
	if err := s.ownedToken(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := auth.RevokeCLIToken(s.db, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
