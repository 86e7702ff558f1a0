package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/memory"
	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

// getFolderKnowledge returns every long-term memory entry recorded for a
// folder — the typed façade spec.md §6 calls for, rather than exposing
// internal/memory's tier-spanning query surface directly.
func (s *Server) getFolderKnowledge(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, folderID); err != nil {
		writeError(w, err)
		return
	}

	var contentType *models.ContentType
	if raw := r.URL.Query().Get("content_type"); raw != "" {
		ct := models.ContentType(raw)
		contentType = &ct
	}
	entries, err := memory.Knowledge(s.db, ac.UserID, folderID, contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type patchFolderKnowledgeRequest struct {
	Content     string             `json:"content"`
	ContentType models.ContentType `json:"content_type"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Confidence  float64            `json:"confidence"`
}

// patchFolderKnowledge adds one piece of long-term knowledge. The facade
// name is "patch" because it's additive, not a full-resource replace —
// Open Question decisions in DESIGN.md rule out long-term update-in-place.
func (s *Server) patchFolderKnowledge(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, folderID); err != nil {
		writeError(w, err)
		return
	}
	var req patchFolderKnowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ContentType == "" {
		req.ContentType = models.ContentTypeDocumentation
	}
	entry, err := memory.Learn(s.db, ac.UserID, folderID, req.Content, req.ContentType, memory.LearnOptions{
		Name:        req.Name,
		Description: req.Description,
		Confidence:  req.Confidence,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// deleteFolderKnowledge removes one long-term entry, addressed by the
// `entry_id` query parameter (the resource itself is a collection; the
// path has no sub-id slot per spec.md §6's stable contract).
func (s *Server) deleteFolderKnowledge(w http.ResponseWriter, r *http.Request) {
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, folderID); err != nil {
		writeError(w, err)
		return
	}
	entryID, err := strconv.ParseInt(r.URL.Query().Get("entry_id"), 10, 64)
	if err != nil {
		writeError(w, &store.InvalidArgumentError{Field: "entry_id", Reason: "must be a valid memory entry id"})
		return
	}
	entry, err := store.GetMemoryEntry(s.db, entryID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry.FolderID != folderID {
		writeError(w, &store.AccessDeniedError{Entity: "memory_entry", ID: r.URL.Query().Get("entry_id")})
		return
	}
	if err := memory.Unlearn(s.db, entryID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
