package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	folders, err := store.ListFolders(s.db, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

type createFolderRequest struct {
	ParentID  string `json:"parent_id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	folder, err := store.CreateFolder(s.db, store.CreateFolderParams{
		UserID:    ac.UserID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Path:      req.Path,
		Color:     req.Color,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

// ownedFolder loads a folder and confirms it belongs to the requesting user.
func (s *Server) ownedFolder(r *http.Request, id string) (*models.Folder, error) {
	ac, _ := authContextFrom(r)
	folder, err := store.GetFolder(s.db, id)
	if err != nil {
		return nil, err
	}
	if folder.UserID != ac.UserID {
		return nil, &store.AccessDeniedError{Entity: "folder", ID: id}
	}
	return folder, nil
}

func (s *Server) getFolder(w http.ResponseWriter, r *http.Request) {
	folder, err := s.ownedFolder(r, chi.URLParam(r, "folderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, folder)
}

func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := store.DeleteFolder(s.db, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listChildFolders(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	id := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, id); err != nil {
		writeError(w, err)
		return
	}
	children, err := store.ListChildFolders(s.db, ac.UserID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

type reorderFoldersRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

func (s *Server) reorderFolders(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	var req reorderFoldersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := store.ReorderFolders(s.db, ac.UserID, req.OrderedIDs); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getFolderOrchestrator finds the single folder-scoped orchestrator for
// this folder, if one has been created. There is no dedicated by-scope
// query in internal/store; a folder's orchestrator is rare enough (at
// most one per folder, per spec.md §8) that scanning the user's
// orchestrator list is the simplest correct approach.
func (s *Server) getFolderOrchestrator(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	folderID := chi.URLParam(r, "folderID")
	if _, err := s.ownedFolder(r, folderID); err != nil {
		writeError(w, err)
		return
	}
	orchestrators, err := store.ListOrchestrators(s.db, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, o := range orchestrators {
		if o.ScopeType == "folder" && o.ScopeID == folderID {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeError(w, &store.NotFoundError{Entity: "orchestrator", ID: "folder:" + folderID})
}
