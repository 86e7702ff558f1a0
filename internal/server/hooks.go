package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/hooks"
	"github.com/remotedev/rdv/internal/store"
)

// listFolderHooks reports which hook scripts are installed on disk for a
// folder's project path — a read-only diagnostic, not a management API.
func (s *Server) listFolderHooks(w http.ResponseWriter, r *http.Request) {
	folder, err := s.ownedFolder(r, chi.URLParam(r, "folderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if folder.Path == "" {
		writeError(w, &store.InvalidArgumentError{Field: "folder.path", Reason: "folder has no project path to inspect"})
		return
	}
	manifest, err := hooks.Load(folder.Path)
	if err != nil {
		writeError(w, &store.OtherError{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, manifest.Hooks)
}
