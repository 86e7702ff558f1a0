package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	sessions, err := store.ListSessions(s.db, ac.UserID, r.URL.Query().Get("folder_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

type createSessionRequest struct {
	Name            string `json:"name"`
	FolderID        string `json:"folder_id"`
	TmuxSessionName string `json:"tmux_session_name"`
	ProjectPath     string `json:"project_path"`
	WorktreeBranch  string `json:"worktree_branch"`
	AgentProvider   string `json:"agent_provider"`
	IsOrchestrator  bool   `json:"is_orchestrator"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := store.CreateSession(s.db, store.CreateSessionParams{
		UserID:          ac.UserID,
		FolderID:        req.FolderID,
		Name:            req.Name,
		TmuxSessionName: req.TmuxSessionName,
		ProjectPath:     req.ProjectPath,
		WorktreeBranch:  req.WorktreeBranch,
		AgentProvider:   req.AgentProvider,
		IsOrchestrator:  req.IsOrchestrator,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// ownedSession loads a session and confirms it belongs to the requesting
// user; a missing session surfaces as NotFound, another user's session as
// AccessDenied.
func (s *Server) ownedSession(r *http.Request, id string) (*models.Session, error) {
	ac, _ := authContextFrom(r)
	session, err := store.GetSession(s.db, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != ac.UserID {
		return nil, &store.AccessDeniedError{Entity: "session", ID: id}
	}
	return session, nil
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.ownedSession(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type updateSessionStatusRequest struct {
	Status models.SessionStatus `json:"status"`
}

func (s *Server) updateSessionStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if _, err := s.ownedSession(r, id); err != nil {
		writeError(w, err)
		return
	}
	var req updateSessionStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := store.SetSessionStatus(s.db, id, req.Status); err != nil {
		writeError(w, err)
		return
	}
	session, err := store.GetSession(s.db, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) getSessionScrollback(w http.ResponseWriter, r *http.Request) {
	session, err := s.ownedSession(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	lines := 200
	scrollback, err := s.monitoring.CaptureSessionScrollback(session.TmuxSessionName, lines)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"scrollback": scrollback})
}

type execSessionRequest struct {
	Command string `json:"command"`
}

func (s *Server) execSessionCommand(w http.ResponseWriter, r *http.Request) {
	session, err := s.ownedSession(r, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req execSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Command == "" {
		writeError(w, &store.InvalidArgumentError{Field: "command", Reason: "must not be empty"})
		return
	}
	if err := s.terminal.SendKeys(session.TmuxSessionName, req.Command, true); err != nil {
		writeError(w, &store.TerminalError{Detail: err.Error()})
		return
	}
	if err := store.TouchSessionActivity(s.db, session.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}
