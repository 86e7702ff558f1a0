package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remotedev/rdv/internal/models"
	"github.com/remotedev/rdv/internal/store"
)

func (s *Server) listOrchestrators(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	orchestrators, err := store.ListOrchestrators(s.db, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orchestrators)
}

type createOrchestratorRequest struct {
	Kind                   models.OrchestratorKind `json:"kind"`
	ScopeType              string                  `json:"scope_type"`
	ScopeID                string                  `json:"scope_id"`
	SessionID              string                  `json:"session_id"`
	CustomInstructions     string                  `json:"custom_instructions"`
	MonitoringIntervalSecs int                     `json:"monitoring_interval_secs"`
	StallThresholdSecs     int                     `json:"stall_threshold_secs"`
	AutoIntervention       bool                    `json:"auto_intervention"`
}

func (s *Server) createOrchestrator(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	var req createOrchestratorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	orch, err := store.CreateOrchestrator(s.db, store.CreateOrchestratorParams{
		UserID:                 ac.UserID,
		Kind:                   req.Kind,
		ScopeType:              req.ScopeType,
		ScopeID:                req.ScopeID,
		SessionID:              req.SessionID,
		CustomInstructions:     req.CustomInstructions,
		MonitoringIntervalSecs: req.MonitoringIntervalSecs,
		StallThresholdSecs:     req.StallThresholdSecs,
		AutoIntervention:       req.AutoIntervention,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orch)
}

// ownedOrchestrator loads an orchestrator and confirms it belongs to the
// requesting user.
func (s *Server) ownedOrchestrator(r *http.Request, id string) (*models.Orchestrator, error) {
	ac, _ := authContextFrom(r)
	orch, err := store.GetOrchestrator(s.db, id)
	if err != nil {
		return nil, err
	}
	if orch.UserID != ac.UserID {
		return nil, &store.AccessDeniedError{Entity: "orchestrator", ID: id}
	}
	return orch, nil
}

func (s *Server) getOrchestrator(w http.ResponseWriter, r *http.Request) {
	orch, err := s.ownedOrchestrator(r, chi.URLParam(r, "orchestratorID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orch)
}

type updateOrchestratorRequest struct {
	CustomInstructions *string                    `json:"custom_instructions"`
	Status             *models.OrchestratorStatus `json:"status"`
}

func (s *Server) updateOrchestrator(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orchestratorID")
	if _, err := s.ownedOrchestrator(r, id); err != nil {
		writeError(w, err)
		return
	}
	var req updateOrchestratorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.CustomInstructions != nil {
		if err := store.UpdateOrchestratorInstructions(s.db, id, *req.CustomInstructions); err != nil {
			writeError(w, err)
			return
		}
	}
	if req.Status != nil {
		if err := store.SetOrchestratorStatus(s.db, id, *req.Status); err != nil {
			writeError(w, err)
			return
		}
	}
	orch, err := store.GetOrchestrator(s.db, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orch)
}

func (s *Server) getStalledSessions(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	id := chi.URLParam(r, "orchestratorID")
	result, err := s.monitoring.CheckForStalledSessions(id, ac.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type startMonitoringRequest struct {
	IntervalSeconds int `json:"interval_seconds"`
}

func (s *Server) startMonitoring(w http.ResponseWriter, r *http.Request) {
	ac, _ := authContextFrom(r)
	id := chi.URLParam(r, "orchestratorID")
	orch, err := s.ownedOrchestrator(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	var req startMonitoringRequest
	_ = decodeJSON(r, &req) // an empty body falls back to the orchestrator's own interval

	interval := time.Duration(req.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Duration(orch.MonitoringIntervalSecs) * time.Second
	}
	if err := store.SetOrchestratorStatus(s.db, id, models.OrchestratorStatusRunning); err != nil {
		writeError(w, err)
		return
	}
	s.monitoring.StartStallChecking(id, ac.UserID, interval)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "running"})
}

func (s *Server) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orchestratorID")
	if _, err := s.ownedOrchestrator(r, id); err != nil {
		writeError(w, err)
		return
	}
	s.monitoring.StopStallChecking(id)
	if err := store.SetOrchestratorStatus(s.db, id, models.OrchestratorStatusStopped); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (s *Server) monitoringStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orchestratorID")
	if _, err := s.ownedOrchestrator(r, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": s.monitoring.IsStallCheckingActive(id)})
}
