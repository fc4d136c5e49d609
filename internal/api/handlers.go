package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sacha-rebbouh/angeldesk/internal/core"
)

// startAnalysisRequest is the body of POST /api/v1/analyses.
type startAnalysisRequest struct {
	DealID string `json:"deal_id"`
	Tiers  []int  `json:"tiers,omitempty"`
}

// handleStartAnalysis runs an analysis to completion and returns the
// finalized record. Runs are synchronous; clients wanting progress
// subscribe to the event stream before posting.
func (s *Server) handleStartAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, core.ErrValidation("MALFORMED_BODY", "request body is not valid JSON"))
		return
	}
	if req.DealID == "" {
		writeError(w, core.ErrValidation("MISSING_DEAL_ID", "deal_id is required"))
		return
	}

	analysis, err := s.starter.Start(r.Context(), req.DealID, req.Tiers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, analysis)
}

func (s *Server) handleResumeAnalysis(w http.ResponseWriter, r *http.Request) {
	id := core.AnalysisID(chi.URLParam(r, "id"))
	analysis, err := s.resumer.Resume(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := core.AnalysisID(chi.URLParam(r, "id"))
	analysis, err := s.store.GetAnalysis(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListAnalyses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if summaries == nil {
		summaries = []core.AnalysisSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": summaries,
		"count":    len(summaries),
	})
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	id := core.AnalysisID(chi.URLParam(r, "id"))
	if _, err := s.store.GetAnalysis(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	checkpoints, err := s.store.ListCheckpoints(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if checkpoints == nil {
		checkpoints = []*core.AnalysisCheckpoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkpoints": checkpoints,
		"count":       len(checkpoints),
	})
}
