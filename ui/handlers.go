package ui

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pvsignal/adapters/report"
	"pvsignal/domain/core"
	"pvsignal/internal/analysis"
)

// analyzeRequest is the body of both analyze endpoints. Zero filter values
// fall back to the defaults of the chosen run kind.
type analyzeRequest struct {
	Drugs          []string `json:"drugs"`
	Events         []string `json:"events"`
	MinCount       int      `json:"min_count,omitempty"`
	MinDrugReports int      `json:"min_drug_reports,omitempty"`
	StratifyAttr   string   `json:"stratify_attr,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": len(s.records),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}

	opts := req.options(analysis.DefaultOptions())
	startedAt := core.Now()

	table, err := analysis.NewAnalyzer(opts).Run(r.Context(), s.records, req.Drugs, req.Events)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	run := analysis.NewRun(analysis.RunGlobal, opts, req.Drugs, req.Events, "", len(s.records), startedAt, table)
	s.persistRun(r, run)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleAnalyzeStratified(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeAnalyzeRequest(w, r)
	if !ok {
		return
	}
	if req.StratifyAttr == "" {
		writeErrorMessage(w, http.StatusBadRequest, "stratify_attr is required")
		return
	}

	opts := req.options(analysis.StratumOptions())
	startedAt := core.Now()

	table, err := analysis.NewStratifiedAnalyzer(opts).Run(r.Context(), s.records, req.Drugs, req.Events, req.StratifyAttr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	run := analysis.NewRun(analysis.RunStratified, opts, req.Drugs, req.Events, req.StratifyAttr, len(s.records), startedAt, table)
	s.persistRun(r, run)
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "no database configured")
		return
	}
	runs, err := s.repo.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(report.NewRenderer().HTML(*run))
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*analysis.Run, bool) {
	if s.repo == nil {
		writeErrorMessage(w, http.StatusServiceUnavailable, "no database configured")
		return nil, false
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	run, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return run, true
}

func (s *Server) decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (*analyzeRequest, bool) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	if len(req.Drugs) == 0 || len(req.Events) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "drugs and events are required")
		return nil, false
	}
	return &req, true
}

// persistRun stores the run when a repository is configured. Persistence
// failure does not fail the analysis response; it is logged and the caller
// still gets the table.
func (s *Server) persistRun(r *http.Request, run analysis.Run) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Create(r.Context(), run); err != nil {
		s.log.Error("failed to persist run %s: %v", run.ID, err)
	}
}

func (req *analyzeRequest) options(defaults analysis.Options) analysis.Options {
	opts := defaults
	if req.MinCount > 0 {
		opts.MinCount = req.MinCount
	}
	if req.MinDrugReports > 0 {
		opts.MinDrugReports = req.MinDrugReports
	}
	return opts
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
