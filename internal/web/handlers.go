package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// StatsResponse summarizes the consolidated dataset for the health view.
type StatsResponse struct {
	TotalRecords      int     `json:"total_records"`
	ResolvedRecords   int     `json:"resolved_records"`
	UnresolvedRecords int     `json:"unresolved_records"`
	ResolutionRate    float64 `json:"resolution_rate"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var stats StatsResponse
	for _, rec := range s.ds.Snapshot() {
		stats.TotalRecords++
		if rec.Resolution.Resolved() {
			stats.ResolvedRecords++
		} else {
			stats.UnresolvedRecords++
		}
	}
	if stats.TotalRecords > 0 {
		stats.ResolutionRate = float64(stats.ResolvedRecords) / float64(stats.TotalRecords) * 100
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"stats":  stats,
	})
}

// handleRecords lists consolidated records ordered by URL. The optional
// limit query parameter caps the response size.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records := s.ds.Snapshot()

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   s.ds.Len(),
		"records": records,
	})
}

// handleReport returns the report of the most recent run, 404 before the
// first run completes.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	s.repMu.Lock()
	rep := s.lastReport
	s.repMu.Unlock()

	if rep == nil {
		http.Error(w, "no run completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type runRequest struct {
	BatchPath string `json:"batch_path"`
}

// handleTriggerRun starts a reconciliation run. At most one run is in
// flight; a second request while one is running gets 409.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		http.Error(w, "runs disabled", http.StatusServiceUnavailable)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BatchPath == "" {
		http.Error(w, "batch_path is required", http.StatusBadRequest)
		return
	}

	select {
	case s.running <- struct{}{}:
	default:
		http.Error(w, "a run is already in progress", http.StatusConflict)
		return
	}

	rep, err := s.runner.Run(r.Context(), req.BatchPath)
	s.repMu.Lock()
	s.lastReport = rep
	s.repMu.Unlock()
	<-s.running

	if err != nil {
		s.log.Error("run failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
