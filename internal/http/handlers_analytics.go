package http

import (
	"net/http"
)

func (s *Server) handleMonthlyAnalysis(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	a, err := s.svc.Analytics.Monthly(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sugg, err := s.svc.Analytics.Suggestions(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sugg)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.svc.Analytics.ListSnapshots(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	snap, err := s.svc.Analytics.GetSnapshot(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRefreshSnapshot recomputes and stores the month's snapshot.
func (s *Server) handleRefreshSnapshot(w http.ResponseWriter, r *http.Request) {
	month, err := monthVar(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	snap, err := s.svc.Analytics.Snapshot(r.Context(), month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
