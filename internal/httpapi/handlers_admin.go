package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/lepinkainen/bookfinder/internal/catalog"
)

// recentActivityLimit is how many log entries the stats dashboard shows.
const recentActivityLimit = 10

type statsResponse struct {
	Books          int                `json:"books"`
	Downloads      int                `json:"downloads"`
	Activity       map[string]int     `json:"activity"`
	RecentActivity []catalog.Activity `json:"recent_activity"`
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	books, err := s.library.Store.Count(ctx)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	downloads, err := s.library.Store.DownloadCount(ctx)
	if err != nil {
		respondInternal(w, r, fmt.Errorf("counting downloads: %w", err))
		return
	}
	counts, err := s.library.Store.ActivityCounts(ctx)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	recent, err := s.library.Store.Activity(ctx, "", recentActivityLimit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{
		Books:          books,
		Downloads:      downloads,
		Activity:       counts,
		RecentActivity: recent,
	})
}

// handleActivityLog handles GET /api/admin/logs?action=&limit=
func (s *Server) handleActivityLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	action := r.URL.Query().Get("action")

	logs, err := s.library.Store.Activity(r.Context(), action, limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"logs": logs})
}
