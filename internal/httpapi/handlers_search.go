package httpapi

import (
	stderrors "errors"
	"net/http"

	"github.com/lepinkainen/bookfinder/internal/book"
)

type searchResponse struct {
	Query   string           `json:"query"`
	Sort    book.Criterion   `json:"sort"`
	Total   int              `json:"total"`
	Results []book.Record    `json:"results"`
	Sources []sourceResponse `json:"sources"`
}

type sourceResponse struct {
	Source     book.SourceTag `json:"source"`
	Count      int            `json:"count"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

// handleSearch handles GET /api/search?q=&sort=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result, err := s.search.Search(r.Context(), query.Get("q"), book.ParseCriterion(query.Get("sort")))
	if err != nil {
		if stderrors.Is(err, book.ErrEmptyQuery) {
			respondError(w, http.StatusBadRequest, "EMPTY_QUERY", "query parameter q is required")
			return
		}
		respondInternal(w, r, err)
		return
	}

	sources := make([]sourceResponse, 0, len(result.Sources))
	for _, res := range result.Sources {
		sr := sourceResponse{
			Source:     res.Source,
			Count:      len(res.Records),
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			sr.Error = res.Err.Error()
		}
		sources = append(sources, sr)
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Query:   result.Query,
		Sort:    result.Criterion,
		Total:   len(result.Records),
		Results: result.Records,
		Sources: sources,
	})
}
