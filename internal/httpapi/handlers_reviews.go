package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/catalog"
)

type reviewRequest struct {
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
}

// reviewTarget reads the record a review route addresses: the {id} path
// parameter within the source named by ?source=, the catalog by default.
func reviewTarget(w http.ResponseWriter, r *http.Request) (book.SourceTag, string, bool) {
	source := book.SourceUploaded
	if raw := r.URL.Query().Get("source"); raw != "" {
		tag, ok := book.ParseSourceTag(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, "INVALID_SOURCE", "unknown source "+raw)
			return "", "", false
		}
		source = tag
	}
	return source, strings.TrimSpace(chi.URLParam(r, "id")), true
}

// handleListReviews handles GET /api/books/{id}/reviews. The id is a
// catalog id unless ?source= names an external source.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	source, id, ok := reviewTarget(w, r)
	if !ok {
		return
	}

	reviews, err := s.library.Store.Reviews(r.Context(), source, id, 0)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"source": source, "book_id": id, "reviews": reviews})
}

// handleAddReview handles POST /api/books/{id}/reviews
func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	source, id, ok := reviewTarget(w, r)
	if !ok {
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	review, err := s.library.AddReview(r.Context(), book.Review{
		Source:   source,
		BookID:   id,
		Username: req.Username,
		Rating:   req.Rating,
		Text:     req.Text,
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusCreated, review)
	case stderrors.Is(err, catalog.ErrInvalidRating):
		respondError(w, http.StatusBadRequest, "INVALID_RATING", err.Error())
	default:
		respondInternal(w, r, err)
	}
}
