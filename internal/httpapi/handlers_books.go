package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/catalog"
)

// bookResponse is a catalog entry as returned by the API.
type bookResponse struct {
	book.Record
	ISBN       string    `json:"isbn"`
	Uploader   string    `json:"uploader"`
	Origin     string    `json:"origin"`
	UploadDate time.Time `json:"upload_date"`
}

func toBookResponse(b catalog.Book) bookResponse {
	return bookResponse{
		Record:     b.ToRecord(),
		ISBN:       b.ISBN,
		Uploader:   b.Uploader,
		Origin:     b.Origin,
		UploadDate: b.UploadDate,
	}
}

func bookID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// handleListBooks handles GET /api/books?limit=
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	books, err := s.library.Store.Recent(r.Context(), limit)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]bookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, toBookResponse(b))
	}
	respondJSON(w, http.StatusOK, map[string]any{"books": out, "total": len(out)})
}

// handleGetBook handles GET /api/books/{id}
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer")
		return
	}

	b, err := s.library.Store.Get(r.Context(), id)
	if stderrors.Is(err, book.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "book not found")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := toBookResponse(b)
	reviews, err := s.library.Store.RecentReviews(r.Context(), book.SourceUploaded, resp.ID)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	resp.Reviews = reviews

	respondJSON(w, http.StatusOK, resp)
}

// handleUpload handles POST /api/books with a multipart form carrying the
// file and its metadata.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// room for the form fields around the file
	r.Body = http.MaxBytesReader(w, r.Body, s.library.Uploads.MaxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "upload exceeds the size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "INVALID_FORM", "expected a multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "MISSING_FILE", "form field file is required")
		return
	}
	defer func() { _ = file.Close() }()

	b, err := s.library.AddUpload(r.Context(), catalog.Book{
		Title:       r.FormValue("title"),
		Author:      r.FormValue("author"),
		ISBN:        r.FormValue("isbn"),
		Description: r.FormValue("description"),
		Uploader:    r.FormValue("uploader"),
	}, header.Filename, file)
	switch {
	case err == nil:
	case stderrors.Is(err, catalog.ErrTitleRequired):
		respondError(w, http.StatusBadRequest, "TITLE_REQUIRED", err.Error())
		return
	case stderrors.Is(err, book.ErrUnsupportedFile):
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE", "only PDF and EPUB files are accepted")
		return
	case stderrors.Is(err, catalog.ErrFileTooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "upload exceeds the size limit")
		return
	default:
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toBookResponse(b))
}

type importRequest struct {
	Record   book.Record `json:"record"`
	Uploader string      `json:"uploader"`
}

// handleImport handles POST /api/books/import, adding an external search
// result to the catalog.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	b, created, err := s.library.Import(r.Context(), req.Record, req.Uploader)
	if stderrors.Is(err, catalog.ErrTitleRequired) {
		respondError(w, http.StatusBadRequest, "TITLE_REQUIRED", err.Error())
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respondJSON(w, status, toBookResponse(b))
}

// handleDownload handles GET /api/books/{id}/download?username=
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer")
		return
	}

	b, err := s.library.Store.Get(r.Context(), id)
	if stderrors.Is(err, book.ErrNotFound) || (err == nil && !b.HasFile()) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no file for this book")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if err := s.library.Store.RecordDownload(r.Context(), id, r.URL.Query().Get("username")); err != nil {
		respondInternal(w, r, err)
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": b.Filename}))
	http.ServeFile(w, r, b.Filepath)
}

// handleCover handles GET /api/books/{id}/cover. Downloaded covers are
// served from disk, remote ones redirect.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer")
		return
	}

	b, err := s.library.Store.Get(r.Context(), id)
	if stderrors.Is(err, book.ErrNotFound) || (err == nil && b.CoverPath == "") {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no cover for this book")
		return
	}
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	if !b.HasLocalCover() {
		http.Redirect(w, r, b.CoverPath, http.StatusFound)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, b.CoverPath)
}

// handleDeleteBook handles DELETE /api/books/{id}
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "book id must be a positive integer")
		return
	}

	if _, err := s.library.Remove(r.Context(), id); err != nil {
		if stderrors.Is(err, book.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "book not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
