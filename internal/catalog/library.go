package catalog

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/fileutil"
)

// Library ties the catalog rows to the files they describe.
type Library struct {
	Store   *Store
	Uploads *Uploads

	// CoverDir receives covers of imported records; empty keeps the remote URL.
	CoverDir string
	// CoverClient replaces the HTTP client used for cover downloads.
	CoverClient *http.Client
	// CoverHosts lists the hosts covers are downloaded from. Subdomains
	// match; other URLs are kept remote.
	CoverHosts []string
}

// DefaultCoverHosts are the image hosts of the search sources.
var DefaultCoverHosts = []string{
	"books.google.com",
	"books.googleusercontent.com",
	"covers.openlibrary.org",
	"gutenberg.org",
	"storage.googleapis.com",
	"static01.nyt.com",
}

// NewLibrary creates a library storing files under uploadDir and imported
// covers under uploadDir/covers.
func NewLibrary(store *Store, uploadDir string, maxBytes int64) *Library {
	return &Library{
		Store:      store,
		Uploads:    NewUploads(uploadDir, maxBytes),
		CoverDir:   filepath.Join(uploadDir, "covers"),
		CoverHosts: DefaultCoverHosts,
	}
}

// AddUpload stores the file read from r and catalogs it with meta.
func (l *Library) AddUpload(ctx context.Context, meta Book, name string, r io.Reader) (Book, error) {
	if strings.TrimSpace(meta.Title) == "" {
		return Book{}, ErrTitleRequired
	}

	filename, path, err := l.Uploads.Save(name, r)
	if err != nil {
		return Book{}, err
	}

	meta.Filename = filename
	meta.Filepath = path
	meta.Origin = string(book.SourceUploaded)

	b, err := l.Store.Insert(ctx, meta)
	if err != nil {
		if rmErr := l.Uploads.Remove(path); rmErr != nil {
			slog.Warn("Failed to clean up upload", "path", path, "error", rmErr)
		}
		return Book{}, err
	}
	l.record(ctx, ActionUpload, "book", strconv.FormatInt(b.ID, 10), fmt.Sprintf("%s (%s)", b.Title, b.Filename))
	return b, nil
}

// Import adds an external search record to the catalog without a file.
// A record whose ISBN is already cataloged returns the existing entry and false.
func (l *Library) Import(ctx context.Context, rec book.Record, uploader string) (Book, bool, error) {
	rec = rec.Normalize()
	if rec.Title == book.UnknownTitle {
		return Book{}, false, ErrTitleRequired
	}

	if rec.ISBN13 != "" {
		existing, err := l.Store.FindByISBN(ctx, rec.ISBN13)
		if err == nil {
			slog.Info("Book already in catalog", "id", existing.ID, "isbn", rec.ISBN13)
			return existing, false, nil
		}
		if !stderrors.Is(err, book.ErrNotFound) {
			return Book{}, false, err
		}
	}

	origin := string(rec.Source)
	if origin == "" {
		origin = string(book.SourceUploaded)
	}

	b, err := l.Store.Insert(ctx, Book{
		Title:       rec.Title,
		Author:      rec.Author,
		ISBN:        rec.ISBN13,
		Description: rec.Description,
		Uploader:    uploader,
		CoverPath:   l.localCover(ctx, rec),
		Origin:      origin,
	})
	if err != nil {
		return Book{}, false, fmt.Errorf("failed to import book: %w", err)
	}
	l.record(ctx, ActionImport, "book", strconv.FormatInt(b.ID, 10), fmt.Sprintf("%s from %s", b.Title, b.Origin))
	return b, true, nil
}

// localCover downloads the record's thumbnail and returns the local path,
// falling back to the remote URL when that is not possible.
func (l *Library) localCover(ctx context.Context, rec book.Record) string {
	if rec.Thumbnail == "" || l.CoverDir == "" {
		return rec.Thumbnail
	}
	if !l.trustedCover(rec.Thumbnail) {
		slog.Debug("Cover host not allowed, keeping remote URL", "url", rec.Thumbnail)
		return rec.Thumbnail
	}

	name := rec.Title
	if rec.ISBN13 != "" {
		name = rec.ISBN13
	}
	covers := fileutil.CoverFetcher{Dir: l.CoverDir, Client: l.coverClient()}
	path, _, err := covers.Fetch(ctx, rec.Thumbnail, fileutil.CoverFilename(name))
	if err != nil {
		slog.Warn("Cover download failed, keeping remote URL", "title", rec.Title, "error", err)
		return rec.Thumbnail
	}
	return path
}

// trustedCover reports whether raw is an https URL on one of CoverHosts.
func (l *Library) trustedCover(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range l.CoverHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// coverClient is CoverClient, or a default client, that refuses redirects
// away from CoverHosts.
func (l *Library) coverClient() *http.Client {
	client := &http.Client{Timeout: 30 * time.Second}
	if l.CoverClient != nil {
		c := *l.CoverClient
		client = &c
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return stderrors.New("too many cover redirects")
		}
		if !l.trustedCover(req.URL.String()) {
			return fmt.Errorf("cover redirect to %s not allowed", req.URL.Host)
		}
		return nil
	}
	return client
}

// Remove deletes the entry with id and its stored file.
func (l *Library) Remove(ctx context.Context, id int64) (Book, error) {
	b, err := l.Store.Delete(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if err := l.Uploads.Remove(b.Filepath); err != nil {
		slog.Warn("Failed to remove book file", "path", b.Filepath, "error", err)
	}
	if b.HasLocalCover() {
		if err := l.Uploads.Remove(b.CoverPath); err != nil {
			slog.Warn("Failed to remove cover", "path", b.CoverPath, "error", err)
		}
	}
	l.record(ctx, ActionDelete, "book", strconv.FormatInt(b.ID, 10), b.Title)
	return b, nil
}

// AddReview stores r and logs it.
func (l *Library) AddReview(ctx context.Context, r book.Review) (book.Review, error) {
	review, err := l.Store.AddReview(ctx, r)
	if err != nil {
		return book.Review{}, err
	}
	l.record(ctx, ActionReview, string(review.Source), review.BookID,
		fmt.Sprintf("%d/5 by %s", review.Rating, review.Username))
	return review, nil
}
