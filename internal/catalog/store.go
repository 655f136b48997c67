// Package catalog is the local sqlite catalog of uploaded books, their
// reviews and download events.
package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	_ "modernc.org/sqlite"
)

// RecentReviewLimit is how many reviews are attached to a search result.
const RecentReviewLimit = 3

var (
	// ErrTitleRequired is returned when a book is added without a title.
	ErrTitleRequired = stderrors.New("book title is required")

	// ErrInvalidRating is returned for review ratings outside 1-5.
	ErrInvalidRating = stderrors.New("rating must be between 1 and 5")
)

// Store manages the catalog database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Store can attach reviews to merged records.
var _ book.ReviewLookup = (*Store)(nil)

// Open opens (creating if needed) the catalog at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	// sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, stderrors.Join(fmt.Errorf("failed to connect to catalog database: %w", err), closeErr)
	}

	for _, schema := range allSchemas {
		if _, err := db.Exec(schema); err != nil {
			closeErr := db.Close()
			return nil, stderrors.Join(fmt.Errorf("failed to create catalog table: %w", err), closeErr)
		}
	}

	if err := upgrade(db); err != nil {
		return nil, stderrors.Join(err, db.Close())
	}

	slog.Debug("Catalog opened", "path", dbPath)
	return &Store{db: db, now: time.Now}, nil
}

// upgrade adds the columns and indexes missing from catalogs created by
// earlier versions.
func upgrade(db *sql.DB) error {
	for _, c := range addedColumns {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, c.table, c.column, c.decl)); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", c.table, c.column, err)
		}
		slog.Info("Catalog upgraded", "table", c.table, "column", c.column)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		return fmt.Errorf("failed to create catalog indexes: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert adds b to the catalog and returns it with ID and UploadDate set.
// Missing author and description get the usual placeholders.
func (s *Store) Insert(ctx context.Context, b Book) (Book, error) {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return Book{}, ErrTitleRequired
	}
	if b.Author = strings.TrimSpace(b.Author); b.Author == "" {
		b.Author = book.UnknownAuthor
	}
	if b.Description = strings.TrimSpace(b.Description); b.Description == "" {
		b.Description = book.NoDescription
	}
	if b.Origin == "" {
		b.Origin = string(book.SourceUploaded)
	}
	b.ISBN = strings.TrimSpace(b.ISBN)
	if b.UploadDate.IsZero() {
		b.UploadDate = s.now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (title, author, isbn, description, filename, filepath, uploader, cover_path, origin, upload_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.ISBN, b.Description, b.Filename, b.Filepath, b.Uploader, b.CoverPath, b.Origin, b.UploadDate.UnixNano())
	if err != nil {
		return Book{}, fmt.Errorf("failed to insert book: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book id: %w", err)
	}
	b.ID = id

	slog.Info("Book added to catalog", "id", id, "title", b.Title, "origin", b.Origin)
	return b, nil
}

const bookColumns = `id, title, author, isbn, description, filename, filepath, uploader, cover_path, origin, upload_date`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (Book, error) {
	var b Book
	var uploaded int64
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Filename, &b.Filepath,
		&b.Uploader, &b.CoverPath, &b.Origin, &uploaded)
	if err != nil {
		return Book{}, err
	}
	b.UploadDate = time.Unix(0, uploaded).UTC()
	return b, nil
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer func() { _ = rows.Close() }()

	books := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read books: %w", err)
	}
	return books, nil
}

// Get returns the book with id, or book.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return Book{}, book.ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return b, nil
}

// FindByISBN returns the first book with the given ISBN, or book.ErrNotFound.
func (s *Store) FindByISBN(ctx context.Context, isbn string) (Book, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return Book{}, book.ErrNotFound
	}
	b, err := scanBook(s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE isbn = ? ORDER BY id LIMIT 1`, isbn))
	if stderrors.Is(err, sql.ErrNoRows) {
		return Book{}, book.ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to find book by isbn: %w", err)
	}
	return b, nil
}

// Delete removes the book with id together with its reviews and download
// events, and returns the deleted row so the caller can remove its file.
func (s *Store) Delete(ctx context.Context, id int64) (Book, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Book{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// no-op after commit
		_ = tx.Rollback()
	}()

	b, err := scanBook(tx.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		return Book{}, book.ErrNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book %d: %w", id, err)
	}

	for _, stmt := range []struct {
		query string
		arg   any
	}{
		{`DELETE FROM reviews WHERE source = 'uploaded' AND book_id = ?`, strconv.FormatInt(id, 10)},
		{`DELETE FROM downloads WHERE book_id = ?`, id},
		{`DELETE FROM books WHERE id = ?`, id},
	} {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.arg); err != nil {
			return Book{}, fmt.Errorf("failed to delete book %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Book{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("Book deleted from catalog", "id", id, "title", b.Title)
	return b, nil
}

// Count returns the number of books in the catalog.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// Recent returns the latest limit books, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Book, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY upload_date DESC, id DESC LIMIT ?`, limit)
}

// Search returns books whose title, author or description contains query,
// case-insensitively, newest first, as uploaded records.
func (s *Store) Search(ctx context.Context, query string) ([]book.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []book.Record{}, nil
	}

	like := "%" + escapeLike(strings.ToLower(query)) + "%"
	books, err := s.queryBooks(ctx, `
		SELECT `+bookColumns+` FROM books
		WHERE lower(title) LIKE ? ESCAPE '\'
		   OR lower(author) LIKE ? ESCAPE '\'
		   OR lower(description) LIKE ? ESCAPE '\'
		ORDER BY upload_date DESC, id DESC`,
		like, like, like)
	if err != nil {
		return nil, err
	}

	records := make([]book.Record, 0, len(books))
	for _, b := range books {
		records = append(records, b.ToRecord())
	}
	return records, nil
}

// escapeLike escapes the LIKE wildcards in s.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// reviewSource maps an empty tag to the catalog's own.
func reviewSource(tag book.SourceTag) book.SourceTag {
	if tag == "" {
		return book.SourceUploaded
	}
	return tag
}

// AddReview stores a review for the record identified by r.Source and
// r.BookID. An empty source means a catalog entry.
func (s *Store) AddReview(ctx context.Context, r book.Review) (book.Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return book.Review{}, ErrInvalidRating
	}
	r.BookID = strings.TrimSpace(r.BookID)
	if r.BookID == "" {
		return book.Review{}, book.ErrNotFound
	}
	r.Source = reviewSource(r.Source)
	if r.Username = strings.TrimSpace(r.Username); r.Username == "" {
		r.Username = "anonymous"
	}
	r.Text = strings.TrimSpace(r.Text)
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviews (source, book_id, username, rating, review_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.Source), r.BookID, r.Username, r.Rating, r.Text, r.CreatedAt.UnixNano())
	if err != nil {
		return book.Review{}, fmt.Errorf("failed to add review: %w", err)
	}
	return r, nil
}

// Reviews returns up to limit reviews of the record (source, bookID),
// newest first. A non-positive limit returns all of them.
func (s *Store) Reviews(ctx context.Context, source book.SourceTag, bookID string, limit int) ([]book.Review, error) {
	query := `SELECT source, book_id, username, rating, review_text, created_at FROM reviews
		WHERE source = ? AND book_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{string(reviewSource(source)), bookID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reviews := []book.Review{}
	for rows.Next() {
		var r book.Review
		var created int64
		if err := rows.Scan(&r.Source, &r.BookID, &r.Username, &r.Rating, &r.Text, &created); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}
	return reviews, nil
}

// RecentReviews returns the RecentReviewLimit newest reviews of the record
// (source, bookID).
func (s *Store) RecentReviews(ctx context.Context, source book.SourceTag, bookID string) ([]book.Review, error) {
	return s.Reviews(ctx, source, bookID, RecentReviewLimit)
}

// RecordDownload logs that username downloaded the book with id.
func (s *Store) RecordDownload(ctx context.Context, id int64, username string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO downloads (book_id, username, download_date) VALUES (?, ?, ?)`,
		id, strings.TrimSpace(username), s.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// DownloadCount returns the number of recorded downloads.
func (s *Store) DownloadCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count downloads: %w", err)
	}
	return n, nil
}
