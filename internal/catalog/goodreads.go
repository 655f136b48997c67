package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/csvutil"
)

// OriginGoodreads marks entries imported from a Goodreads library export.
const OriginGoodreads = "goodreads"

// ImportSummary counts the outcome of a bulk import.
type ImportSummary struct {
	Added    int
	Existing int
	Failed   int
}

// parseGoodreadsRow maps a Goodreads library export row onto a record.
func parseGoodreadsRow(row csvutil.Row) (book.Record, error) {
	title := row.Get("Title")
	if title == "" {
		return book.Record{}, ErrTitleRequired
	}

	isbn := sanitizeISBN(row.Get("ISBN13"))
	if isbn == "" {
		isbn = sanitizeISBN(row.Get("ISBN"))
	}

	published := row.Get("Original Publication Year")
	if published == "" {
		published = row.Get("Year Published")
	}

	pages, _ := strconv.Atoi(row.Get("Number of Pages"))
	rating, _ := strconv.ParseFloat(row.Get("Average Rating"), 64)

	return book.Record{
		ID:            row.Get("Book Id"),
		Title:         title,
		Author:        row.Get("Author"),
		PublishedDate: published,
		PageCount:     pages,
		ISBN13:        isbn13(isbn),
		Rating:        rating,
		Source:        book.SourceTag(OriginGoodreads),
	}.Normalize(), nil
}

// sanitizeISBN strips the ="..." spreadsheet quoting Goodreads wraps ISBNs in.
func sanitizeISBN(value string) string {
	value = strings.TrimPrefix(value, "=")
	return strings.Trim(value, `"`)
}

// ImportGoodreads catalogs every book of a Goodreads library export.
// Books whose ISBN is already cataloged are counted as existing; books
// without an ISBN are added on every run.
func (l *Library) ImportGoodreads(ctx context.Context, path, uploader string) (ImportSummary, error) {
	records, err := csvutil.ProcessCSVFile(path, parseGoodreadsRow, csvutil.ProcessorOptions{
		Required:    []string{"Title", "Author"},
		SkipInvalid: true,
	})
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to read Goodreads export: %w", err)
	}

	var summary ImportSummary
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		_, created, err := l.Import(ctx, rec, uploader)
		switch {
		case err != nil:
			slog.Warn("Failed to import book", "title", rec.Title, "error", err)
			summary.Failed++
		case created:
			summary.Added++
		default:
			summary.Existing++
		}
	}

	slog.Info("Goodreads import finished", "added", summary.Added, "existing", summary.Existing, "failed", summary.Failed)
	return summary, nil
}
