package cmdutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordToMap(t *testing.T) {
	row := RecordToMap(book.Record{
		ID:         "zyTCAlFPjgYC",
		Title:      "Dune",
		ISBN13:     "9780441013593",
		PageCount:  412,
		PriceValue: 9.99,
		Source:     book.SourceGoogleBooks,
		Reviews:    []book.Review{{Rating: 5}, {Rating: 4}},
	})

	assert.Equal(t, "zyTCAlFPjgYC", row["id"])
	assert.Equal(t, "9780441013593", row["isbn13"])
	assert.Equal(t, 412, row["page_count"])
	assert.Equal(t, 9.99, row["price_value"])
	assert.Equal(t, "google_books", row["source"])
	assert.Equal(t, 2, row["review_count"])
	assert.NotContains(t, row, "reviews")
}

func TestExportSearchResults(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viper.Reset()
	viper.Set("datasette.enabled", true)
	viper.Set("datasette.dbfile", env.Path("export.db"))
	t.Cleanup(viper.Reset)

	records := []book.Record{
		book.Record{Title: "Dune", Source: book.SourceUploaded, Filepath: "/u/dune.pdf"}.Normalize(),
		book.Record{Title: "Dune Messiah", Source: book.SourceOpenLibrary}.Normalize(),
	}
	searchedAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, ExportSearchResults(context.Background(), "dune", records, searchedAt))

	db, err := sql.Open("sqlite", env.Path("export.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	rows, err := db.Query("SELECT position, title, source, searched_at FROM search_results WHERE query = ? ORDER BY position", "dune")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var titles, sources []string
	for rows.Next() {
		var position int
		var title, source, stamp string
		require.NoError(t, rows.Scan(&position, &title, &source, &stamp))
		assert.Equal(t, "2024-05-01T10:00:00Z", stamp)
		titles = append(titles, title)
		sources = append(sources, source)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"Dune", "Dune Messiah"}, titles)
	assert.Equal(t, []string{"uploaded", "openlibrary"}, sources)
}
