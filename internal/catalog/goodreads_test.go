package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodreadsExport = `Book Id,Title,Author,Author l-f,Additional Authors,ISBN,ISBN13,My Rating,Average Rating,Publisher,Binding,Number of Pages,Year Published,Original Publication Year
234225,Dune,Frank Herbert,"Herbert, Frank",,"=""0441013597""","=""9780441013593""",5,4.27,Ace,Paperback,688,2005,1965
106,Dune Messiah,Frank Herbert,"Herbert, Frank",,"=""""","=""""",4,3.89,Ace,Paperback,331,2008,
,,Nobody,,,,,,,,,,,
`

func writeExport(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "goodreads_library_export.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseGoodreadsRow(t *testing.T) {
	records, err := csvutil.ProcessCSV(strings.NewReader(goodreadsExport), parseGoodreadsRow,
		csvutil.ProcessorOptions{SkipInvalid: true})
	require.NoError(t, err)
	require.Len(t, records, 2)

	dune := records[0]
	assert.Equal(t, "234225", dune.ID)
	assert.Equal(t, "Dune", dune.Title)
	assert.Equal(t, "Frank Herbert", dune.Author)
	assert.Equal(t, "9780441013593", dune.ISBN13)
	assert.Equal(t, "1965", dune.PublishedDate)
	assert.Equal(t, 688, dune.PageCount)
	assert.InDelta(t, 4.27, dune.Rating, 0.001)
	assert.Equal(t, OriginGoodreads, string(dune.Source))

	messiah := records[1]
	assert.Empty(t, messiah.ISBN13)
	assert.Equal(t, "2008", messiah.PublishedDate)
}

func TestSanitizeISBN(t *testing.T) {
	assert.Equal(t, "9780441013593", sanitizeISBN(`="9780441013593"`))
	assert.Equal(t, "9780441013593", sanitizeISBN("9780441013593"))
	assert.Equal(t, "", sanitizeISBN(`=""`))
}

func TestImportGoodreads(t *testing.T) {
	lib := newTestLibrary(t)
	ctx := context.Background()
	path := writeExport(t, goodreadsExport)

	summary, err := lib.ImportGoodreads(ctx, path, "alice")
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Added: 2}, summary)

	b, err := lib.Store.FindByISBN(ctx, "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, "alice", b.Uploader)
	assert.Equal(t, OriginGoodreads, b.Origin)
	assert.False(t, b.HasFile())

	summary, err = lib.ImportGoodreads(ctx, path, "alice")
	require.NoError(t, err)
	assert.Equal(t, ImportSummary{Added: 1, Existing: 1}, summary)

	n, err := lib.Store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestImportGoodreadsRejectsOtherCSV(t *testing.T) {
	lib := newTestLibrary(t)

	_, err := lib.ImportGoodreads(context.Background(), writeExport(t, "name,city\nAlice,NYC\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Goodreads export")
}
