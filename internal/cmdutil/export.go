package cmdutil

import (
	"context"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/datastore"
)

// SearchResultsTable holds exported search results.
const SearchResultsTable = "search_results"

var searchResultsTable = datastore.Table{Name: SearchResultsTable, Schema: `CREATE TABLE IF NOT EXISTS search_results (
		query TEXT NOT NULL,
		searched_at TEXT NOT NULL,
		position INTEGER NOT NULL,
		id TEXT,
		title TEXT,
		author TEXT,
		description TEXT,
		thumbnail TEXT,
		published_date TEXT,
		page_count INTEGER,
		preview_link TEXT,
		info_link TEXT,
		isbn13 TEXT,
		price TEXT,
		price_value REAL,
		rating REAL,
		filename TEXT,
		filepath TEXT,
		source TEXT,
		review_count INTEGER,
		PRIMARY KEY (query, searched_at, position)
	)`}

type exportedRecord struct {
	position int
	record   book.Record
}

// ExportSearchResults writes the merged results of one search to the
// Datasette store, keeping their order in the position column.
func ExportSearchResults(ctx context.Context, query string, records []book.Record, searchedAt time.Time) error {
	items := make([]exportedRecord, len(records))
	for i, r := range records {
		items[i] = exportedRecord{position: i, record: r}
	}

	stamp := searchedAt.UTC().Format(time.RFC3339)
	return WriteToDatastore(ctx, items, searchResultsTable, "search results", func(item exportedRecord) map[string]any {
		row := RecordToMap(item.record)
		row["query"] = query
		row["searched_at"] = stamp
		row["position"] = item.position
		return row
	})
}

// RecordToMap flattens a record into a row keyed by snake_case column names.
func RecordToMap(r book.Record) map[string]any {
	row := StructToMap(r, "source", "reviews")
	row["source"] = string(r.Source)
	row["review_count"] = len(r.Reviews)
	return row
}
