package cache

import "fmt"

// SearchSources lists the upstream sources that get a search cache table.
var SearchSources = []string{
	"google_books",
	"openlibrary",
	"gutendx",
	"nyt",
}

// SearchTable returns the search cache table name for a source.
func SearchTable(source string) string {
	return source + "_search_cache"
}

// Timestamps are unix seconds. An expires_at of 0 defers to the TTL given
// at lookup time.
func tableSchema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_cached_at ON %[1]s(cached_at);
`, table)
}
