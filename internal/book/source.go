package book

import (
	"context"
	"time"
)

// Source defines a searchable book catalog, local or remote.
// Each implementation handles its own transport, rate limiting and the mapping
// of its response shape onto Record.
type Source interface {
	// Name returns the human-readable name of the source (e.g., "Google Books").
	Name() string

	// Tag returns the tag stamped on every record the source produces.
	Tag() SourceTag

	// Search returns at most limit records matching query.
	// Returns an empty slice and a nil error when nothing matches.
	Search(ctx context.Context, query string, limit int) ([]Record, error)
}

// SourceResult is the outcome of querying a single Source.
type SourceResult struct {
	// Source is the tag of the queried source.
	Source SourceTag

	// Records is empty when the source failed or had no matches.
	Records []Record

	// Err is the reason the source failed, nil on success.
	Err error

	// Duration is how long the query took.
	Duration time.Duration
}

// OK reports whether the source answered.
func (r SourceResult) OK() bool {
	return r.Err == nil
}
