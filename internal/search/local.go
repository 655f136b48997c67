package search

import (
	"context"

	"github.com/lepinkainen/bookfinder/internal/book"
)

// Catalog is the local catalog query.
type Catalog interface {
	Search(ctx context.Context, query string) ([]book.Record, error)
}

// Local exposes the local catalog as a book.Source.
type Local struct {
	catalog Catalog
}

var _ book.Source = (*Local)(nil)

// NewLocal wraps c.
func NewLocal(c Catalog) *Local {
	return &Local{catalog: c}
}

// Name returns the human-readable name of this source.
func (l *Local) Name() string { return "Local catalog" }

// Tag returns the tag stamped on catalog records.
func (l *Local) Tag() book.SourceTag { return book.SourceUploaded }

// Search returns every catalog match; limit only applies to external sources.
func (l *Local) Search(ctx context.Context, query string, _ int) ([]book.Record, error) {
	return l.catalog.Search(ctx, query)
}
