package search

import (
	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/config"
	"github.com/lepinkainen/bookfinder/internal/sources"
)

// DefaultSources builds the local catalog source followed by the external
// adapters, configured from the config package. extra applies to every
// adapter after the configured options.
func DefaultSources(store *catalog.Store, extra ...sources.Option) []book.Source {
	common := append([]sources.Option{sources.WithTimeout(config.SourcesTimeout)}, extra...)

	return []book.Source{
		NewLocal(store),
		sources.NewGoogleBooks(append(common, sources.WithAPIKey(config.GoogleBooksAPIKey))...),
		sources.NewOpenLibrary(common...),
		sources.NewGutendx(common...),
		sources.NewNYT(append(common, sources.WithAPIKey(config.NYTAPIKey)), sources.WithList(config.NYTList)),
	}
}

// NewFromConfig creates the Service used by the CLI and the HTTP API.
func NewFromConfig(store *catalog.Store) *Service {
	return NewService(DefaultSources(store),
		WithLimit(config.SearchLimit),
		WithTimeout(config.SearchTimeout),
		WithPriority(book.ParsePriority(config.SearchPriority)),
		WithReviews(store),
	)
}
