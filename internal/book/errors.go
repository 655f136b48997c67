package book

import "errors"

var (
	// ErrEmptyQuery is returned when a search is attempted without a query.
	ErrEmptyQuery = errors.New("empty search query")

	// ErrNotFound is returned when a catalog entry does not exist.
	ErrNotFound = errors.New("book not found")

	// ErrUnsupportedFile is returned for uploads that are not PDF or EPUB.
	ErrUnsupportedFile = errors.New("unsupported file type")
)
