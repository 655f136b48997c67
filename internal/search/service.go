// Package search aggregates the local catalog and the external sources into
// one deduplicated, sorted result list.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/metrics"
	"github.com/sourcegraph/conc/iter"
)

// Defaults used when an option is not given.
const (
	DefaultLimit   = 10
	DefaultTimeout = 15 * time.Second
)

// Result is one aggregated search.
type Result struct {
	Query     string
	Criterion book.Criterion
	// Records are merged in priority order, then sorted by Criterion.
	Records []book.Record
	// Sources holds one entry per registered source, in registration order.
	Sources []book.SourceResult
}

// Option configures a Service.
type Option func(*Service)

// WithLimit sets the number of records requested from each source.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithTimeout bounds a whole search.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPriority sets the merge precedence of sources, highest first.
func WithPriority(p []book.SourceTag) Option {
	return func(s *Service) {
		if len(p) > 0 {
			s.priority = p
		}
	}
}

// WithReviews attaches reviews from r to merged records.
func WithReviews(r book.ReviewLookup) Option {
	return func(s *Service) {
		s.reviews = r
	}
}

// Service queries every source concurrently and merges the answers.
type Service struct {
	sources  []book.Source
	reviews  book.ReviewLookup
	priority []book.SourceTag
	limit    int
	timeout  time.Duration
}

// NewService creates a Service over sources, queried in registration order.
func NewService(sources []book.Source, opts ...Option) *Service {
	s := &Service{
		sources:  sources,
		priority: book.DefaultPriority,
		limit:    DefaultLimit,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources returns the registered sources.
func (s *Service) Sources() []book.Source {
	return s.sources
}

// Search runs query against every source. A failing source contributes no
// records and its error is reported in Result.Sources; Search itself only
// fails for an empty query.
func (s *Service) Search(ctx context.Context, query string, criterion book.Criterion) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, book.ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results := iter.Map(s.sources, func(src *book.Source) book.SourceResult {
		return s.query(ctx, *src, query)
	})

	lists := make([][]book.Record, 0, len(results))
	candidates := 0
	for _, res := range book.OrderByPriority(results, s.priority) {
		lists = append(lists, res.Records)
		candidates += len(res.Records)
	}

	merged := book.Merge(ctx, s.reviews, lists...)
	metrics.RecordSearch(candidates, len(merged))

	slog.Info("Search completed", "query", query, "sort", criterion, "candidates", candidates, "results", len(merged))

	return &Result{
		Query:     query,
		Criterion: criterion,
		Records:   book.Sort(merged, criterion),
		Sources:   results,
	}, nil
}

// query runs one source, turning errors and panics into a failed SourceResult.
func (s *Service) query(ctx context.Context, src book.Source, query string) (res book.SourceResult) {
	tag := src.Tag()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = book.SourceResult{Source: tag, Records: []book.Record{}, Err: fmt.Errorf("%s panicked: %v", tag, r)}
		}
		res.Duration = time.Since(start)
		metrics.RecordSourceQuery(string(tag), len(res.Records), res.Duration, res.Err)
		if res.Err != nil {
			slog.Warn("Source failed", "source", tag, "query", query, "duration", res.Duration, "error", res.Err)
		} else {
			slog.Debug("Source answered", "source", tag, "query", query, "records", len(res.Records), "duration", res.Duration)
		}
	}()

	records, err := src.Search(ctx, query, s.limit)
	if err != nil {
		return book.SourceResult{Source: tag, Records: []book.Record{}, Err: err}
	}

	stamped := make([]book.Record, 0, len(records))
	for _, r := range records {
		if r.Source == "" {
			r.Source = tag
		}
		stamped = append(stamped, r.Normalize())
	}
	return book.SourceResult{Source: tag, Records: stamped}
}
