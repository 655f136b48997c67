package book

import (
	"context"
	"log/slog"
	"strings"
)

// ReviewLookup fetches the reviews attached to a record after merging. A
// record is identified by its source and its ID within that source.
type ReviewLookup interface {
	RecentReviews(ctx context.Context, source SourceTag, bookID string) ([]Review, error)
}

// ReviewLookupFunc adapts a function to ReviewLookup.
type ReviewLookupFunc func(ctx context.Context, source SourceTag, bookID string) ([]Review, error)

// RecentReviews calls f.
func (f ReviewLookupFunc) RecentReviews(ctx context.Context, source SourceTag, bookID string) ([]Review, error) {
	return f(ctx, source, bookID)
}

// Merge concatenates lists in argument order and drops duplicates, so earlier
// lists take precedence and order within a list is preserved. Surviving
// records get their reviews from lookup; a nil lookup or a lookup error leaves
// an empty review list.
//
// Two records are duplicates when they share an ISBN-13, or when their
// title|author keys match and at least one of them has no ISBN-13. Records
// with different ISBN-13s are never collapsed.
func Merge(ctx context.Context, lookup ReviewLookup, lists ...[]Record) []Record {
	total := 0
	for _, list := range lists {
		total += len(list)
	}

	seen := newSeenSet(total)
	merged := make([]Record, 0, total)

	for _, list := range lists {
		for _, rec := range list {
			if !seen.add(rec) {
				continue
			}
			rec.Reviews = reviewsFor(ctx, lookup, rec)
			merged = append(merged, rec)
		}
	}

	return merged
}

type seenSet struct {
	isbns map[string]bool
	// keys maps title|author keys to whether any record carrying the key
	// lacked an ISBN-13.
	keys map[string]bool
}

func newSeenSet(size int) *seenSet {
	return &seenSet{
		isbns: make(map[string]bool, size),
		keys:  make(map[string]bool, size),
	}
}

// add records rec and reports whether it was new.
func (s *seenSet) add(rec Record) bool {
	isbn := strings.TrimSpace(rec.ISBN13)
	key := NormalizeKey(rec.Title, rec.Author)

	if isbn != "" {
		if s.isbns[isbn] {
			return false
		}
		if withoutISBN, ok := s.keys[key]; ok && withoutISBN {
			return false
		}
		s.isbns[isbn] = true
		if _, ok := s.keys[key]; !ok {
			s.keys[key] = false
		}
		return true
	}

	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = true
	return true
}

func reviewsFor(ctx context.Context, lookup ReviewLookup, rec Record) []Review {
	if lookup == nil || rec.ID == "" {
		return []Review{}
	}
	reviews, err := lookup.RecentReviews(ctx, rec.Source, rec.ID)
	if err != nil {
		slog.Warn("Failed to load reviews", "book_id", rec.ID, "source", rec.Source, "error", err)
		return []Review{}
	}
	if reviews == nil {
		return []Review{}
	}
	return reviews
}
