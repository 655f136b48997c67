package book

import (
	"slices"
	"strings"
)

// Criterion selects the ordering applied by Sort.
type Criterion string

const (
	SortRelevance Criterion = "relevance"
	SortPriceLow  Criterion = "price_low"
	SortPriceHigh Criterion = "price_high"
	SortRating    Criterion = "rating"
	SortNew       Criterion = "new"
	SortDiscount  Criterion = "discount"
)

// ParseCriterion maps a user supplied value onto a Criterion.
// Unknown values map to SortRelevance.
func ParseCriterion(s string) Criterion {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case SortPriceLow, SortPriceHigh, SortRating, SortNew, SortDiscount:
		return c
	default:
		return SortRelevance
	}
}

// Sort returns a reordered copy of records. Every ordering is stable, so ties
// keep their merge order. SortRelevance returns the records unchanged.
func Sort(records []Record, criterion Criterion) []Record {
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []Record{}
	}

	switch ParseCriterion(string(criterion)) {
	case SortPriceLow:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return compareFloat(a.PriceValue, b.PriceValue)
		})
	case SortPriceHigh:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return compareFloat(b.PriceValue, a.PriceValue)
		})
	case SortRating:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return compareFloat(b.Rating, a.Rating)
		})
	case SortNew:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			return Year(b.PublishedDate) - Year(a.PublishedDate)
		})
	case SortDiscount:
		slices.SortStableFunc(sorted, func(a, b Record) int {
			switch {
			case a.IsFree() && !b.IsFree():
				return -1
			case !a.IsFree() && b.IsFree():
				return 1
			}
			return compareFloat(b.PriceValue, a.PriceValue)
		})
	}

	return sorted
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
