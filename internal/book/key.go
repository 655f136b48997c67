package book

import "strings"

// NormalizeKey builds the fallback dedup identity "<title>|<primary author>".
// The primary author is the part of the first author string before its first
// comma, so "Herbert, Frank" yields "herbert" while "Frank Herbert" yields
// "frank herbert".
func NormalizeKey(title string, authors ...string) string {
	primary := ""
	if len(authors) > 0 {
		primary = authors[0]
		if idx := strings.Index(primary, ","); idx >= 0 {
			primary = primary[:idx]
		}
	}
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(primary))
}

// DedupKey returns the identity used to collapse duplicates: the ISBN-13 when
// present, otherwise NormalizeKey(title, author).
func DedupKey(r Record) string {
	if isbn := strings.TrimSpace(r.ISBN13); isbn != "" {
		return "isbn:" + isbn
	}
	return NormalizeKey(r.Title, r.Author)
}
