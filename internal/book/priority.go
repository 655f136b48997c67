package book

import "strings"

// DefaultPriority is the merge precedence used when none is configured:
// the local catalog first, then the external sources.
var DefaultPriority = []SourceTag{
	SourceUploaded,
	SourceGoogleBooks,
	SourceOpenLibrary,
	SourceGutendx,
	SourceNYT,
}

// ParsePriority turns configured names into tags, dropping blanks and repeats.
func ParsePriority(names []string) []SourceTag {
	seen := make(map[SourceTag]bool, len(names))
	tags := make([]SourceTag, 0, len(names))
	for _, name := range names {
		tag := SourceTag(strings.ToLower(strings.TrimSpace(name)))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// OrderByPriority arranges results by the position of their source in
// priority. Sources not listed keep their relative order after the listed ones.
func OrderByPriority(results []SourceResult, priority []SourceTag) []SourceResult {
	rank := make(map[SourceTag]int, len(priority))
	for i, tag := range priority {
		rank[tag] = i
	}

	ordered := make([]SourceResult, 0, len(results))
	for _, tag := range priority {
		for _, res := range results {
			if res.Source == tag {
				ordered = append(ordered, res)
			}
		}
	}
	for _, res := range results {
		if _, listed := rank[res.Source]; !listed {
			ordered = append(ordered, res)
		}
	}
	return ordered
}
