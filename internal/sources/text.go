package sources

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxDescriptionRunes is the longest description kept before truncation.
const maxDescriptionRunes = 300

var stripPolicy = bluemonday.StrictPolicy()

// cleanDescription reduces an upstream description to escaped plain text:
// markup is removed whether it arrives literal or entity-encoded,
// whitespace is collapsed and the text is cut to maxDescriptionRunes
// followed by "...". The result is safe to embed in HTML.
func cleanDescription(s string) string {
	text := html.UnescapeString(stripPolicy.Sanitize(html.UnescapeString(s)))
	text = truncate(strings.Join(strings.Fields(text), " "), maxDescriptionRunes)
	return stripPolicy.Sanitize(text)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// secureURL upgrades plain-http links to https.
func secureURL(u string) string {
	if strings.HasPrefix(u, "http:") {
		return "https:" + strings.TrimPrefix(u, "http:")
	}
	return u
}

// joinAuthors joins author names with ", ", skipping blanks.
func joinAuthors(names []string) string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, ", ")
}

// firstISBN13 returns the first 13-digit ISBN in candidates.
func firstISBN13(candidates []string) string {
	for _, c := range candidates {
		c = strings.ReplaceAll(strings.ReplaceAll(c, "-", ""), " ", "")
		if len(c) == 13 && isDigits(c) {
			return c
		}
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
