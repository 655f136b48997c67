// Package book defines the source-agnostic book record produced by every search
// source, and the dedup, merge and sort rules applied to merged result lists.
package book

import (
	"strings"
	"time"
)

// SourceTag identifies where a record came from.
type SourceTag string

const (
	SourceUploaded    SourceTag = "uploaded"
	SourceGoogleBooks SourceTag = "google_books"
	SourceOpenLibrary SourceTag = "openlibrary"
	SourceGutendx     SourceTag = "gutendx"
	SourceNYT         SourceTag = "nyt"
)

// ParseSourceTag returns the known tag named by s, ignoring case and
// surrounding space.
func ParseSourceTag(s string) (SourceTag, bool) {
	tag := SourceTag(strings.ToLower(strings.TrimSpace(s)))
	switch tag {
	case SourceUploaded, SourceGoogleBooks, SourceOpenLibrary, SourceGutendx, SourceNYT:
		return tag, true
	}
	return "", false
}

// Placeholders used when an upstream omits a field.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
	NoDescription = "No description"
)

// Record is one search result. All fields are always set; absent upstream
// values are replaced with their zero value or a placeholder.
type Record struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Author        string    `json:"author" yaml:"author"`
	Description   string    `json:"description" yaml:"description"`
	Thumbnail     string    `json:"thumbnail" yaml:"thumbnail"`
	PublishedDate string    `json:"published_date" yaml:"published_date"`
	PageCount     int       `json:"page_count" yaml:"page_count"`
	PreviewLink   string    `json:"preview_link" yaml:"preview_link"`
	InfoLink      string    `json:"info_link" yaml:"info_link"`
	ISBN13        string    `json:"isbn13" yaml:"isbn13"`
	Price         string    `json:"price" yaml:"price"`
	PriceValue    float64   `json:"price_value" yaml:"price_value"`
	Rating        float64   `json:"rating" yaml:"rating"`
	Filename      string    `json:"filename" yaml:"filename"`
	Filepath      string    `json:"filepath" yaml:"filepath"`
	Source        SourceTag `json:"source" yaml:"source"`
	Reviews       []Review  `json:"reviews" yaml:"reviews"`
}

// Review is a user review attached to a record after merging.
type Review struct {
	Source    SourceTag `json:"source" yaml:"source"`
	BookID    string    `json:"book_id" yaml:"book_id"`
	Username  string    `json:"username" yaml:"username"`
	Rating    int       `json:"rating" yaml:"rating"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Normalize fills the placeholders for a record built from partial data.
// It is idempotent.
func (r Record) Normalize() Record {
	if r.Title == "" {
		r.Title = UnknownTitle
	}
	if r.Author == "" {
		r.Author = UnknownAuthor
	}
	if r.Description == "" {
		r.Description = NoDescription
	}
	if r.Reviews == nil {
		r.Reviews = []Review{}
	}
	return r
}

// IsFree reports whether the record has no price.
func (r Record) IsFree() bool {
	return r.PriceValue == 0
}
