package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
)

const (
	openLibraryBaseURL = "https://openlibrary.org"
	openLibraryCovers  = "https://covers.openlibrary.org/b/id/%d-M.jpg"
	openLibraryFields  = "key,title,author_name,first_sentence,first_publish_year,number_of_pages_median,isbn,ratings_average,cover_i"
)

// OpenLibrary searches the Open Library search API.
type OpenLibrary struct {
	*client
}

// Compile-time check that OpenLibrary implements book.Source.
var _ book.Source = (*OpenLibrary)(nil)

// NewOpenLibrary creates an Open Library adapter.
func NewOpenLibrary(opts ...Option) *OpenLibrary {
	return &OpenLibrary{
		client: newClient(book.SourceOpenLibrary, "Open Library", openLibraryBaseURL, ratelimit.New("OpenLibrary", 1), opts),
	}
}

// Name returns the human-readable name of this source.
func (o *OpenLibrary) Name() string { return o.name }

// Tag returns the tag stamped on Open Library records.
func (o *OpenLibrary) Tag() book.SourceTag { return o.tag }

// Search queries search.json.
func (o *OpenLibrary) Search(ctx context.Context, query string, limit int) ([]book.Record, error) {
	return o.search(ctx, query, limit, func(ctx context.Context) ([]book.Record, error) {
		return o.fetch(ctx, query, limit)
	})
}

// openLibraryResponse matches search.json restricted to openLibraryFields.
type openLibraryResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key                 string   `json:"key"`
		Title               string   `json:"title"`
		AuthorName          []string `json:"author_name"`
		FirstSentence       any      `json:"first_sentence"`
		FirstPublishYear    any      `json:"first_publish_year"`
		NumberOfPagesMedian any      `json:"number_of_pages_median"`
		ISBN                []string `json:"isbn"`
		RatingsAverage      any      `json:"ratings_average"`
		CoverID             any      `json:"cover_i"`
	} `json:"docs"`
}

func (o *OpenLibrary) fetch(ctx context.Context, query string, limit int) ([]book.Record, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit, 100)))
	params.Set("fields", openLibraryFields)

	var result openLibraryResponse
	if err := o.getJSON(ctx, o.baseURL+"/search.json?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	records := make([]book.Record, 0, len(result.Docs))
	for _, doc := range result.Docs {
		var thumbnail string
		if coverID := book.ParseInt(doc.CoverID); coverID > 0 {
			thumbnail = fmt.Sprintf(openLibraryCovers, coverID)
		}

		var published string
		if year := book.ParseInt(doc.FirstPublishYear); year > 0 {
			published = strconv.Itoa(year)
		}

		var infoLink string
		if doc.Key != "" {
			infoLink = "https://openlibrary.org" + doc.Key
		}

		records = append(records, book.Record{
			ID:            strings.TrimPrefix(doc.Key, "/works/"),
			Title:         doc.Title,
			Author:        joinAuthors(doc.AuthorName),
			Description:   cleanDescription(firstSentence(doc.FirstSentence)),
			Thumbnail:     thumbnail,
			PublishedDate: published,
			PageCount:     book.ParseInt(doc.NumberOfPagesMedian),
			InfoLink:      infoLink,
			PreviewLink:   infoLink,
			ISBN13:        firstISBN13(doc.ISBN),
			Rating:        book.ParseFloat(doc.RatingsAverage),
			Source:        book.SourceOpenLibrary,
		}.Normalize())
	}
	return records, nil
}

// firstSentence handles first_sentence arriving as a string, a list of
// strings or an object with a "value" key.
func firstSentence(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []any:
		parts := make([]string, 0, len(s))
		for _, p := range s {
			if str, ok := p.(string); ok {
				parts = append(parts, str)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		if str, ok := s["value"].(string); ok {
			return str
		}
	}
	return ""
}
