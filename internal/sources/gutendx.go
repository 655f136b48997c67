package sources

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
)

const (
	gutendxBaseURL   = "https://gutendex.com"
	gutenbergEbook   = "https://www.gutenberg.org/ebooks/"
	gutendxMaxRating = 5.0
	// downloads at which a title reaches the top rating
	gutendxTopDownloads = 100000.0
)

// Gutendx searches Project Gutenberg through the Gutendex API.
type Gutendx struct {
	*client
}

// Compile-time check that Gutendx implements book.Source.
var _ book.Source = (*Gutendx)(nil)

// NewGutendx creates a Gutendex adapter.
func NewGutendx(opts ...Option) *Gutendx {
	return &Gutendx{
		client: newClient(book.SourceGutendx, "Project Gutenberg", gutendxBaseURL, ratelimit.New("Gutendex", 2), opts),
	}
}

// Name returns the human-readable name of this source.
func (g *Gutendx) Name() string { return g.name }

// Tag returns the tag stamped on Gutenberg records.
func (g *Gutendx) Tag() book.SourceTag { return g.tag }

// Search queries /books. Gutendex has no page size parameter, so the first
// page is cut to limit.
func (g *Gutendx) Search(ctx context.Context, query string, limit int) ([]book.Record, error) {
	return g.search(ctx, query, limit, func(ctx context.Context) ([]book.Record, error) {
		return g.fetch(ctx, query, limit)
	})
}

// gutendxResponse matches the Gutendex /books response.
type gutendxResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ID      any    `json:"id"`
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Summaries     []string          `json:"summaries"`
		Subjects      []string          `json:"subjects"`
		Formats       map[string]string `json:"formats"`
		DownloadCount any               `json:"download_count"`
	} `json:"results"`
}

func (g *Gutendx) fetch(ctx context.Context, query string, limit int) ([]book.Record, error) {
	params := url.Values{}
	params.Set("search", query)

	var result gutendxResponse
	if err := g.getJSON(ctx, g.baseURL+"/books/?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	limit = clampLimit(limit, 32)
	records := make([]book.Record, 0, min(limit, len(result.Results)))
	for _, item := range result.Results {
		if len(records) == limit {
			break
		}

		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			authors = append(authors, a.Name)
		}

		description := strings.Join(item.Subjects, "; ")
		if len(item.Summaries) > 0 {
			description = item.Summaries[0]
		}

		var id, infoLink string
		if n := book.ParseInt(item.ID); n > 0 {
			id = strconv.Itoa(n)
			infoLink = gutenbergEbook + id
		}

		records = append(records, book.Record{
			ID:          id,
			Title:       item.Title,
			Author:      joinAuthors(authors),
			Description: cleanDescription(description),
			Thumbnail:   secureURL(item.Formats["image/jpeg"]),
			PreviewLink: secureURL(item.Formats["text/html"]),
			InfoLink:    infoLink,
			Price:       "Free",
			Rating:      downloadRating(book.ParseFloat(item.DownloadCount)),
			Source:      book.SourceGutendx,
		}.Normalize())
	}
	return records, nil
}

// downloadRating maps a download count onto 0-5 on a log scale, so that
// gutendxTopDownloads or more rates 5.
func downloadRating(downloads float64) float64 {
	if downloads <= 0 {
		return 0
	}
	r := gutendxMaxRating * math.Log10(downloads+1) / math.Log10(gutendxTopDownloads+1)
	r = math.Min(r, gutendxMaxRating)
	return math.Round(r*10) / 10
}
