package sources

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/cache"
	"github.com/lepinkainen/bookfinder/internal/errors"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	nytBaseURL = "https://api.nytimes.com/svc/books/v3"
	// DefaultNYTList is the best-seller list searched when none is configured.
	DefaultNYTList = "hardcover-fiction"
	// NYTCacheTTL is how long a (query, list) answer is reused.
	NYTCacheTTL = 5 * time.Minute

	nytMaxRetries = 3
)

// sleep waits for d or until ctx is done. Tests replace it to record waits.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NYT searches the current NYT Best Sellers list. The API only serves whole
// lists, so the query filters the list locally.
type NYT struct {
	*client
	list      string
	memo      *cache.Memory[[]book.Record]
	retryUnit time.Duration
}

// Compile-time check that NYT implements book.Source.
var _ book.Source = (*NYT)(nil)

// NYTOption configures the NYT adapter.
type NYTOption func(*NYT)

// WithList selects the best-seller list, e.g. "hardcover-nonfiction".
func WithList(list string) NYTOption {
	return func(n *NYT) {
		if list = strings.TrimSpace(list); list != "" {
			n.list = list
		}
	}
}

// WithMemo injects the (query, list) result cache.
func WithMemo(m *cache.Memory[[]book.Record]) NYTOption {
	return func(n *NYT) {
		n.memo = m
	}
}

// WithRetryUnit sets the backoff unit; 429 responses are retried after 2, 4 and 8 units.
func WithRetryUnit(d time.Duration) NYTOption {
	return func(n *NYT) {
		n.retryUnit = d
	}
}

// NewNYT creates an NYT adapter. Without an API key it answers every search
// with no records.
func NewNYT(opts []Option, nytOpts ...NYTOption) *NYT {
	// NYT quota is 5 requests per minute
	c := newClient(book.SourceNYT, "NYT Best Sellers", nytBaseURL, ratelimit.Every("NYT", 12*time.Second, 5), opts)
	// the memo replaces the sqlite cache
	c.cached = false

	n := &NYT{
		client:    c,
		list:      DefaultNYTList,
		memo:      cache.NewMemory[[]book.Record](NYTCacheTTL),
		retryUnit: time.Second,
	}
	for _, opt := range nytOpts {
		opt(n)
	}
	return n
}

// Name returns the human-readable name of this source.
func (n *NYT) Name() string { return n.name }

// Tag returns the tag stamped on NYT records.
func (n *NYT) Tag() book.SourceTag { return n.tag }

// Search filters the current list by query over title, author and description.
func (n *NYT) Search(ctx context.Context, query string, limit int) ([]book.Record, error) {
	if n.apiKey == "" {
		slog.Debug("NYT API key not set, skipping source")
		return []book.Record{}, nil
	}

	key := strings.ToLower(strings.TrimSpace(query)) + "|" + n.list
	if n.memo != nil {
		if records, ok := n.memo.Get(key); ok {
			slog.Debug("NYT cache hit", "query", query, "list", n.list)
			return head(records, limit), nil
		}
	}

	records, err := n.search(ctx, query, limit, func(ctx context.Context) ([]book.Record, error) {
		return n.fetch(ctx, query)
	})
	if err != nil {
		return records, err
	}

	if n.memo != nil {
		n.memo.Set(key, records)
	}
	return head(records, limit), nil
}

// nytResponse matches lists/current/<list>.json.
type nytResponse struct {
	Status  string `json:"status"`
	Results struct {
		ListName string `json:"list_name"`
		Books    []struct {
			Rank             any    `json:"rank"`
			Title            string `json:"title"`
			Author           string `json:"author"`
			Description      string `json:"description"`
			PrimaryISBN13    string `json:"primary_isbn13"`
			BookImage        string `json:"book_image"`
			AmazonProductURL string `json:"amazon_product_url"`
			BookReviewLink   string `json:"book_review_link"`
			Price            any    `json:"price"`
			Publisher        string `json:"publisher"`
		} `json:"books"`
	} `json:"results"`
}

func (n *NYT) fetch(ctx context.Context, query string) ([]book.Record, error) {
	params := url.Values{}
	params.Set("api-key", n.apiKey)
	endpoint := n.baseURL + "/lists/current/" + url.PathEscape(n.list) + ".json?" + params.Encode()

	var result nytResponse
	if err := n.getWithRetry(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	records := make([]book.Record, 0, len(result.Results.Books))
	for _, b := range result.Results.Books {
		if needle != "" &&
			!strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Author), needle) &&
			!strings.Contains(strings.ToLower(b.Description), needle) {
			continue
		}

		price := book.ParseFloat(b.Price)
		var priceText string
		if price > 0 {
			priceText = fmt.Sprintf("USD %.2f", price)
		}

		infoLink := b.BookReviewLink
		if infoLink == "" {
			infoLink = b.AmazonProductURL
		}

		records = append(records, book.Record{
			ID:          b.PrimaryISBN13,
			Title:       titleCase(b.Title),
			Author:      b.Author,
			Description: cleanDescription(b.Description),
			Thumbnail:   secureURL(b.BookImage),
			PreviewLink: b.AmazonProductURL,
			InfoLink:    infoLink,
			ISBN13:      firstISBN13([]string{b.PrimaryISBN13}),
			Price:       priceText,
			PriceValue:  price,
			Rating:      rankRating(book.ParseInt(b.Rank)),
			Source:      book.SourceNYT,
		}.Normalize())
	}
	return records, nil
}

// getWithRetry retries HTTP 429 up to nytMaxRetries times, doubling the
// wait from two units. Any other failure aborts immediately.
func (n *NYT) getWithRetry(ctx context.Context, endpoint string, out any) error {
	wait := 2 * n.retryUnit
	for attempt := 1; ; attempt++ {
		err := n.getJSON(ctx, endpoint, out)
		var statusErr *StatusError
		if !stderrors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt > nytMaxRetries {
			return errors.NewRateLimitError(string(n.tag), attempt)
		}

		slog.Debug("NYT rate limited, backing off", "attempt", attempt, "wait", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		wait *= 2
	}
}

// rankRating turns a list rank into a 0-5 rating: 5 - rank/5, never negative.
func rankRating(rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return max(0, 5-float64(rank)/5)
}

// titleCase rewrites NYT's all-caps titles in title case. Titles already
// in mixed case are kept.
func titleCase(s string) string {
	if s != strings.ToUpper(s) {
		return s
	}
	// a Caser is stateful, so one per call
	title := cases.Title(language.English).String(strings.ToLower(s))
	return strings.Join(strings.Fields(title), " ")
}

func head(records []book.Record, limit int) []book.Record {
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return slices.Clone(records)
}
