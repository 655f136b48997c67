// Package sources implements the external book catalogs searched alongside
// the local catalog: Google Books, Open Library, Gutendex and the NYT Best
// Sellers lists. Every adapter maps its upstream JSON onto book.Record.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/cache"
	"github.com/lepinkainen/bookfinder/internal/errors"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 10 * time.Second

// Option configures an adapter.
type Option func(*client)

// WithBaseURL points the adapter at a different API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLimiter replaces the adapter's outbound rate limiter.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *client) {
		c.limiter = l
	}
}

// WithAPIKey sets the key sent to APIs that take one.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

// WithoutCache disables the sqlite response cache.
func WithoutCache() Option {
	return func(c *client) {
		c.cached = false
	}
}

// client holds the transport shared by every adapter.
type client struct {
	tag     book.SourceTag
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *ratelimit.Limiter
	breaker *breaker
	cached  bool
}

func newClient(tag book.SourceTag, name, baseURL string, limiter *ratelimit.Limiter, opts []Option) *client {
	c := &client{
		tag:     tag,
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: limiter,
		cached:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = newBreaker(string(tag))
	return c
}

// search runs fetch behind the response cache and the circuit breaker.
// Only upstream calls count towards the breaker; cache hits never do.
func (c *client) search(ctx context.Context, query string, limit int, fetch func(context.Context) ([]book.Record, error)) ([]book.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []book.Record{}, nil
	}

	guarded := func() ([]book.Record, error) {
		return c.breaker.execute(func() ([]book.Record, error) {
			return fetch(ctx)
		})
	}

	var (
		records []book.Record
		err     error
	)
	if c.cached {
		key := strings.ToLower(query) + "|" + strconv.Itoa(limit)
		records, _, err = cache.Fetch(string(c.tag), key, guarded,
			cache.EmptyTTL(func(r []book.Record) bool { return len(r) == 0 }))
	} else {
		records, err = guarded()
	}
	if err != nil {
		return []book.Record{}, errors.NewSourceUnavailableError(string(c.tag), err)
	}
	if records == nil {
		records = []book.Record{}
	}
	return records, nil
}

// getJSON performs a rate-limited GET and decodes a 200 response into out.
// Non-200 responses are returned as a *StatusError.
func (c *client) getJSON(ctx context.Context, url string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Source: c.name, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StatusError reports an unexpected HTTP status from an upstream API.
type StatusError struct {
	Source     string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d", e.Source, e.StatusCode)
}

// Collect queries src and never fails: errors are logged and an empty slice returned.
func Collect(ctx context.Context, src book.Source, query string, limit int) []book.Record {
	records, err := src.Search(ctx, query, limit)
	if err != nil {
		slog.Warn("Source search failed", "source", src.Tag(), "query", query, "error", err)
		return []book.Record{}
	}
	return records
}
