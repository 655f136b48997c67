package sources

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/errors"
	"github.com/stretchr/testify/require"
)

const googleBooksFixture = `{
	"totalItems": 3,
	"items": [
		{
			"id": "B1gv0lume",
			"volumeInfo": {
				"title": "Dune",
				"authors": ["Frank Herbert", "Brian Herbert"],
				"description": "<p>Set on the desert planet <b>Arrakis</b>, Dune is the story of the boy Paul Atreides.</p>",
				"publishedDate": "1965",
				"pageCount": 412,
				"averageRating": 4.5,
				"previewLink": "http://books.google.com/books?id=B1gv0lume&printsec=frontcover",
				"infoLink": "https://books.google.com/books?id=B1gv0lume",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0441013597"},
					{"type": "ISBN_13", "identifier": "9780441013593"}
				],
				"imageLinks": {"thumbnail": "http://books.google.com/books/content?id=B1gv0lume&img=1&zoom=1"}
			},
			"saleInfo": {
				"saleability": "FOR_SALE",
				"listPrice": {"amount": 9.99, "currencyCode": "USD"}
			}
		},
		{
			"id": "fr33",
			"volumeInfo": {
				"title": "Public Domain Classic",
				"pageCount": "not a number",
				"averageRating": "4.0"
			},
			"saleInfo": {"saleability": "FREE"}
		},
		{
			"id": "bare",
			"volumeInfo": {}
		}
	]
}`

func TestGoogleBooksSearchMapsVolumes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "dune", q.Get("q"))
		require.Equal(t, "5", q.Get("maxResults"))
		require.Equal(t, "books", q.Get("printType"))
		require.Equal(t, "test-key", q.Get("key"))
		_, _ = w.Write([]byte(googleBooksFixture))
	})
	server := newIPv4TestServer(t, mux)

	gb := NewGoogleBooks(testOptions(server, WithAPIKey("test-key"))...)
	records, err := gb.Search(context.Background(), "dune", 5)
	require.NoError(t, err)
	require.Len(t, records, 3)

	dune := records[0]
	require.Equal(t, "B1gv0lume", dune.ID)
	require.Equal(t, "Dune", dune.Title)
	require.Equal(t, "Frank Herbert, Brian Herbert", dune.Author)
	require.Equal(t, "Set on the desert planet Arrakis, Dune is the story of the boy Paul Atreides.", dune.Description)
	require.True(t, strings.HasPrefix(dune.Thumbnail, "https://books.google.com/"))
	require.Equal(t, "1965", dune.PublishedDate)
	require.Equal(t, 412, dune.PageCount)
	require.Equal(t, "9780441013593", dune.ISBN13)
	require.Equal(t, "USD 9.99", dune.Price)
	require.Equal(t, 9.99, dune.PriceValue)
	require.Equal(t, 4.5, dune.Rating)
	require.Equal(t, book.SourceGoogleBooks, dune.Source)
	require.NotNil(t, dune.Reviews)

	free := records[1]
	require.Equal(t, "Free", free.Price)
	require.Zero(t, free.PriceValue)
	require.Zero(t, free.PageCount, "malformed page count coerces to 0")
	require.Equal(t, 4.0, free.Rating)

	bare := records[2]
	require.Equal(t, book.UnknownTitle, bare.Title)
	require.Equal(t, book.UnknownAuthor, bare.Author)
	require.Equal(t, book.NoDescription, bare.Description)
}

func TestGoogleBooksTruncatesLongDescriptions(t *testing.T) {
	long := strings.Repeat("ab ", 200)
	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"x","volumeInfo":{"title":"Long","description":"` + long + `"}}]}`))
	})
	server := newIPv4TestServer(t, mux)

	records, err := NewGoogleBooks(testOptions(server)...).Search(context.Background(), "long", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, []rune(records[0].Description), 303)
	require.True(t, strings.HasSuffix(records[0].Description, "..."))
}

func TestGoogleBooksNon200IsSourceUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	server := newIPv4TestServer(t, mux)

	records, err := NewGoogleBooks(testOptions(server)...).Search(context.Background(), "dune", 10)
	require.Error(t, err)
	require.True(t, errors.IsSourceUnavailable(err))
	require.Contains(t, err.Error(), "status 503")
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestGoogleBooksEmptyQuerySkipsRequest(t *testing.T) {
	var hits atomic.Int32
	server := newIPv4TestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))

	records, err := NewGoogleBooks(testOptions(server)...).Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	require.Empty(t, records)
	require.Zero(t, hits.Load())
}

func TestGooglePrice(t *testing.T) {
	tests := []struct {
		name        string
		saleability string
		amount      any
		currency    string
		wantText    string
		wantValue   float64
	}{
		{name: "list price", saleability: "FOR_SALE", amount: 12.5, currency: "EUR", wantText: "EUR 12.50", wantValue: 12.5},
		{name: "free", saleability: "FREE", amount: 3.0, currency: "USD", wantText: "Free"},
		{name: "not for sale", saleability: "NOT_FOR_SALE", amount: nil},
		{name: "string amount", saleability: "FOR_SALE", amount: "4.20", currency: "USD", wantText: "USD 4.20", wantValue: 4.2},
		{name: "no currency", saleability: "FOR_SALE", amount: 1.0, wantText: "1.00", wantValue: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, value := googlePrice(tt.saleability, tt.amount, tt.currency)
			require.Equal(t, tt.wantText, text)
			require.Equal(t, tt.wantValue, value)
		})
	}
}
