package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
)

const googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooks searches the Google Books volumes API.
type GoogleBooks struct {
	*client
}

// Compile-time check that GoogleBooks implements book.Source.
var _ book.Source = (*GoogleBooks)(nil)

// NewGoogleBooks creates a Google Books adapter. The API key is optional.
func NewGoogleBooks(opts ...Option) *GoogleBooks {
	return &GoogleBooks{
		client: newClient(book.SourceGoogleBooks, "Google Books", googleBooksBaseURL, ratelimit.New("GoogleBooks", 2), opts),
	}
}

// Name returns the human-readable name of this source.
func (g *GoogleBooks) Name() string { return g.name }

// Tag returns the tag stamped on Google Books records.
func (g *GoogleBooks) Tag() book.SourceTag { return g.tag }

// Search queries the volumes endpoint for printed books.
func (g *GoogleBooks) Search(ctx context.Context, query string, limit int) ([]book.Record, error) {
	return g.search(ctx, query, limit, func(ctx context.Context) ([]book.Record, error) {
		return g.fetch(ctx, query, limit)
	})
}

// googleBooksResponse matches the Google Books volumes search response.
type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title               string   `json:"title"`
			Authors             []string `json:"authors"`
			Description         string   `json:"description"`
			PublishedDate       string   `json:"publishedDate"`
			PageCount           any      `json:"pageCount"`
			AverageRating       any      `json:"averageRating"`
			PreviewLink         string   `json:"previewLink"`
			InfoLink            string   `json:"infoLink"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
		SaleInfo struct {
			Saleability string `json:"saleability"`
			ListPrice   struct {
				Amount       any    `json:"amount"`
				CurrencyCode string `json:"currencyCode"`
			} `json:"listPrice"`
		} `json:"saleInfo"`
	} `json:"items"`
}

func (g *GoogleBooks) fetch(ctx context.Context, query string, limit int) ([]book.Record, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(clampLimit(limit, 40)))
	params.Set("printType", "books")
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var result googleBooksResponse
	if err := g.getJSON(ctx, g.baseURL+"/volumes?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	records := make([]book.Record, 0, len(result.Items))
	for _, item := range result.Items {
		vol := item.VolumeInfo

		isbns := make([]string, 0, len(vol.IndustryIdentifiers))
		for _, id := range vol.IndustryIdentifiers {
			if id.Type == "ISBN_13" {
				isbns = append(isbns, id.Identifier)
			}
		}

		thumbnail := vol.ImageLinks.Thumbnail
		if thumbnail == "" {
			thumbnail = vol.ImageLinks.SmallThumbnail
		}

		price, priceValue := googlePrice(item.SaleInfo.Saleability, item.SaleInfo.ListPrice.Amount, item.SaleInfo.ListPrice.CurrencyCode)

		records = append(records, book.Record{
			ID:            item.ID,
			Title:         vol.Title,
			Author:        joinAuthors(vol.Authors),
			Description:   cleanDescription(vol.Description),
			Thumbnail:     secureURL(thumbnail),
			PublishedDate: vol.PublishedDate,
			PageCount:     book.ParseInt(vol.PageCount),
			PreviewLink:   vol.PreviewLink,
			InfoLink:      vol.InfoLink,
			ISBN13:        firstISBN13(isbns),
			Price:         price,
			PriceValue:    priceValue,
			Rating:        book.ParseFloat(vol.AverageRating),
			Source:        book.SourceGoogleBooks,
		}.Normalize())
	}
	return records, nil
}

// googlePrice formats the list price as "USD 9.99"; free books read "Free".
func googlePrice(saleability string, amount any, currency string) (string, float64) {
	if saleability == "FREE" {
		return "Free", 0
	}
	value := book.ParseFloat(amount)
	if value <= 0 {
		return "", 0
	}
	if currency == "" {
		return strconv.FormatFloat(value, 'f', 2, 64), value
	}
	return fmt.Sprintf("%s %.2f", currency, value), value
}

// clampLimit keeps limit within what an API accepts.
func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}
