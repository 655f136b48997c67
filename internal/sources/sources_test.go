package sources

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/cache"
	"github.com/lepinkainen/bookfinder/internal/ratelimit"
	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) Name() string        { return "Failing" }
func (failingSource) Tag() book.SourceTag { return "failing" }
func (failingSource) Search(context.Context, string, int) ([]book.Record, error) {
	return nil, errors.New("network unreachable")
}

func TestCollectNeverFails(t *testing.T) {
	records := Collect(context.Background(), failingSource{}, "dune", 5)
	require.NotNil(t, records)
	require.Empty(t, records)
}

func TestSearchResponsesAreCached(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	env := testutil.NewTestEnv(t)
	testutil.SetupTestCache(t, env)
	require.NoError(t, cache.ResetShared())
	t.Cleanup(func() { _ = cache.ResetShared() })

	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/books/", func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(gutendxFixture))
	})
	server := newIPv4TestServer(t, mux)

	g := NewGutendx(
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithLimiter(ratelimit.Unlimited("test")),
	)

	first, err := g.Search(context.Background(), "Frankenstein", 10)
	require.NoError(t, err)
	second, err := g.Search(context.Background(), "frankenstein", 10)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int32(1), hits.Load())

	_, err = g.Search(context.Background(), "frankenstein", 2)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load(), "limit is part of the cache key")
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"literal tags", "<p>A <b>desert</b> planet.</p>", "A desert planet."},
		{"entities stay escaped", "<i>Tom &amp; Jerry</i> &lt;3", "Tom &amp; Jerry &lt;3"},
		{"bare ampersand", "Tom & Jerry", "Tom &amp; Jerry"},
		{"encoded script", "A story about &lt;script&gt;alert(1)&lt;/script&gt; tags", "A story about tags"},
		{"encoded tag", "Read &lt;b onmouseover=alert(1)&gt;this&lt;/b&gt;", "Read this"},
		{"double encoded stays text", "&amp;lt;img src=x onerror=alert(1)&amp;gt;", "&amp;lt;img src=x onerror=alert(1)&amp;gt;"},
		{"whitespace", "  a\n\tb   c ", "a b c"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanDescription(tt.in)
			require.Equal(t, tt.want, got)
			require.NotContains(t, got, "<")
			require.NotContains(t, got, ">")
		})
	}
}

func TestCleanDescriptionTruncatesTextNotMarkup(t *testing.T) {
	body := strings.Repeat("x", 310)
	got := cleanDescription("<p>" + body + "</p> &lt;script&gt;alert(1)&lt;/script&gt;")

	require.Equal(t, strings.Repeat("x", maxDescriptionRunes)+"...", got)

	// an ampersand near the cut counts as one rune and is not split
	got = cleanDescription("<em>" + strings.Repeat("y", 299) + "&amp;" + "zzzz</em>")
	require.Equal(t, strings.Repeat("y", 299)+"&amp;...", got)
}

func TestSecureURL(t *testing.T) {
	require.Equal(t, "https://example.com/x.jpg", secureURL("http://example.com/x.jpg"))
	require.Equal(t, "https://example.com/x.jpg", secureURL("https://example.com/x.jpg"))
	require.Empty(t, secureURL(""))
}

func TestFirstISBN13(t *testing.T) {
	require.Equal(t, "9780441013593", firstISBN13([]string{"0441013597", "978-0-441-01359-3"}))
	require.Empty(t, firstISBN13([]string{"97804410135X3"}))
	require.Empty(t, firstISBN13(nil))
}

func TestTruncateCountsRunes(t *testing.T) {
	require.Equal(t, "ääää", truncate("ääää", 4))
	require.Equal(t, "ää...", truncate("ääää", 2))
}
