package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// GoogleBooksAPIKey is optional; Google Books answers anonymous queries at a lower quota
	GoogleBooksAPIKey string
	// NYTAPIKey enables the NYT Best Sellers source
	NYTAPIKey string
	// NYTList is the best-seller list searched by the NYT source
	NYTList string
	// SourcesTimeout bounds a single upstream HTTP request
	SourcesTimeout time.Duration
	// SearchTimeout bounds a whole aggregated search
	SearchTimeout time.Duration
	// SearchLimit is the number of results requested from each source
	SearchLimit int
	// SearchPriority is the merge precedence of sources, highest first
	SearchPriority []string
	// CatalogDBFile is the sqlite file holding uploaded books, reviews and downloads
	CatalogDBFile string
	// UploadDir is where uploaded e-books are stored
	UploadDir string
	// MaxUploadBytes is the largest accepted upload
	MaxUploadBytes int64
)

// InitConfig sets defaults and populates the global configuration from viper.
func InitConfig() {
	viper.SetDefault("search.priority", []string{"uploaded", "google_books", "openlibrary", "gutendx", "nyt"})
	viper.SetDefault("search.timeout", "15s")
	viper.SetDefault("search.limit", 10)
	viper.SetDefault("sources.timeout", "10s")
	viper.SetDefault("nyt.list", "hardcover-fiction")
	viper.SetDefault("catalog.dbfile", "./bookfinder.db")
	viper.SetDefault("upload.dir", "./uploads")
	viper.SetDefault("upload.max_bytes", 50<<20)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.rate_limit", 120)
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.search_ttl", "1h")
	viper.SetDefault("datasette.enabled", false)
	viper.SetDefault("datasette.mode", "local")
	viper.SetDefault("datasette.dbfile", "./bookfinder-export.db")

	GoogleBooksAPIKey = viper.GetString("googlebooks.api_key")
	NYTAPIKey = viper.GetString("nyt.api_key")
	NYTList = viper.GetString("nyt.list")
	SourcesTimeout = clampTimeout(viper.GetDuration("sources.timeout"))
	SearchTimeout = viper.GetDuration("search.timeout")
	SearchLimit = viper.GetInt("search.limit")
	SearchPriority = viper.GetStringSlice("search.priority")
	CatalogDBFile = viper.GetString("catalog.dbfile")
	UploadDir = viper.GetString("upload.dir")
	MaxUploadBytes = viper.GetInt64("upload.max_bytes")
}

// clampTimeout keeps upstream timeouts within 8-15 seconds.
func clampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return 10 * time.Second
	case d < 8*time.Second:
		return 8 * time.Second
	case d > 15*time.Second:
		return 15 * time.Second
	}
	return d
}
