package testutil

import (
	"slices"
	"testing"

	"github.com/lepinkainen/bookfinder/internal/config"
	"github.com/spf13/viper"
)

// snapshotConfig copies the config package globals and returns a function
// that puts them back.
func snapshotConfig() (restore func()) {
	googleKey, nytKey, nytList := config.GoogleBooksAPIKey, config.NYTAPIKey, config.NYTList
	sourcesTimeout, searchTimeout := config.SourcesTimeout, config.SearchTimeout
	limit, priority := config.SearchLimit, slices.Clone(config.SearchPriority)
	dbFile, uploadDir, maxUpload := config.CatalogDBFile, config.UploadDir, config.MaxUploadBytes

	return func() {
		config.GoogleBooksAPIKey, config.NYTAPIKey, config.NYTList = googleKey, nytKey, nytList
		config.SourcesTimeout, config.SearchTimeout = sourcesTimeout, searchTimeout
		config.SearchLimit, config.SearchPriority = limit, priority
		config.CatalogDBFile, config.UploadDir, config.MaxUploadBytes = dbFile, uploadDir, maxUpload
	}
}

// ResetConfig clears viper for the duration of the test and restores the
// config globals afterwards.
func ResetConfig(t testing.TB) {
	t.Helper()

	restore := snapshotConfig()
	viper.Reset()
	t.Cleanup(func() {
		restore()
		viper.Reset()
	})
}

// Option adjusts the configuration installed by SetTestConfigWithOptions.
type Option func()

// WithGoogleBooksAPIKey replaces the dummy Google Books key.
func WithGoogleBooksAPIKey(key string) Option {
	return func() { config.GoogleBooksAPIKey = key }
}

// WithNYTAPIKey enables the NYT source.
func WithNYTAPIKey(key string) Option {
	return func() { config.NYTAPIKey = key }
}

// WithCatalog points the catalog database and upload directory at test paths.
func WithCatalog(dbFile, uploadDir string) Option {
	return func() {
		config.CatalogDBFile = dbFile
		config.UploadDir = uploadDir
	}
}

// SetTestConfig installs the default configuration with a dummy Google
// Books key and the NYT source disabled.
func SetTestConfig(t testing.TB) {
	t.Helper()
	SetTestConfigWithOptions(t)
}

// SetTestConfigWithOptions installs the default configuration and then
// applies opts. Everything is restored when the test ends.
func SetTestConfigWithOptions(t testing.TB, opts ...Option) {
	t.Helper()

	ResetConfig(t)
	config.InitConfig()
	config.GoogleBooksAPIKey = "test-google-books-key"
	config.NYTAPIKey = ""
	for _, opt := range opts {
		opt()
	}
}

// SetViperValue sets key for the duration of the test.
func SetViperValue(t testing.TB, key string, value any) {
	t.Helper()

	prev, wasSet := viper.Get(key), viper.IsSet(key)
	viper.Set(key, value)
	t.Cleanup(func() {
		if wasSet {
			viper.Set(key, prev)
		}
	})
}

// SetupTestCache points the response cache at a database inside env and
// returns the cache directory.
func SetupTestCache(t testing.TB, env *TestEnv) string {
	t.Helper()

	env.MkdirAll("cache")
	SetViperValue(t, "cache.dbfile", env.Path("cache", "test-cache.db"))
	SetViperValue(t, "cache.search_ttl", "24h")
	return env.Path("cache")
}

// SetupDatasetteDB enables the local Datasette export into a database
// inside env and returns its path.
func SetupDatasetteDB(t testing.TB, env *TestEnv) string {
	t.Helper()

	dbPath := env.Path("export.db")
	SetViperValue(t, "datasette.enabled", true)
	SetViperValue(t, "datasette.mode", "local")
	SetViperValue(t, "datasette.dbfile", dbPath)
	return dbPath
}
