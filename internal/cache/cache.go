// Package cache keeps upstream search responses in sqlite so repeated
// queries skip the network, plus a small in-memory TTL map.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/bookfinder/internal/metrics"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"
)

const (
	// DefaultCacheTTL applies when cache.search_ttl is unset or invalid.
	DefaultCacheTTL = time.Hour
	// NegativeCacheTTL is how long an empty response is kept.
	NegativeCacheTTL = 10 * time.Minute
)

var now = time.Now

// Store is a sqlite response cache with one table per source. Only the
// sources it was opened with can be read or written.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	tables map[string]string
}

// Open opens the cache database at path and creates a table for every
// source.
func Open(path string, sources ...string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("open cache %s: %w", path, err), db.Close())
	}

	s := &Store{db: db, tables: make(map[string]string, len(sources))}
	for _, source := range sources {
		table := SearchTable(source)
		if _, err := db.Exec(tableSchema(table)); err != nil {
			return nil, errors.Join(fmt.Errorf("create cache table %s: %w", table, err), db.Close())
		}
		s.tables[source] = table
	}
	return s, nil
}

func (s *Store) table(source string) (string, error) {
	table, ok := s.tables[source]
	if !ok {
		return "", fmt.Errorf("no cache table for source %q", source)
	}
	return table, nil
}

// Lookup returns the entry stored for key. Entries carrying their own
// expiry ignore ttl.
func (s *Store) Lookup(source, key string, ttl time.Duration) ([]byte, bool, error) {
	table, err := s.table(source)
	if err != nil {
		return nil, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		data                string
		cachedAt, expiresAt int64
	)
	err = s.db.QueryRow(
		fmt.Sprintf(`SELECT data, cached_at, expires_at FROM %s WHERE cache_key = ?`, table), key,
	).Scan(&data, &cachedAt, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("read %s from cache: %w", key, err)
	}

	deadline := time.Unix(cachedAt, 0).Add(ttl)
	if expiresAt > 0 {
		deadline = time.Unix(expiresAt, 0)
	}
	if !now().Before(deadline) {
		slog.Debug("Cache entry expired", "source", source, "key", key)
		return nil, false, nil
	}
	return []byte(data), true, nil
}

// Put stores data under key. A zero ttl leaves the expiry to Lookup.
func (s *Store) Put(source, key string, data []byte, ttl time.Duration) error {
	table, err := s.table(source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = stored.Add(ttl).Unix()
	}
	_, err = s.db.Exec(
		fmt.Sprintf(`INSERT OR REPLACE INTO %s (cache_key, data, cached_at, expires_at) VALUES (?, ?, ?, ?)`, table),
		key, string(data), stored.Unix(), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("write %s to cache: %w", key, err)
	}
	return nil
}

// Has reports whether any entry, expired or not, exists for key.
func (s *Store) Has(source, key string) bool {
	table, err := s.table(source)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	return s.db.QueryRow(fmt.Sprintf(`SELECT 1 FROM %s WHERE cache_key = ?`, table), key).Scan(&one) == nil
}

// Purge deletes every entry of source.
func (s *Store) Purge(source string) (int64, error) {
	return s.delete(source, "", nil)
}

// PurgeExpired deletes the entries of source that Lookup would no longer
// return, using ttl for entries without their own expiry.
func (s *Store) PurgeExpired(source string, ttl time.Duration) (int64, error) {
	current := now()
	return s.delete(source,
		`WHERE (expires_at > 0 AND expires_at <= ?) OR (expires_at = 0 AND cached_at <= ?)`,
		[]any{current.Unix(), current.Add(-ttl).Unix()})
}

func (s *Store) delete(source, where string, args []any) (int64, error) {
	table, err := s.table(source)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s %s`, table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("purge %s cache: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("Purged cache entries", "source", source, "rows", n)
	return n, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var (
	sharedMu sync.Mutex
	shared   *Store
)

// Shared returns the process-wide cache at cache.dbfile, opening it on
// first use.
func Shared() (*Store, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}
	path := viper.GetString("cache.dbfile")
	if path == "" {
		path = "./cache.db"
	}
	s, err := Open(path, SearchSources...)
	if err != nil {
		return nil, err
	}
	shared = s
	return shared, nil
}

// ResetShared closes the shared cache so the next Shared call reopens it
// with the current configuration.
func ResetShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return nil
	}
	err := shared.Close()
	shared = nil
	return err
}

// TTL returns cache.search_ttl, or DefaultCacheTTL when it is unset or
// not a positive duration.
func TTL() time.Duration {
	raw := viper.GetString("cache.search_ttl")
	if raw == "" {
		return DefaultCacheTTL
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil || ttl <= 0 {
		slog.Warn("Invalid cache TTL, using default", "ttl", raw, "default", DefaultCacheTTL)
		return DefaultCacheTTL
	}
	return ttl
}

// EmptyTTL keeps empty results for NegativeCacheTTL and everything else
// for TTL().
func EmptyTTL[T any](isEmpty func(T) bool) func(T) time.Duration {
	return func(v T) time.Duration {
		if isEmpty(v) {
			return NegativeCacheTTL
		}
		return TTL()
	}
}

// Fetch returns the cached value for key or calls fetch and caches its
// result as JSON. ttl picks the lifetime of a fresh value; nil means TTL().
// Errors from fetch are returned and never cached. If the cache cannot be
// opened, fetch is called directly.
func Fetch[T any](source, key string, fetch func() (T, error), ttl func(T) time.Duration) (T, bool, error) {
	store, err := Shared()
	if err != nil {
		slog.Warn("Cache unavailable, fetching directly", "error", err)
		v, err := fetch()
		return v, false, err
	}

	if data, ok, err := store.Lookup(source, key, TTL()); err == nil && ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			metrics.CacheLookups.WithLabelValues(source, "hit").Inc()
			return v, true, nil
		}
		slog.Warn("Dropping undecodable cache entry", "source", source, "key", key)
	}
	metrics.CacheLookups.WithLabelValues(source, "miss").Inc()

	v, err := fetch()
	if err != nil {
		var zero T
		return zero, false, err
	}

	lifetime := TTL()
	if ttl != nil {
		lifetime = ttl(v)
	}
	data, err := json.Marshal(v)
	if err == nil {
		err = store.Put(source, key, data, lifetime)
	}
	if err != nil {
		slog.Warn("Failed to cache response", "source", source, "key", key, "error", err)
	}
	return v, false, nil
}
