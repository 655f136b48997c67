package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/lepinkainen/bookfinder/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type volume struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	env := testutil.NewTestEnv(t)
	store, err := Open(env.Path("cache.db"), "google_books", "nyt")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// useShared installs a fresh shared cache for the test.
func useShared(t *testing.T) *Store {
	t.Helper()

	testutil.ResetConfig(t)
	testutil.SetupTestCache(t, testutil.NewTestEnv(t))
	require.NoError(t, ResetShared())
	t.Cleanup(func() { _ = ResetShared() })

	store, err := Shared()
	require.NoError(t, err)
	return store
}

func fixClock(t *testing.T, start time.Time) *time.Time {
	t.Helper()

	current := start
	orig := now
	now = func() time.Time { return current }
	t.Cleanup(func() { now = orig })
	return &current
}

func TestStorePutLookup(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put("google_books", "dune|10", []byte(`{"id":"zyTCAlFPjgYC"}`), 0))

	data, ok, err := store.Lookup("google_books", "dune|10", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"zyTCAlFPjgYC"}`, string(data))

	_, ok, err = store.Lookup("google_books", "emma|10", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	// tables are per source
	_, ok, err = store.Lookup("nyt", "dune|10", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreLookupTTL(t *testing.T) {
	store := openTestStore(t)
	clock := fixClock(t, time.Unix(1_700_000_000, 0))

	require.NoError(t, store.Put("nyt", "k", []byte(`[]`), 0))

	*clock = clock.Add(59 * time.Minute)
	_, ok, err := store.Lookup("nyt", "k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	*clock = clock.Add(time.Minute)
	_, ok, err = store.Lookup("nyt", "k", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreEntryExpiryOverridesLookupTTL(t *testing.T) {
	store := openTestStore(t)
	clock := fixClock(t, time.Unix(1_700_000_000, 0))

	require.NoError(t, store.Put("nyt", "short", []byte(`[]`), 10*time.Minute))
	require.NoError(t, store.Put("nyt", "long", []byte(`[]`), 48*time.Hour))

	*clock = clock.Add(11 * time.Minute)
	_, ok, err := store.Lookup("nyt", "short", time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	*clock = clock.Add(24 * time.Hour)
	_, ok, err = store.Lookup("nyt", "long", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStorePurgeExpired(t *testing.T) {
	store := openTestStore(t)
	clock := fixClock(t, time.Unix(1_700_000_000, 0))

	require.NoError(t, store.Put("nyt", "old", []byte(`[]`), 0))
	require.NoError(t, store.Put("nyt", "short", []byte(`[]`), time.Minute))
	*clock = clock.Add(2 * time.Hour)
	require.NoError(t, store.Put("nyt", "fresh", []byte(`[]`), 0))

	n, err := store.PurgeExpired("nyt", time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.True(t, store.Has("nyt", "fresh"))
	require.False(t, store.Has("nyt", "old"))
}

func TestStorePurge(t *testing.T) {
	store := openTestStore(t)

	for _, key := range []string{"dune", "emma", "ulysses"} {
		require.NoError(t, store.Put("google_books", key, []byte(`[]`), 0))
	}
	require.NoError(t, store.Put("nyt", "dune", []byte(`[]`), 0))

	n, err := store.Purge("google_books")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.True(t, store.Has("nyt", "dune"))

	n, err = store.Purge("google_books")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStoreRejectsUnknownSource(t *testing.T) {
	store := openTestStore(t)

	_, err := store.Purge("books; DROP TABLE books")
	require.ErrorContains(t, err, "no cache table")
	require.Error(t, store.Put("gutendx", "k", []byte(`[]`), 0))
	_, _, err = store.Lookup("gutendx", "k", time.Hour)
	require.Error(t, err)
	require.False(t, store.Has("gutendx", "k"))
}

func TestFetchCachesResult(t *testing.T) {
	store := useShared(t)

	calls := 0
	fetch := func() (volume, error) {
		calls++
		return volume{ID: "zyTCAlFPjgYC", Title: "Dune"}, nil
	}

	got, hit, err := Fetch("google_books", "dune", fetch, nil)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "Dune", got.Title)

	got, hit, err = Fetch("google_books", "dune", fetch, nil)
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, volume{ID: "zyTCAlFPjgYC", Title: "Dune"}, got)
	require.Equal(t, 1, calls)
	require.True(t, store.Has("google_books", "dune"))
}

func TestFetchErrorIsNotCached(t *testing.T) {
	store := useShared(t)

	boom := errors.New("upstream down")
	_, _, err := Fetch("nyt", "k", func() (volume, error) { return volume{}, boom }, nil)
	require.ErrorIs(t, err, boom)
	require.False(t, store.Has("nyt", "k"))
}

func TestFetchReplacesUndecodableEntry(t *testing.T) {
	store := useShared(t)
	require.NoError(t, store.Put("nyt", "k", []byte(`not json`), 0))

	got, hit, err := Fetch("nyt", "k", func() (volume, error) { return volume{Title: "Emma"}, nil }, nil)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, "Emma", got.Title)

	data, ok, err := store.Lookup("nyt", "k", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":"","title":"Emma"}`, string(data))
}

func TestFetchKeepsEmptyResultsBriefly(t *testing.T) {
	useShared(t)
	clock := fixClock(t, time.Unix(1_700_000_000, 0))

	calls := 0
	fetch := func() ([]volume, error) {
		calls++
		return nil, nil
	}
	ttl := EmptyTTL(func(v []volume) bool { return len(v) == 0 })

	_, _, err := Fetch("gutendx", "nothing", fetch, ttl)
	require.NoError(t, err)

	*clock = clock.Add(5 * time.Minute)
	_, hit, err := Fetch("gutendx", "nothing", fetch, ttl)
	require.NoError(t, err)
	require.True(t, hit)

	*clock = clock.Add(6 * time.Minute)
	_, hit, err = Fetch("gutendx", "nothing", fetch, ttl)
	require.NoError(t, err)
	require.False(t, hit)
	require.Equal(t, 2, calls)
}

func TestEmptyTTL(t *testing.T) {
	testutil.ResetConfig(t)
	viper.Set("cache.search_ttl", "2h")

	ttl := EmptyTTL(func(n int) bool { return n == 0 })
	require.Equal(t, NegativeCacheTTL, ttl(0))
	require.Equal(t, 2*time.Hour, ttl(3))
}

func TestTTLFallsBack(t *testing.T) {
	testutil.ResetConfig(t)

	require.Equal(t, DefaultCacheTTL, TTL())
	viper.Set("cache.search_ttl", "bogus")
	require.Equal(t, DefaultCacheTTL, TTL())
	viper.Set("cache.search_ttl", "-5m")
	require.Equal(t, DefaultCacheTTL, TTL())
	viper.Set("cache.search_ttl", "15m")
	require.Equal(t, 15*time.Minute, TTL())
}

func TestSharedCreatesSourceTables(t *testing.T) {
	store := useShared(t)

	for _, source := range SearchSources {
		require.NoError(t, store.Put(source, "k", []byte(`[]`), 0), source)
	}
	require.Equal(t, "nyt_search_cache", SearchTable("nyt"))
}

func TestInvalidateCacheCmd(t *testing.T) {
	store := useShared(t)
	clock := fixClock(t, time.Unix(1_700_000_000, 0))

	require.NoError(t, store.Put("nyt", "old", []byte(`[]`), time.Minute))
	require.NoError(t, store.Put("nyt", "fresh", []byte(`[]`), 0))
	require.NoError(t, store.Put("google_books", "dune", []byte(`[]`), 0))
	*clock = clock.Add(2 * time.Minute)

	require.NoError(t, (&InvalidateCacheCmd{Source: "nyt", ExpiredOnly: true}).Run())
	require.False(t, store.Has("nyt", "old"))
	require.True(t, store.Has("nyt", "fresh"))

	require.NoError(t, (&InvalidateCacheCmd{Source: "all"}).Run())
	require.False(t, store.Has("nyt", "fresh"))
	require.False(t, store.Has("google_books", "dune"))

	require.Error(t, (&InvalidateCacheCmd{Source: "amazon"}).Run())
}

func TestResolveSources(t *testing.T) {
	all, err := resolveSources("ALL")
	require.NoError(t, err)
	require.Equal(t, SearchSources, all)

	one, err := resolveSources(" gutendx ")
	require.NoError(t, err)
	require.Equal(t, []string{"gutendx"}, one)

	_, err = resolveSources("amazon")
	require.ErrorContains(t, err, `unknown cache source "amazon"`)
}
