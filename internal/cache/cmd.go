package cache

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// InvalidateCacheCmd represents the cache invalidate subcommand
type InvalidateCacheCmd struct {
	Source      string `arg:"" help:"Source to clear: google_books, openlibrary, gutendx, nyt or all" required:""`
	ExpiredOnly bool   `help:"Only remove entries whose TTL has passed"`
}

func (i *InvalidateCacheCmd) Run() error {
	sources, err := resolveSources(i.Source)
	if err != nil {
		return err
	}

	store, err := Shared()
	if err != nil {
		return err
	}

	ttl := TTL()
	for _, source := range sources {
		var n int64
		if i.ExpiredOnly {
			n, err = store.PurgeExpired(source, ttl)
		} else {
			n, err = store.Purge(source)
		}
		if err != nil {
			return err
		}
		slog.Info("Cache invalidated", "source", source, "rows_deleted", n, "expired_only", i.ExpiredOnly)
	}
	return nil
}

func resolveSources(arg string) ([]string, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch {
	case arg == "all":
		return SearchSources, nil
	case slices.Contains(SearchSources, arg):
		return []string{arg}, nil
	}
	return nil, fmt.Errorf("unknown cache source %q, want one of %s or all", arg, strings.Join(SearchSources, ", "))
}
