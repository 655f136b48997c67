package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lepinkainen/bookfinder/internal/catalog"
	"github.com/lepinkainen/bookfinder/internal/config"
)

// Overridable in tests.
var (
	stdout io.Writer = os.Stdout

	openLibrary = func() (*catalog.Library, error) {
		store, err := catalog.Open(config.CatalogDBFile)
		if err != nil {
			return nil, err
		}
		return catalog.NewLibrary(store, config.UploadDir, config.MaxUploadBytes), nil
	}
)

// withLibrary opens the configured catalog for the duration of fn.
func withLibrary(fn func(lib *catalog.Library) error) error {
	lib, err := openLibrary()
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := lib.Store.Close(); err != nil {
			slog.Warn("Failed to close catalog", "error", err)
		}
	}()
	return fn(lib)
}

// signalContext is cancelled on interrupt or termination.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printf(format string, args ...any) {
	_, _ = fmt.Fprintf(stdout, format, args...)
}
