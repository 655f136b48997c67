package cmdutil

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lepinkainen/bookfinder/internal/datastore"
	"github.com/spf13/viper"
)

// DatasetteDatabase is the database name used for remote inserts.
const DatasetteDatabase = "bookfinder"

// openDatastore returns the store selected by datasette.mode.
func openDatastore(ctx context.Context) (datastore.Store, error) {
	var store datastore.Store
	switch mode := viper.GetString("datasette.mode"); mode {
	case "", "local":
		store = datastore.NewSQLiteStore(viper.GetString("datasette.dbfile"))
	case "remote":
		store = datastore.NewRemoteStore(
			viper.GetString("datasette.remote_url"),
			DatasetteDatabase,
			viper.GetString("datasette.api_token"),
		)
	default:
		return nil, fmt.Errorf("invalid datasette.mode %q: want local or remote", mode)
	}

	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// WriteToDatastore converts items with toRow and writes them to table when
// datasette.enabled is set. It does nothing otherwise.
func WriteToDatastore[T any](ctx context.Context, items []T, table datastore.Table, what string, toRow func(T) datastore.Row) error {
	if !viper.GetBool("datasette.enabled") {
		return nil
	}

	store, err := openDatastore(ctx)
	if err != nil {
		return fmt.Errorf("export %s: %w", what, err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Prepare(ctx, table); err != nil {
		return fmt.Errorf("export %s: %w", what, err)
	}

	rows := make([]datastore.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, toRow(item))
	}
	if err := store.Insert(ctx, table.Name, rows); err != nil {
		return fmt.Errorf("export %s: %w", what, err)
	}

	slog.Info("Exported to Datasette", "what", what, "table", table.Name, "rows", len(rows))
	return nil
}
