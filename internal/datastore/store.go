// Package datastore exports rows to Datasette, either as a local sqlite
// file or through a remote instance's insert API.
package datastore

import (
	"context"
	"slices"
)

// Row maps column names to values.
type Row = map[string]any

// Table names an export table and the DDL that creates it.
type Table struct {
	Name   string
	Schema string
}

// Store is a destination for exported rows.
type Store interface {
	Open(ctx context.Context) error
	// Prepare makes sure the table exists. Stores that create tables on
	// first insert may ignore it.
	Prepare(ctx context.Context, table Table) error
	// Insert writes rows, replacing any with the same primary key.
	Insert(ctx context.Context, table string, rows []Row) error
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*RemoteStore)(nil)
)

// columns returns the sorted union of column names across rows.
func columns(rows []Row) []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, row := range rows {
		for col := range row {
			if _, ok := seen[col]; !ok {
				seen[col] = struct{}{}
				cols = append(cols, col)
			}
		}
	}
	slices.Sort(cols)
	return cols
}
