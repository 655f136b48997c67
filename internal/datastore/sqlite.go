package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore writes rows to a sqlite file that Datasette can serve.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Prepare(ctx context.Context, table Table) error {
	if s.db == nil {
		return fmt.Errorf("export database %s is not open", s.path)
	}
	if _, err := s.db.ExecContext(ctx, table.Schema); err != nil {
		return fmt.Errorf("create table %s: %w", table.Name, err)
	}
	return nil
}

// Insert writes all rows in one transaction. Columns missing from a row
// are stored as NULL.
func (s *SQLiteStore) Insert(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("export database %s is not open", s.path)
	}

	cols := columns(rows)
	if len(cols) == 0 {
		return fmt.Errorf("insert into %s: rows have no columns", table)
	}
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (?%s)",
		table, strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)-1))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(cols))
	for i, row := range rows {
		for j, col := range cols {
			args[j] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
