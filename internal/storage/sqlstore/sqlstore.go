// Package sqlstore is the on-device SQL backend: one typed snake_case table
// per syncable entity, stored in SQLite through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
	"github.com/hyperengineering/chronolog/internal/storage/sidecar"
	"github.com/hyperengineering/chronolog/internal/storage/sqlstore/migrations"
)

// FileName is the database file name inside a profile directory.
const FileName = "chronolog.db"

// Store is a local SQL store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// Open opens or creates the store at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlstore: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open database: %w", err)
	}
	// The local store has a single writer.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
		}
	}

	if err := sidecar.Migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database. Further calls fail with model.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) read() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, model.ErrStoreClosed
	}
	return s.mu.RUnlock, nil
}

func (s *Store) write() (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.ErrStoreClosed
	}
	return s.mu.Unlock, nil
}

func (s *Store) GetAll(ctx context.Context, table string) ([]model.Row, error) {
	return s.Query(ctx, table, nil)
}

// GetByID returns nil, nil when the row does not exist.
func (s *Store) GetByID(ctx context.Context, table, id string) (model.Row, error) {
	t, err := model.Lookup(table)
	if err != nil {
		return nil, err
	}
	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	r, err := sqlrow.Get(ctx, s.db, t, id)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return r, nil
}

// Query returns rows whose columns equal every filter value.
func (s *Store) Query(ctx context.Context, table string, filter map[string]any) ([]model.Row, error) {
	t, err := model.Lookup(table)
	if err != nil {
		return nil, err
	}
	f, err := model.NormalizePartial(t, filter)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: filter: %w", err)
	}
	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := sqlrow.Select(ctx, s.db, t, f)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return rows, nil
}

// Put replaces the row stored under the row's primary key.
func (s *Store) Put(ctx context.Context, table string, row model.Row) error {
	return s.BulkPut(ctx, table, []model.Row{row})
}

// BulkPut writes all rows in one transaction.
func (s *Store) BulkPut(ctx context.Context, table string, rows []model.Row) error {
	t, err := model.Lookup(table)
	if err != nil {
		return err
	}
	normalized := make([]model.Row, len(rows))
	for i, r := range rows {
		n, err := model.Normalize(t, r)
		if err != nil {
			return fmt.Errorf("sqlstore: bulk put: %w", err)
		}
		if _, err := t.RowID(n); err != nil {
			return fmt.Errorf("sqlstore: bulk put: %w", err)
		}
		normalized[i] = n
	}

	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range normalized {
		if err := sqlrow.Replace(ctx, tx, t, r); err != nil {
			return fmt.Errorf("sqlstore: bulk put: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit bulk put %s: %w", table, err)
	}
	return nil
}

// Delete removes a row. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	t, err := model.Lookup(table)
	if err != nil {
		return err
	}
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := sqlrow.Remove(ctx, s.db, t, id); err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, table string) error {
	t, err := model.Lookup(table)
	if err != nil {
		return err
	}
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t.SQLName()); err != nil {
		return fmt.Errorf("sqlstore: clear %s: %w", table, err)
	}
	return nil
}
