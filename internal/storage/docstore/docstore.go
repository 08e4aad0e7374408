// Package docstore is the document backend: every row is a JSON document in
// a (collection, id) keyed table, stored with the ncruces/go-sqlite3 engine.
package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
	"github.com/hyperengineering/chronolog/internal/storage/docstore/migrations"
	"github.com/hyperengineering/chronolog/internal/storage/sidecar"
)

// FileName is the database file name inside a profile directory. Its presence
// selects this backend.
const FileName = "chronolog.docdb"

// Store is a local document store.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
}

// Open opens or creates the store at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("docstore: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("docstore: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: set busy timeout: %w", err)
	}

	if err := sidecar.Migrate(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("docstore: %w", err)
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

func encode(r model.Row) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(t *model.Table, body string) (model.Row, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", t.Name, err)
	}
	return model.Normalize(t, m)
}

func (s *Store) GetAll(ctx context.Context, table string) ([]model.Row, error) {
	return s.Query(ctx, table, nil)
}

// GetByID returns nil, nil when the document does not exist.
func (s *Store) GetByID(ctx context.Context, table, id string) (model.Row, error) {
	t, err := model.Lookup(table)
	if err != nil {
		return nil, err
	}
	id, err = t.CanonicalID(id)
	if err != nil {
		return nil, err
	}
	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, table, id)
	if err != nil {
		return nil, fmt.Errorf("docstore: get %s: %w", table, err)
	}
	out, err := scan(rows, t)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// Query filters documents inside the engine with json_extract and returns
// them in primary key order.
func (s *Store) Query(ctx context.Context, table string, filter map[string]any) ([]model.Row, error) {
	t, err := model.Lookup(table)
	if err != nil {
		return nil, err
	}
	f, err := model.NormalizePartial(t, filter)
	if err != nil {
		return nil, fmt.Errorf("docstore: filter: %w", err)
	}

	query := `SELECT body FROM documents WHERE collection = ?`
	args := []any{table}
	for _, c := range t.Columns {
		v, ok := f[c.Name]
		if !ok {
			continue
		}
		query += ` AND json_extract(body, ?) IS ?`
		args = append(args, "$."+c.Name, sqlrow.Value(v))
	}

	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: query %s: %w", table, err)
	}
	out, err := scan(rows, t)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, t.CompareKeys)
	return out, nil
}

func scan(rows *sql.Rows, t *model.Table) ([]model.Row, error) {
	defer func() { _ = rows.Close() }()
	out := []model.Row{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", t.Name, err)
		}
		r, err := decode(t, body)
		if err != nil {
			return nil, fmt.Errorf("docstore: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: scan %s: %w", t.Name, err)
	}
	return out, nil
}

// Put replaces the document stored under the row's primary key.
func (s *Store) Put(ctx context.Context, table string, row model.Row) error {
	return s.BulkPut(ctx, table, []model.Row{row})
}

// BulkPut writes all documents in one transaction.
func (s *Store) BulkPut(ctx context.Context, table string, rows []model.Row) error {
	t, err := model.Lookup(table)
	if err != nil {
		return err
	}
	type doc struct{ id, body string }
	docs := make([]doc, len(rows))
	for i, r := range rows {
		n, err := model.Normalize(t, r)
		if err != nil {
			return fmt.Errorf("docstore: bulk put: %w", err)
		}
		id, err := t.RowID(n)
		if err != nil {
			return fmt.Errorf("docstore: bulk put: %w", err)
		}
		body, err := encode(n)
		if err != nil {
			return fmt.Errorf("docstore: bulk put: %w", err)
		}
		docs[i] = doc{id: id, body: body}
	}

	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("docstore: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, d := range docs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO documents (collection, id, body) VALUES (?, ?, ?)`,
			table, d.id, d.body); err != nil {
			return fmt.Errorf("docstore: put %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("docstore: commit bulk put %s: %w", table, err)
	}
	return nil
}

// Delete removes a document. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	t, err := model.Lookup(table)
	if err != nil {
		return err
	}
	id, err = t.CanonicalID(id)
	if err != nil {
		return err
	}
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, table, id); err != nil {
		return fmt.Errorf("docstore: delete %s: %w", table, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, table string) error {
	if _, err := model.Lookup(table); err != nil {
		return err
	}
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, table); err != nil {
		return fmt.Errorf("docstore: clear %s: %w", table, err)
	}
	return nil
}
