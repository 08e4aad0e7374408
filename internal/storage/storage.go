// Package storage defines the local StorageAdapter contract and selects a
// backend once at startup. Callers never branch on the active backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage/docstore"
	"github.com/hyperengineering/chronolog/internal/storage/sqlstore"
)

// Adapter is a local persistent store: rows, blobs, the mutation queue and
// sync metadata. Every operation either succeeds or returns an error.
type Adapter interface {
	// GetAll returns every row of table ordered by primary key.
	GetAll(ctx context.Context, table string) ([]model.Row, error)
	// GetByID returns nil, nil when the row does not exist. Composite keys
	// are addressed with model.EncodeKey.
	GetByID(ctx context.Context, table, id string) (model.Row, error)
	// Query returns rows matching every filter column. A nil filter value
	// matches NULL. An empty filter returns every row.
	Query(ctx context.Context, table string, filter map[string]any) ([]model.Row, error)
	Put(ctx context.Context, table string, row model.Row) error
	// BulkPut writes all rows or none.
	BulkPut(ctx context.Context, table string, rows []model.Row) error
	Delete(ctx context.Context, table, id string) error
	Clear(ctx context.Context, table string) error

	PutBlob(ctx context.Context, id string, data []byte) error
	GetBlob(ctx context.Context, id string) ([]byte, error)
	DeleteBlob(ctx context.Context, id string) error

	PutSyncQueueItem(ctx context.Context, m model.PendingMutation) error
	// GetAllSyncQueueItems orders by timestamp, ties in enqueue order.
	GetAllSyncQueueItems(ctx context.Context) ([]model.PendingMutation, error)
	CountSyncQueueItems(ctx context.Context) (int, error)
	DeleteSyncQueueItem(ctx context.Context, id string) error
	ClearSyncQueue(ctx context.Context) error

	GetSyncMeta(ctx context.Context, key string) (string, bool, error)
	SetSyncMeta(ctx context.Context, key, value string) error

	Close() error
}

var (
	_ Adapter = (*sqlstore.Store)(nil)
	_ Adapter = (*docstore.Store)(nil)
)

// Backend names a storage implementation.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendSQL      Backend = "sql"
	BackendDocument Backend = "document"
)

// ErrUnknownBackend is returned for an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ParseBackend maps a configuration string to a Backend. Empty means auto.
func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "", BackendAuto:
		return BackendAuto, nil
	case BackendSQL, BackendDocument:
		return Backend(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Options configure Open.
type Options struct {
	Backend Backend
	// Dir is the profile directory that holds the database file.
	Dir string
}

// Detect picks the backend for a profile directory: an existing document
// database selects the document backend, anything else the SQL backend.
func Detect(dir string) Backend {
	if _, err := os.Stat(filepath.Join(dir, docstore.FileName)); err == nil {
		return BackendDocument
	}
	return BackendSQL
}

// Path returns the database file used by backend inside dir.
func Path(backend Backend, dir string) string {
	if backend == BackendDocument {
		return filepath.Join(dir, docstore.FileName)
	}
	return filepath.Join(dir, sqlstore.FileName)
}

// Open resolves the backend and opens the store.
func Open(ctx context.Context, opts Options) (Adapter, Backend, error) {
	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		backend = Detect(opts.Dir)
	}
	path := Path(backend, opts.Dir)
	switch backend {
	case BackendSQL:
		s, err := sqlstore.Open(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return s, backend, nil
	case BackendDocument:
		s, err := docstore.Open(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return s, backend, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
}
