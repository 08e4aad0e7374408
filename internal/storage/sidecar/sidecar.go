// Package sidecar holds the blob, mutation queue and metadata tables that
// every local backend keeps next to its row storage, plus the shared goose
// migration runner. Each backend creates the tables in its first migration:
//
//	_blobs       id -> payload
//	_sync_queue  mutations; seq keeps enqueue order for equal timestamps
//	_sync_meta   key -> value
package sidecar

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
)

// Migrate applies every pending migration in fsys.
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// PutBlob stores or replaces a payload.
func PutBlob(ctx context.Context, q sqlrow.Querier, id string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO _blobs (id, data) VALUES (?, ?)`, id, data)
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

// GetBlob returns a payload, or nil when absent.
func GetBlob(ctx context.Context, q sqlrow.Querier, id string) ([]byte, error) {
	var data []byte
	err := q.QueryRowContext(ctx, `SELECT data FROM _blobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func DeleteBlob(ctx context.Context, q sqlrow.Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM _blobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// PutQueueItem stores a mutation. Re-putting an id replaces its content and
// keeps its position.
func PutQueueItem(ctx context.Context, q sqlrow.Querier, m model.PendingMutation) error {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return fmt.Errorf("encode queue item %s: %w", m.ID, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO _sync_queue (id, table_name, entity_id, operation, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_name = excluded.table_name,
			entity_id  = excluded.entity_id,
			operation  = excluded.operation,
			data       = excluded.data,
			timestamp  = excluded.timestamp
	`, m.ID, m.Table, m.EntityID, string(m.Operation), string(data), m.Timestamp)
	if err != nil {
		return fmt.Errorf("put queue item: %w", err)
	}
	return nil
}

// QueueItems returns every queued mutation, oldest first.
func QueueItems(ctx context.Context, q sqlrow.Querier) ([]model.PendingMutation, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, table_name, entity_id, operation, data, timestamp
		FROM _sync_queue
		ORDER BY timestamp, seq
	`)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.PendingMutation{}
	for rows.Next() {
		var (
			m    model.PendingMutation
			op   string
			data string
		)
		if err := rows.Scan(&m.ID, &m.Table, &m.EntityID, &op, &data, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		m.Operation = model.Operation(op)
		if err := json.Unmarshal([]byte(data), &m.Data); err != nil {
			return nil, fmt.Errorf("decode queue item %s: %w", m.ID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return out, nil
}

func CountQueueItems(ctx context.Context, q sqlrow.Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM _sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}

func DeleteQueueItem(ctx context.Context, q sqlrow.Querier, id string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM _sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete queue item: %w", err)
	}
	return nil
}

func ClearQueue(ctx context.Context, q sqlrow.Querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM _sync_queue`); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// GetMeta reads a metadata value. ok is false when the key was never set.
func GetMeta(ctx context.Context, q sqlrow.Querier, key string) (string, bool, error) {
	var v string
	err := q.QueryRowContext(ctx, `SELECT value FROM _sync_meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}
	return v, true, nil
}

func SetMeta(ctx context.Context, q sqlrow.Querier, key, value string) error {
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO _sync_meta (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}
