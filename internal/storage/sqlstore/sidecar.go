package sqlstore

import (
	"context"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage/sidecar"
)

func (s *Store) PutBlob(ctx context.Context, id string, data []byte) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.PutBlob(ctx, s.db, id, data))
}

// GetBlob returns nil, nil when no payload is stored under id.
func (s *Store) GetBlob(ctx context.Context, id string) ([]byte, error) {
	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()
	data, err := sidecar.GetBlob(ctx, s.db, id)
	return data, wrap(err)
}

func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.DeleteBlob(ctx, s.db, id))
}

func (s *Store) PutSyncQueueItem(ctx context.Context, m model.PendingMutation) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.PutQueueItem(ctx, s.db, m))
}

// GetAllSyncQueueItems returns queued mutations by timestamp, then enqueue order.
func (s *Store) GetAllSyncQueueItems(ctx context.Context) ([]model.PendingMutation, error) {
	unlock, err := s.read()
	if err != nil {
		return nil, err
	}
	defer unlock()
	items, err := sidecar.QueueItems(ctx, s.db)
	return items, wrap(err)
}

func (s *Store) CountSyncQueueItems(ctx context.Context) (int, error) {
	unlock, err := s.read()
	if err != nil {
		return 0, err
	}
	defer unlock()
	n, err := sidecar.CountQueueItems(ctx, s.db)
	return n, wrap(err)
}

func (s *Store) DeleteSyncQueueItem(ctx context.Context, id string) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.DeleteQueueItem(ctx, s.db, id))
}

func (s *Store) ClearSyncQueue(ctx context.Context) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.ClearQueue(ctx, s.db))
}

func (s *Store) GetSyncMeta(ctx context.Context, key string) (string, bool, error) {
	unlock, err := s.read()
	if err != nil {
		return "", false, err
	}
	defer unlock()
	v, ok, err := sidecar.GetMeta(ctx, s.db, key)
	return v, ok, wrap(err)
}

func (s *Store) SetSyncMeta(ctx context.Context, key, value string) error {
	unlock, err := s.write()
	if err != nil {
		return err
	}
	defer unlock()
	return wrap(sidecar.SetMeta(ctx, s.db, key, value))
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("sqlstore: %w", err)
}
