package sync

import (
	"context"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/storage"
)

// LastSyncKey is the metadata key holding the sync watermark.
const LastSyncKey = "lastSyncTimestamp"

// Metadata stores the sync watermark.
type Metadata struct {
	store storage.Adapter
}

func NewMetadata(store storage.Adapter) *Metadata {
	return &Metadata{store: store}
}

// LastSyncTimestamp returns the watermark. ok is false before the first
// successful pull.
func (m *Metadata) LastSyncTimestamp(ctx context.Context) (ts string, ok bool, err error) {
	ts, ok, err = m.store.GetSyncMeta(ctx, LastSyncKey)
	if err != nil {
		return "", false, fmt.Errorf("metadata: %w", err)
	}
	return ts, ok, nil
}

func (m *Metadata) SetLastSyncTimestamp(ctx context.Context, ts string) error {
	if err := m.store.SetSyncMeta(ctx, LastSyncKey, ts); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	return nil
}
