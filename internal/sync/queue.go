package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage"
)

// Queue is the durable FIFO of pending local mutations.
type Queue struct {
	store storage.Adapter
	now   func() time.Time
}

// NewQueue creates a queue backed by store.
func NewQueue(store storage.Adapter) *Queue {
	return &Queue{store: store, now: time.Now}
}

// Enqueue persists m with a fresh id and returns the stored mutation. An
// empty timestamp is set to now; parseable timestamps are rewritten in
// canonical form so queue order matches time order.
func (q *Queue) Enqueue(ctx context.Context, m model.PendingMutation) (model.PendingMutation, error) {
	if _, err := model.Lookup(m.Table); err != nil {
		return model.PendingMutation{}, fmt.Errorf("queue: %w", err)
	}
	if !m.Operation.Valid() {
		return model.PendingMutation{}, fmt.Errorf("queue: invalid operation %q", m.Operation)
	}
	if m.EntityID == "" {
		return model.PendingMutation{}, fmt.Errorf("queue: %s mutation without entity id", m.Table)
	}

	m.ID = ulid.Make().String()
	if m.Timestamp == "" {
		m.Timestamp = model.FormatTime(q.now())
	} else if ts, ok := model.CanonicalTime(m.Timestamp); ok {
		m.Timestamp = ts
	}
	if m.Data == nil {
		m.Data = map[string]any{}
	}

	if err := q.store.PutSyncQueueItem(ctx, m); err != nil {
		return model.PendingMutation{}, fmt.Errorf("queue: enqueue: %w", err)
	}
	return m, nil
}

// GetAll returns queued mutations oldest first.
func (q *Queue) GetAll(ctx context.Context) ([]model.PendingMutation, error) {
	items, err := q.store.GetAllSyncQueueItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("queue: list: %w", err)
	}
	return items, nil
}

// Dequeue removes one mutation. Unknown ids are not an error.
func (q *Queue) Dequeue(ctx context.Context, id string) error {
	if err := q.store.DeleteSyncQueueItem(ctx, id); err != nil {
		return fmt.Errorf("queue: dequeue: %w", err)
	}
	return nil
}

func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.ClearSyncQueue(ctx); err != nil {
		return fmt.Errorf("queue: clear: %w", err)
	}
	return nil
}

func (q *Queue) Count(ctx context.Context) (int, error) {
	n, err := q.store.CountSyncQueueItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("queue: count: %w", err)
	}
	return n, nil
}
