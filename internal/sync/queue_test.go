package sync

import (
	"context"
	"testing"
	"time"

	"github.com/hyperengineering/chronolog/internal/model"
)

func TestQueue_EnqueueOrdersByTimestamp(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t))

	for _, m := range []model.PendingMutation{
		{Table: model.Notes, EntityID: "late", Operation: model.OpUpsert, Timestamp: "2025-03-01T12:00:00+02:00"},
		{Table: model.Notes, EntityID: "early", Operation: model.OpDelete, Timestamp: "2025-03-01T09:00:00Z"},
		{Table: model.Clients, EntityID: "tie", Operation: model.OpUpsert, Timestamp: "2025-03-01T10:00:00.000Z"},
	} {
		if _, err := q.Enqueue(ctx, m); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", m.EntityID, err)
		}
	}

	items, err := q.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	var got []string
	for _, m := range items {
		got = append(got, m.EntityID)
	}
	// 12:00+02:00 is 10:00Z, so it ties with "tie" and keeps enqueue order.
	want := []string{"early", "late", "tie"}
	if len(got) != len(want) {
		t.Fatalf("GetAll() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("GetAll() = %v, want %v", got, want)
		}
	}
	if items[1].Timestamp != "2025-03-01T10:00:00.000Z" {
		t.Errorf("timestamp not canonical: %q", items[1].Timestamp)
	}
	if items[0].Data == nil {
		t.Error("Data should default to an empty object")
	}
}

func TestQueue_EnqueueAssignsIDAndTime(t *testing.T) {
	q := NewQueue(newTestStore(t))
	q.now = func() time.Time { return time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC) }

	m, err := q.Enqueue(context.Background(), model.PendingMutation{
		ID: "ignored", Table: model.TimeEntries, EntityID: "t1", Operation: model.OpUpsert,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if m.ID == "" || m.ID == "ignored" {
		t.Errorf("ID = %q, want a generated id", m.ID)
	}
	if m.Timestamp != "2025-06-01T08:30:00.000Z" {
		t.Errorf("Timestamp = %q", m.Timestamp)
	}
}

func TestQueue_EnqueueRejectsInvalid(t *testing.T) {
	q := NewQueue(newTestStore(t))
	tests := []struct {
		name string
		m    model.PendingMutation
	}{
		{"unknown table", model.PendingMutation{Table: "invoices", EntityID: "x", Operation: model.OpUpsert}},
		{"bad operation", model.PendingMutation{Table: model.Notes, EntityID: "x", Operation: "merge"}},
		{"no entity", model.PendingMutation{Table: model.Notes, Operation: model.OpDelete}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := q.Enqueue(context.Background(), tt.m); err == nil {
				t.Error("Enqueue() should fail")
			}
		})
	}
	if n, _ := q.Count(context.Background()); n != 0 {
		t.Errorf("Count() = %d after rejected enqueues", n)
	}
}

func TestQueue_DequeueAndClear(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(newTestStore(t))
	a, _ := q.Enqueue(ctx, model.PendingMutation{Table: model.Notes, EntityID: "a", Operation: model.OpUpsert})
	_, _ = q.Enqueue(ctx, model.PendingMutation{Table: model.Notes, EntityID: "b", Operation: model.OpUpsert})

	if err := q.Dequeue(ctx, a.ID); err != nil {
		t.Fatalf("Dequeue() error = %v", err)
	}
	if err := q.Dequeue(ctx, "missing"); err != nil {
		t.Fatalf("Dequeue(missing) error = %v", err)
	}
	if n, _ := q.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
	if err := q.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n, _ := q.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after Clear", n)
	}
}

func TestMetadata_Watermark(t *testing.T) {
	ctx := context.Background()
	m := NewMetadata(newTestStore(t))

	if _, ok, err := m.LastSyncTimestamp(ctx); err != nil || ok {
		t.Fatalf("LastSyncTimestamp() ok = %v, err = %v; want unset", ok, err)
	}
	if err := m.SetLastSyncTimestamp(ctx, "2025-01-01T00:00:00.000Z"); err != nil {
		t.Fatal(err)
	}
	ts, ok, _ := m.LastSyncTimestamp(ctx)
	if !ok || ts != "2025-01-01T00:00:00.000Z" {
		t.Errorf("LastSyncTimestamp() = %q, %v", ts, ok)
	}
}
