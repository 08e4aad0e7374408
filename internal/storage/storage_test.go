package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage"
	"github.com/hyperengineering/chronolog/internal/storage/docstore"
)

var backends = []storage.Backend{storage.BackendSQL, storage.BackendDocument}

func openStore(t *testing.T, backend storage.Backend) storage.Adapter {
	t.Helper()
	s, got, err := storage.Open(context.Background(), storage.Options{
		Backend: backend,
		Dir:     filepath.Join(t.TempDir(), "profile"),
	})
	if err != nil {
		t.Fatalf("Open(%s) error = %v", backend, err)
	}
	if got != backend {
		t.Fatalf("Open(%s) backend = %s", backend, got)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// forEachBackend runs the same test against every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, s storage.Adapter)) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			fn(t, openStore(t, b))
		})
	}
}

func note(id, contractID string, pinned bool) model.Row {
	return model.Row{
		"id":          id,
		"userId":      "u1",
		"contractId":  contractID,
		"title":       "Title " + id,
		"contentJson": `{"type":"doc"}`,
		"wordCount":   int64(3),
		"isPinned":    pinned,
		"createdAt":   "2025-03-01T10:00:00.000Z",
		"updatedAt":   "2025-03-01T10:00:00.000Z",
	}
}

func TestRowCRUD(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()

		if err := s.Put(ctx, model.Notes, note("n2", "c1", false)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Put(ctx, model.Notes, note("n1", "c1", true)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		got, err := s.GetByID(ctx, model.Notes, "n1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		want := note("n1", "c1", true)
		want["content"] = nil
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("GetByID() mismatch (-want +got):\n%s", diff)
		}

		missing, err := s.GetByID(ctx, model.Notes, "nope")
		if err != nil || missing != nil {
			t.Errorf("GetByID(missing) = %v, %v; want nil, nil", missing, err)
		}

		all, err := s.GetAll(ctx, model.Notes)
		if err != nil {
			t.Fatalf("GetAll() error = %v", err)
		}
		if len(all) != 2 || all[0]["id"] != "n1" || all[1]["id"] != "n2" {
			t.Errorf("GetAll() = %v, want n1, n2 in key order", all)
		}

		// Put replaces the whole row.
		if err := s.Put(ctx, model.Notes, model.Row{"id": "n1", "contractId": "c2"}); err != nil {
			t.Fatalf("Put(replace) error = %v", err)
		}
		got, _ = s.GetByID(ctx, model.Notes, "n1")
		if got["contractId"] != "c2" || got["title"] != nil {
			t.Errorf("after replace = %v", got)
		}

		if err := s.Delete(ctx, model.Notes, "n1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := s.Delete(ctx, model.Notes, "n1"); err != nil {
			t.Errorf("Delete(missing) error = %v, want nil", err)
		}
		if err := s.Clear(ctx, model.Notes); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		all, _ = s.GetAll(ctx, model.Notes)
		if len(all) != 0 {
			t.Errorf("GetAll() after Clear = %v", all)
		}
	})
}

func TestQuery(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		rows := []model.Row{note("a", "c1", true), note("b", "c1", false), note("c", "c2", true)}
		rows[1]["title"] = nil
		if err := s.BulkPut(ctx, model.Notes, rows); err != nil {
			t.Fatalf("BulkPut() error = %v", err)
		}

		tests := []struct {
			name   string
			filter map[string]any
			want   []string
		}{
			{"empty filter", nil, []string{"a", "b", "c"}},
			{"text", map[string]any{"contractId": "c1"}, []string{"a", "b"}},
			{"bool", map[string]any{"isPinned": true}, []string{"a", "c"}},
			{"and", map[string]any{"contractId": "c1", "isPinned": false}, []string{"b"}},
			{"null", map[string]any{"title": nil}, []string{"b"}},
			{"int from float", map[string]any{"wordCount": float64(3)}, []string{"a", "b", "c"}},
			{"no match", map[string]any{"contractId": "zz"}, []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.Query(ctx, model.Notes, tt.filter)
				if err != nil {
					t.Fatalf("Query() error = %v", err)
				}
				ids := []string{}
				for _, r := range got {
					ids = append(ids, r.String("id"))
				}
				if diff := cmp.Diff(tt.want, ids); diff != "" {
					t.Errorf("Query() ids mismatch (-want +got):\n%s", diff)
				}
			})
		}
	})
}

func TestBulkPutIsAtomic(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		rows := []model.Row{
			{"id": "t1", "durationMinutes": int64(30)},
			{"id": "t2", "durationMinutes": "not a number"},
		}
		if err := s.BulkPut(ctx, model.TimeEntries, rows); !errors.Is(err, model.ErrInvalidValue) {
			t.Fatalf("BulkPut() error = %v, want ErrInvalidValue", err)
		}
		all, _ := s.GetAll(ctx, model.TimeEntries)
		if len(all) != 0 {
			t.Errorf("rows after failed BulkPut = %v, want none", all)
		}

		missingKey := []model.Row{{"id": "t1"}, {"description": "no id"}}
		if err := s.BulkPut(ctx, model.TimeEntries, missingKey); !errors.Is(err, model.ErrInvalidKey) {
			t.Fatalf("BulkPut(missing key) error = %v, want ErrInvalidKey", err)
		}
	})
}

func TestCompositeKeys(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		links := []model.Row{
			{"sourceNoteId": "n2", "targetNoteId": "n1", "createdAt": "2025-03-01T10:00:00.000Z"},
			{"sourceNoteId": "n1", "targetNoteId": "n3", "headingAnchor": "intro"},
			{"sourceNoteId": "n1", "targetNoteId": "n2"},
		}
		if err := s.BulkPut(ctx, model.NoteLinks, links); err != nil {
			t.Fatalf("BulkPut() error = %v", err)
		}

		got, err := s.GetByID(ctx, model.NoteLinks, model.EncodeKey("n1", "n3"))
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.String("headingAnchor") != "intro" {
			t.Errorf("GetByID() = %v", got)
		}

		// Whitespace inside the encoded key does not matter.
		got, err = s.GetByID(ctx, model.NoteLinks, `["n1", "n3"]`)
		if err != nil || got == nil {
			t.Errorf("GetByID(spaced key) = %v, %v", got, err)
		}

		all, _ := s.GetAll(ctx, model.NoteLinks)
		var order []string
		for _, r := range all {
			order = append(order, r.String("sourceNoteId")+">"+r.String("targetNoteId"))
		}
		if diff := cmp.Diff([]string{"n1>n2", "n1>n3", "n2>n1"}, order); diff != "" {
			t.Errorf("GetAll() order mismatch (-want +got):\n%s", diff)
		}

		if err := s.Delete(ctx, model.NoteLinks, model.EncodeKey("n1", "n2")); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.GetByID(ctx, model.NoteLinks, "n1"); !errors.Is(err, model.ErrInvalidKey) {
			t.Errorf("GetByID(bad key) error = %v, want ErrInvalidKey", err)
		}
		all, _ = s.GetAll(ctx, model.NoteLinks)
		if len(all) != 2 {
			t.Errorf("GetAll() after delete = %d rows, want 2", len(all))
		}
	})
}

func TestUnknownTable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		if _, err := s.GetAll(ctx, "widgets"); !errors.Is(err, model.ErrUnknownTable) {
			t.Errorf("GetAll(widgets) error = %v", err)
		}
		if err := s.Put(ctx, "widgets", model.Row{"id": "w"}); !errors.Is(err, model.ErrUnknownTable) {
			t.Errorf("Put(widgets) error = %v", err)
		}
	})
}

func TestBlobs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		if err := s.PutBlob(ctx, "a1", []byte{0, 1, 2, 255}); err != nil {
			t.Fatalf("PutBlob() error = %v", err)
		}
		got, err := s.GetBlob(ctx, "a1")
		if err != nil {
			t.Fatalf("GetBlob() error = %v", err)
		}
		if diff := cmp.Diff([]byte{0, 1, 2, 255}, got); diff != "" {
			t.Errorf("GetBlob() mismatch (-want +got):\n%s", diff)
		}
		if err := s.DeleteBlob(ctx, "a1"); err != nil {
			t.Fatalf("DeleteBlob() error = %v", err)
		}
		got, err = s.GetBlob(ctx, "a1")
		if err != nil || got != nil {
			t.Errorf("GetBlob(deleted) = %v, %v", got, err)
		}
	})
}

func TestSyncQueueOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		items := []model.PendingMutation{
			{ID: "m3", Table: model.Notes, EntityID: "n3", Operation: model.OpUpsert, Timestamp: "2025-03-01T10:00:03.000Z", Data: map[string]any{"id": "n3"}},
			{ID: "m1", Table: model.Notes, EntityID: "n1", Operation: model.OpUpsert, Timestamp: "2025-03-01T10:00:01.000Z", Data: map[string]any{"id": "n1"}},
			{ID: "mb", Table: model.Notes, EntityID: "n2", Operation: model.OpDelete, Timestamp: "2025-03-01T10:00:02.000Z", Data: map[string]any{"id": "n2"}},
			{ID: "ma", Table: model.Notes, EntityID: "n2", Operation: model.OpUpsert, Timestamp: "2025-03-01T10:00:02.000Z", Data: map[string]any{"id": "n2", "wordCount": float64(4)}},
		}
		for _, m := range items {
			if err := s.PutSyncQueueItem(ctx, m); err != nil {
				t.Fatalf("PutSyncQueueItem() error = %v", err)
			}
		}

		got, err := s.GetAllSyncQueueItems(ctx)
		if err != nil {
			t.Fatalf("GetAllSyncQueueItems() error = %v", err)
		}
		var ids []string
		for _, m := range got {
			ids = append(ids, m.ID)
		}
		// Equal timestamps keep enqueue order (mb before ma).
		if diff := cmp.Diff([]string{"m1", "mb", "ma", "m3"}, ids); diff != "" {
			t.Errorf("queue order mismatch (-want +got):\n%s", diff)
		}
		if got[2].Data["wordCount"] != float64(4) || got[2].Operation != model.OpUpsert {
			t.Errorf("queue item = %+v", got[2])
		}

		n, err := s.CountSyncQueueItems(ctx)
		if err != nil || n != 4 {
			t.Errorf("CountSyncQueueItems() = %d, %v", n, err)
		}
		if err := s.DeleteSyncQueueItem(ctx, "mb"); err != nil {
			t.Fatalf("DeleteSyncQueueItem() error = %v", err)
		}
		if err := s.DeleteSyncQueueItem(ctx, "mb"); err != nil {
			t.Errorf("DeleteSyncQueueItem(missing) error = %v", err)
		}
		if err := s.ClearSyncQueue(ctx); err != nil {
			t.Fatalf("ClearSyncQueue() error = %v", err)
		}
		if n, _ := s.CountSyncQueueItems(ctx); n != 0 {
			t.Errorf("count after clear = %d", n)
		}
	})
}

func TestSyncMeta(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s storage.Adapter) {
		ctx := context.Background()
		_, ok, err := s.GetSyncMeta(ctx, "lastSyncTimestamp")
		if err != nil || ok {
			t.Fatalf("GetSyncMeta(unset) ok = %v, err = %v", ok, err)
		}
		for _, v := range []string{"2025-01-01T00:00:00.000Z", "2025-02-01T00:00:00.000Z"} {
			if err := s.SetSyncMeta(ctx, "lastSyncTimestamp", v); err != nil {
				t.Fatalf("SetSyncMeta() error = %v", err)
			}
		}
		v, ok, err := s.GetSyncMeta(ctx, "lastSyncTimestamp")
		if err != nil || !ok || v != "2025-02-01T00:00:00.000Z" {
			t.Errorf("GetSyncMeta() = %q, %v, %v", v, ok, err)
		}
	})
}

func TestClosedStore(t *testing.T) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			s := openStore(t, b)
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
			if _, err := s.GetAll(context.Background(), model.Notes); !errors.Is(err, model.ErrStoreClosed) {
				t.Errorf("GetAll() after close error = %v", err)
			}
			if err := s.SetSyncMeta(context.Background(), "k", "v"); !errors.Is(err, model.ErrStoreClosed) {
				t.Errorf("SetSyncMeta() after close error = %v", err)
			}
		})
	}
}

func TestBackendsReturnIdenticalRows(t *testing.T) {
	ctx := context.Background()
	sqlStore := openStore(t, storage.BackendSQL)
	docStore := openStore(t, storage.BackendDocument)

	entry := model.Row{
		"id": "t1", "userId": "u1", "contractId": "c1", "date": "2025-03-03",
		"startTime": "09:00:00", "durationMinutes": 45, "isDraft": false,
		"description": "123", "createdAt": "2025-03-03T09:00:00.000Z",
	}
	for _, s := range []storage.Adapter{sqlStore, docStore} {
		if err := s.Put(ctx, model.TimeEntries, entry); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	a, _ := sqlStore.GetAll(ctx, model.TimeEntries)
	b, _ := docStore.GetAll(ctx, model.TimeEntries)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("backends differ (-sql +doc):\n%s", diff)
	}
	if a[0]["description"] != "123" || a[0]["durationMinutes"] != int64(45) {
		t.Errorf("row = %v", a[0])
	}
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	if got := storage.Detect(dir); got != storage.BackendSQL {
		t.Errorf("Detect(empty) = %s, want sql", got)
	}
	if err := os.WriteFile(filepath.Join(dir, docstore.FileName), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if got := storage.Detect(dir); got != storage.BackendDocument {
		t.Errorf("Detect(docdb present) = %s, want document", got)
	}

	s, backend, err := storage.Open(context.Background(), storage.Options{Dir: dir})
	if err != nil {
		t.Fatalf("Open(auto) error = %v", err)
	}
	defer func() { _ = s.Close() }()
	if backend != storage.BackendDocument {
		t.Errorf("Open(auto) backend = %s", backend)
	}
}

func TestParseBackend(t *testing.T) {
	for in, want := range map[string]storage.Backend{"": storage.BackendAuto, "auto": storage.BackendAuto, "sql": storage.BackendSQL, "document": storage.BackendDocument} {
		got, err := storage.ParseBackend(in)
		if err != nil || got != want {
			t.Errorf("ParseBackend(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := storage.ParseBackend("indexeddb"); !errors.Is(err, storage.ErrUnknownBackend) {
		t.Errorf("ParseBackend(indexeddb) error = %v", err)
	}
}
