package serverdb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/serverdb"
)

// clock is a settable server clock.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) set(s string) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	c.t = t
}

func openDB(t *testing.T) (*serverdb.Store, *clock) {
	t.Helper()
	c := &clock{}
	c.set("2025-03-05T12:00:00Z")
	s, err := serverdb.Open(context.Background(), filepath.Join(t.TempDir(), "server.db"), serverdb.WithClock(c.now))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

func upsert(data map[string]any) model.Change {
	return model.Change{Operation: model.OpUpsert, Data: data}
}

func del(data map[string]any) model.Change {
	return model.Change{Operation: model.OpDelete, Data: data}
}

func push(t *testing.T, s *serverdb.Store, user string, changes map[string][]model.Change) *model.PushResponse {
	t.Helper()
	resp, err := s.PushChanges(context.Background(), user, model.PushRequest{Changes: changes})
	if err != nil {
		t.Fatalf("PushChanges() error = %v", err)
	}
	return resp
}

// seedTree creates client cl-{user}, contract ct-{user} and deliverable
// dl-{user} owned by user.
func seedTree(t *testing.T, s *serverdb.Store, user string) {
	t.Helper()
	resp := push(t, s, user, map[string][]model.Change{
		model.Clients:      {upsert(map[string]any{"id": "cl-" + user, "name": "Acme " + user, "shortCode": "AC" + user})},
		model.Contracts:    {upsert(map[string]any{"id": "ct-" + user, "clientId": "cl-" + user, "name": "Build", "isActive": true})},
		model.Deliverables: {upsert(map[string]any{"id": "dl-" + user, "contractId": "ct-" + user, "name": "Phase 1"})},
	})
	if resp.Applied != 3 {
		t.Fatalf("seedTree applied = %d, want 3", resp.Applied)
	}
}

func TestOpenMigratesTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.db")
	for i := 0; i < 2; i++ {
		s, err := serverdb.Open(context.Background(), path)
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
		_ = s.Close()
	}
}

func TestSeed(t *testing.T) {
	s, _ := openDB(t)
	ctx := context.Background()

	res, err := s.Seed(ctx, "u1")
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if len(res.NoteIDs) != 3 || res.Attachments != 1 {
		t.Fatalf("Seed() = %+v", res)
	}
	if res.NoteIDs[0] != "ACME.20250305.001" || res.NoteIDs[1] != "ACME.20250305.002" {
		t.Errorf("note ids = %v", res.NoteIDs)
	}

	contracts, err := s.ContractsByClient(ctx, "u1")
	if err != nil {
		t.Fatalf("ContractsByClient() error = %v", err)
	}
	if len(contracts) != 3 {
		t.Errorf("contracts = %d, want 3", len(contracts))
	}
	weeks, err := s.WeeklyTimeEntries(ctx, "u1", []string{"2025-03-03"})
	if err != nil {
		t.Fatalf("WeeklyTimeEntries() error = %v", err)
	}
	if weeks[0].WeeklyTotalMinutes != 315 || weeks[0].Status != "Draft" {
		t.Errorf("week = %d minutes, status %q", weeks[0].WeeklyTotalMinutes, weeks[0].Status)
	}

	other, err := s.ContractsByClient(ctx, "u2")
	if err != nil || len(other) != 0 {
		t.Errorf("other user contracts = %v, %v", other, err)
	}
}

func TestAttachments(t *testing.T) {
	s, _ := openDB(t)
	ctx := context.Background()
	seedTree(t, s, "u1")
	push(t, s, "u1", map[string][]model.Change{
		model.Notes: {upsert(map[string]any{"id": "n1", "contractId": "ct-u1"})},
	})

	a, err := s.PutAttachment(ctx, "u1", model.Attachment{
		ID: "a1", NoteID: "n1", Filename: "x.png", MimeType: "image/png",
	}, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("PutAttachment() error = %v", err)
	}
	if a.SizeBytes != 3 || a.CreatedAt != "2025-03-05T12:00:00.000Z" {
		t.Errorf("PutAttachment() = %+v", a)
	}

	got, err := s.Attachment(ctx, "u1", "a1")
	if err != nil {
		t.Fatalf("Attachment() error = %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, got.Data); diff != "" {
		t.Errorf("Attachment() data mismatch (-want +got):\n%s", diff)
	}

	if _, err := s.Attachment(ctx, "u2", "a1"); !errors.Is(err, serverdb.ErrNotFound) {
		t.Errorf("Attachment(other user) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Attachment(ctx, "u1", "missing"); !errors.Is(err, serverdb.ErrNotFound) {
		t.Errorf("Attachment(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.PutAttachment(ctx, "u2", model.Attachment{ID: "a2", NoteID: "n1"}, nil); !errors.Is(err, serverdb.ErrNotFound) {
		t.Errorf("PutAttachment(other user) error = %v, want ErrNotFound", err)
	}

	// Only deletes travel through push, and only for the owner.
	resp := push(t, s, "u2", map[string][]model.Change{model.Attachments: {del(map[string]any{"id": "a1"})}})
	if resp.Applied != 0 {
		t.Errorf("foreign attachment delete applied = %d", resp.Applied)
	}
	resp = push(t, s, "u1", map[string][]model.Change{model.Attachments: {
		upsert(map[string]any{"id": "a9", "noteId": "n1", "filename": "y"}),
		del(map[string]any{"id": "a1"}),
	}})
	if resp.Applied != 1 {
		t.Errorf("attachment push applied = %d, want 1", resp.Applied)
	}
	if _, err := s.Attachment(ctx, "u1", "a1"); !errors.Is(err, serverdb.ErrNotFound) {
		t.Errorf("Attachment() after delete error = %v", err)
	}
}
