package serverdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperengineering/chronolog/internal/model"
)

func ids(rows []model.Row) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.String("id"))
	}
	return out
}

func TestPullSince(t *testing.T) {
	s, c := openDB(t)
	ctx := context.Background()

	c.set("2025-03-05T12:00:00Z")
	seedTree(t, s, "u1")
	push(t, s, "u1", map[string][]model.Change{
		model.WorkTypes:   {upsert(map[string]any{"id": "wt1", "deliverableId": "dl-u1", "name": "Design"})},
		model.Notes:       {upsert(map[string]any{"id": "n1", "contractId": "ct-u1"})},
		model.TimeEntries: {upsert(map[string]any{"id": "te1", "contractId": "ct-u1", "date": "2025-03-03"})},
	})
	push(t, s, "u1", map[string][]model.Change{
		model.NoteTimeEntries: {upsert(map[string]any{"noteId": "n1", "timeEntryId": "te1"})},
	})

	c.set("2025-03-05T13:00:00Z")
	push(t, s, "u1", map[string][]model.Change{
		model.Clients: {upsert(map[string]any{"id": "cl-2", "name": "Later", "shortCode": "LT"})},
	})

	c.set("2025-03-05T14:00:00Z")
	since := time.Date(2025, 3, 5, 12, 30, 0, 0, time.UTC)
	resp, err := s.PullChangesSince(ctx, "u1", &since)
	if err != nil {
		t.Fatalf("PullChangesSince() error = %v", err)
	}
	if resp.ServerTimestamp != "2025-03-05T14:00:00.000Z" {
		t.Errorf("ServerTimestamp = %q", resp.ServerTimestamp)
	}
	if diff := cmp.Diff([]string{"cl-2"}, ids(resp.Clients)); diff != "" {
		t.Errorf("clients mismatch (-want +got):\n%s", diff)
	}
	if len(resp.Contracts)+len(resp.Notes)+len(resp.TimeEntries) != 0 {
		t.Errorf("unchanged rows returned: %d contracts, %d notes, %d entries",
			len(resp.Contracts), len(resp.Notes), len(resp.TimeEntries))
	}
	// No timestamps: always returned in full.
	if len(resp.WorkTypes) != 1 || len(resp.NoteTimeEntries) != 1 {
		t.Errorf("work types = %d, note time entries = %d, want 1 each", len(resp.WorkTypes), len(resp.NoteTimeEntries))
	}
	if resp.NoteLinks == nil || resp.Attachments == nil {
		t.Error("empty tables must be empty slices")
	}

	// Exactly at the watermark is not after it.
	at := time.Date(2025, 3, 5, 13, 0, 0, 0, time.UTC)
	resp, err = s.PullChangesSince(ctx, "u1", &at)
	if err != nil {
		t.Fatalf("PullChangesSince() error = %v", err)
	}
	if len(resp.Clients) != 0 {
		t.Errorf("clients at watermark = %v", ids(resp.Clients))
	}
}

func TestPullScopedToUser(t *testing.T) {
	s, _ := openDB(t)
	ctx := context.Background()
	seedTree(t, s, "u1")
	seedTree(t, s, "u2")
	push(t, s, "u1", map[string][]model.Change{
		model.WorkTypes: {upsert(map[string]any{"id": "wt1", "deliverableId": "dl-u1"})},
		model.Notes:     {upsert(map[string]any{"id": "n1", "contractId": "ct-u1"})},
	})
	if _, err := s.PutAttachment(ctx, "u1", model.Attachment{ID: "a1", NoteID: "n1", Filename: "f", MimeType: "text/plain"}, []byte("x")); err != nil {
		t.Fatalf("PutAttachment() error = %v", err)
	}

	resp, err := s.PullChangesSince(ctx, "u2", nil)
	if err != nil {
		t.Fatalf("PullChangesSince() error = %v", err)
	}
	got := map[string][]string{}
	for _, name := range model.TableNames() {
		if rows := resp.Rows(name); len(rows) > 0 {
			got[name] = ids(rows)
		}
	}
	want := map[string][]string{
		model.Clients:      {"cl-u2"},
		model.Contracts:    {"ct-u2"},
		model.Deliverables: {"dl-u2"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("u2 pull mismatch (-want +got):\n%s", diff)
	}

	resp, err = s.PullChangesSince(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("PullChangesSince() error = %v", err)
	}
	if len(resp.Attachments) != 1 {
		t.Fatalf("attachments = %v", resp.Attachments)
	}
	if _, ok := resp.Attachments[0]["data"]; ok {
		t.Error("pull must not carry attachment payloads")
	}
	if resp.Attachments[0].Int("sizeBytes") != 1 {
		t.Errorf("sizeBytes = %d", resp.Attachments[0].Int("sizeBytes"))
	}
}
