package views_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/views"
)

func ptr(s string) *string { return &s }

func TestContractSummaries(t *testing.T) {
	clients := []model.Row{
		{"id": "cl1", "name": "Acme", "shortCode": "ACM"},
	}
	contracts := []model.Row{
		{"id": "c3", "clientId": "cl1", "name": "Beta", "isActive": true, "sortOrder": int64(1)},
		{"id": "c2", "clientId": "cl1", "name": "Alpha", "isActive": false, "sortOrder": int64(1)},
		{"id": "c1", "clientId": "cl1", "name": "Zulu", "isActive": true, "sortOrder": int64(0)},
		{"id": "orphan", "clientId": "gone", "name": "Lost", "sortOrder": int64(0)},
	}
	notes := []model.Row{
		{"id": "n1", "contractId": "c3"},
		{"id": "n2", "contractId": "c3"},
		{"id": "n3", "contractId": "orphan"},
	}

	got := views.ContractSummaries(contracts, clients, notes)
	want := []model.ContractSummary{
		{ID: "c1", Name: "Zulu", IsActive: true, SortOrder: 0, ClientID: "cl1", ClientName: "Acme", ClientShortCode: "ACM"},
		{ID: "c2", Name: "Alpha", SortOrder: 1, ClientID: "cl1", ClientName: "Acme", ClientShortCode: "ACM"},
		{ID: "c3", Name: "Beta", IsActive: true, SortOrder: 1, ClientID: "cl1", ClientName: "Acme", ClientShortCode: "ACM", NoteCount: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ContractSummaries() mismatch (-want +got):\n%s", diff)
	}
}

func TestNoteSummaries_Order(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":" First "}]},{"type":"paragraph"},{"type":"paragraph","content":[{"type":"text","text":"Second"}]}]}`
	notes := []model.Row{
		{"id": "a", "contractId": "c", "isPinned": false, "updatedAt": "2025-01-02T00:00:00.000Z"},
		{"id": "b", "contractId": "c", "isPinned": true, "updatedAt": "2025-01-01T00:00:00.000Z", "contentJson": doc},
		{"id": "c", "contractId": "c", "isPinned": false, "updatedAt": "2025-01-03T00:00:00.000Z"},
		{"id": "0", "contractId": "c", "isPinned": false, "updatedAt": "2025-01-03T00:00:00.000Z"},
	}

	got := views.NoteSummaries(notes)
	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	if diff := cmp.Diff([]string{"b", "0", "c", "a"}, ids); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[0].FirstLine != "First" || got[0].SecondLine != "Second" {
		t.Errorf("preview = %q / %q", got[0].FirstLine, got[0].SecondLine)
	}
}

func TestNoteDetail(t *testing.T) {
	d, err := views.NoteDetail(nil)
	if err != nil || d != nil {
		t.Fatalf("NoteDetail(nil) = %v, %v", d, err)
	}
	d, err = views.NoteDetail(model.Row{"id": "n1", "contractId": "c1", "title": "T", "content": nil, "wordCount": int64(3), "isPinned": true})
	if err != nil {
		t.Fatal(err)
	}
	want := &model.NoteDetail{ID: "n1", ContractID: "c1", Title: ptr("T"), WordCount: 3, IsPinned: true}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("NoteDetail() mismatch (-want +got):\n%s", diff)
	}
}

func TestTimer(t *testing.T) {
	if views.Timer([]model.Row{{"id": "x", "isDraft": false}}) != nil {
		t.Error("non-draft rows must not be reported as a timer")
	}
	got := views.Timer([]model.Row{
		{"id": "old", "isDraft": true, "createdAt": "2025-01-01T00:00:00.000Z", "startTime": "09:00:00"},
		{"id": "new", "isDraft": true, "createdAt": "2025-01-02T00:00:00.000Z", "startTime": "10:00:00", "durationMinutes": int64(5)},
	})
	want := &model.TimerEntry{ID: "new", StartTime: ptr("10:00:00"), DurationMinutes: 5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Timer() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeeks(t *testing.T) {
	entries := []views.JoinedEntry{
		{
			Entry:        model.Row{"id": "t2", "date": "2025-03-03", "startTime": "10:00", "durationMinutes": int64(30), "contractId": "c1"},
			ContractName: ptr("Build"), ClientName: ptr("Acme"), ClientShortCode: ptr("ACM"),
			DeliverableName: ptr("Phase 1"),
		},
		{
			Entry:        model.Row{"id": "t1", "date": "2025-03-03", "durationMinutes": int64(15), "contractId": "c1"},
			ContractName: ptr("Build"), ClientName: ptr("Acme"), ClientShortCode: ptr("ACM"),
		},
		{
			Entry: model.Row{"id": "t3", "date": "2025-03-09", "durationMinutes": int64(60), "contractId": "missing"},
		},
		{
			Entry: model.Row{"id": "draft", "date": "2025-03-04", "durationMinutes": int64(99), "isDraft": true},
		},
	}
	statuses := []model.Row{{"year": int64(2025), "weekNumber": int64(10), "status": "Submitted"}}

	weeks, err := views.Weeks([]string{"2025-03-03", "2025-03-10"}, entries, statuses)
	if err != nil {
		t.Fatalf("Weeks() error = %v", err)
	}
	if len(weeks) != 2 {
		t.Fatalf("len(weeks) = %d", len(weeks))
	}

	w := weeks[0]
	if w.Status != "Submitted" || w.WeeklyTotalMinutes != 105 || len(w.Days) != 7 {
		t.Fatalf("week 1 = status %q total %d days %d", w.Status, w.WeeklyTotalMinutes, len(w.Days))
	}
	monday := w.Days[0]
	if monday.TotalMinutes != 45 || monday.Entries[0].ID != "t1" || monday.Entries[1].ID != "t2" {
		t.Errorf("monday = %+v", monday)
	}
	if w.Days[1].TotalMinutes != 0 || len(w.Days[1].Entries) != 0 {
		t.Errorf("draft leaked into tuesday: %+v", w.Days[1])
	}
	sunday := w.Days[6].Entries[0]
	if sunday.ContractName != model.UnknownName || sunday.ClientName != model.UnknownName || sunday.ClientShortCode != model.UnknownShortCode {
		t.Errorf("placeholders = %+v", sunday)
	}
	if sunday.DeliverableName != nil || sunday.WorkTypeName != nil {
		t.Errorf("unresolved optional names must stay nil: %+v", sunday)
	}

	if weeks[1].Status != model.Unsubmitted || weeks[1].WeeklyTotalMinutes != 0 {
		t.Errorf("week 2 = %+v", weeks[1])
	}

	if _, err := views.Weeks([]string{"not-a-date"}, nil, nil); err == nil {
		t.Error("Weeks() should reject an invalid week start")
	}
}

func TestWeekRange(t *testing.T) {
	from, to, err := views.WeekRange([]string{"2025-03-10", "2025-03-03"})
	if err != nil || from != "2025-03-03" || to != "2025-03-16" {
		t.Errorf("WeekRange() = %q, %q, %v", from, to, err)
	}
}

func TestNoteIDs(t *testing.T) {
	now := time.Date(2025, 3, 4, 23, 30, 0, 0, time.FixedZone("x", -5*3600))
	prefix := views.NoteIDPrefix("ACM", now)
	if prefix != "ACM.20250305." {
		t.Fatalf("NoteIDPrefix() = %q, want UTC date", prefix)
	}

	tests := []struct {
		ids  []string
		want string
	}{
		{nil, "ACM.20250305.001"},
		{[]string{"ACM.20250305.002", "ACM.20250305.010", "ACM.20250304.999", "XYZ.20250305.050"}, "ACM.20250305.011"},
		{[]string{"ACM.20250305.999"}, "ACM.20250305.1000"},
		{[]string{"ACM.20250305.1000", "ACM.20250305.999"}, "ACM.20250305.1001"},
		{[]string{"ACM.20250305.abc"}, "ACM.20250305.001"},
	}
	for _, tt := range tests {
		if got := views.NextNoteID(prefix, tt.ids); got != tt.want {
			t.Errorf("NextNoteID(%v) = %q, want %q", tt.ids, got, tt.want)
		}
	}

	id := views.OfflineNoteID(time.UnixMilli(1700000000000))
	if !strings.HasPrefix(id, "offline-") || !strings.HasSuffix(id, "-1700000000000") || len(id) != len("offline-")+8+1+13 {
		t.Errorf("OfflineNoteID() = %q", id)
	}
}
