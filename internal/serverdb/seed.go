package serverdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/notetext"
)

// SeedResult reports what Seed created.
type SeedResult struct {
	Applied     int      `json:"applied"`
	NoteIDs     []string `json:"noteIds"`
	Attachments int      `json:"attachments"`
}

// Seed fills the database with a small development data set for userID:
// two clients with contracts, deliverables, work types, a week of time
// entries, notes and one attachment. Rows go through PushChanges so the
// data obeys the same rules as synced writes.
func (s *Store) Seed(ctx context.Context, userID string) (*SeedResult, error) {
	now := s.now().UTC()
	today := now.Format(model.DateLayout)
	monday, err := isoweek.MondayOfWeek(today)
	if err != nil {
		return nil, err
	}
	days, _ := isoweek.WeekDates(monday)

	acme, globex := uuid.NewString(), uuid.NewString()
	build, support, audit := uuid.NewString(), uuid.NewString(), uuid.NewString()
	phase1 := uuid.NewString()
	design, coding := uuid.NewString(), uuid.NewString()

	req := model.PushRequest{Changes: map[string][]model.Change{
		model.Clients: {
			upsert(map[string]any{"id": acme, "name": "Acme Corporation", "shortCode": "ACME"}),
			upsert(map[string]any{"id": globex, "name": "Globex", "shortCode": "GLX"}),
		},
		model.Contracts: {
			upsert(map[string]any{"id": build, "clientId": acme, "name": "Platform build", "isActive": true, "sortOrder": 0}),
			upsert(map[string]any{"id": support, "clientId": acme, "name": "Support retainer", "isActive": true, "sortOrder": 1}),
			upsert(map[string]any{"id": audit, "clientId": globex, "name": "Security audit", "isActive": false, "sortOrder": 0}),
		},
		model.Deliverables: {
			upsert(map[string]any{"id": phase1, "contractId": build, "name": "Phase 1", "sortOrder": 0}),
		},
		model.WorkTypes: {
			upsert(map[string]any{"id": design, "deliverableId": phase1, "name": "Design", "sortOrder": 0}),
			upsert(map[string]any{"id": coding, "deliverableId": phase1, "name": "Development", "sortOrder": 1}),
		},
		model.TimeEntries: {
			upsert(map[string]any{"id": uuid.NewString(), "contractId": build, "deliverableId": phase1, "workTypeId": design,
				"date": days[0], "startTime": "09:00:00", "endTime": "10:30:00", "durationMinutes": 90, "description": "Kickoff and architecture"}),
			upsert(map[string]any{"id": uuid.NewString(), "contractId": build, "deliverableId": phase1, "workTypeId": coding,
				"date": days[0], "startTime": "11:00:00", "endTime": "13:00:00", "durationMinutes": 120, "description": "Sync engine"}),
			upsert(map[string]any{"id": uuid.NewString(), "contractId": support, "date": days[1], "durationMinutes": 45, "description": "Ticket triage"}),
			upsert(map[string]any{"id": uuid.NewString(), "contractId": audit, "date": days[2], "durationMinutes": 60}),
		},
	}}

	first, err := s.PushChanges(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("serverdb: seed: %w", err)
	}

	applied := first.Applied
	notes := model.PushRequest{Changes: map[string][]model.Change{}}
	var noteIDs []string
	for i, n := range []struct{ contract, title, body string }{
		{build, "Kickoff", "Agreed on offline-first sync.\nPull before push was rejected."},
		{build, "Architecture", "Queue, watermark, last write wins."},
		{support, "Open tickets", "Login loop on tablets."},
	} {
		id, err := s.GenerateNoteID(ctx, userID, n.contract)
		if err != nil {
			return nil, fmt.Errorf("serverdb: seed: %w", err)
		}
		// Ids are only unique once the previous note is stored.
		doc := notetext.Document(n.title, n.body)
		pushed, err := s.PushChanges(ctx, userID, model.PushRequest{Changes: map[string][]model.Change{
			model.Notes: {upsert(map[string]any{
				"id": id, "contractId": n.contract, "title": n.title, "content": n.body,
				"contentJson": doc, "wordCount": notetext.WordCount(doc), "isPinned": i == 0,
			})},
		}})
		if err != nil {
			return nil, fmt.Errorf("serverdb: seed: %w", err)
		}
		applied += pushed.Applied
		noteIDs = append(noteIDs, id)
	}
	notes.Changes[model.NoteLinks] = []model.Change{
		upsert(map[string]any{"sourceNoteId": noteIDs[1], "targetNoteId": noteIDs[0]}),
	}
	year, week, _ := isoweek.ISOWeek(monday)
	notes.Changes[model.WeeklyStatuses] = []model.Change{
		upsert(map[string]any{"id": uuid.NewString(), "weekStart": monday, "year": year, "weekNumber": week, "status": "Draft"}),
	}
	resp, err := s.PushChanges(ctx, userID, notes)
	if err != nil {
		return nil, fmt.Errorf("serverdb: seed: %w", err)
	}

	res := &SeedResult{Applied: applied + resp.Applied, NoteIDs: noteIDs}
	_, err = s.PutAttachment(ctx, userID, model.Attachment{
		ID: uuid.NewString(), NoteID: noteIDs[0], Filename: "agenda.txt", MimeType: "text/plain",
	}, []byte("1. Scope\n2. Sync model\n3. Timeline\n"))
	if err != nil {
		return nil, fmt.Errorf("serverdb: seed: %w", err)
	}
	res.Attachments = 1
	return res, nil
}

func upsert(data map[string]any) model.Change {
	return model.Change{Operation: model.OpUpsert, Data: data}
}
