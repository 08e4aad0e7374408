package serverdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
	"github.com/hyperengineering/chronolog/internal/views"
)

// ContractsByClient lists the user's contracts with client names and note
// counts.
func (s *Store) ContractsByClient(ctx context.Context, userID string) ([]model.ContractSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.is_active, c.sort_order, cl.id, cl.name, cl.short_code,
			(SELECT COUNT(*) FROM notes n WHERE n.contract_id = c.id AND n.user_id = cl.user_id)
		FROM contracts c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = ?
		ORDER BY c.sort_order, c.name, c.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("serverdb: contracts by client: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.ContractSummary{}
	for rows.Next() {
		var c model.ContractSummary
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.SortOrder,
			&c.ClientID, &c.ClientName, &c.ClientShortCode, &c.NoteCount); err != nil {
			return nil, fmt.Errorf("serverdb: contracts by client: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("serverdb: contracts by client: %w", err)
	}
	views.SortContracts(out)
	return out, nil
}

// NotesForContract lists the user's notes on a contract with preview lines,
// pinned first then most recently updated.
func (s *Store) NotesForContract(ctx context.Context, userID, contractID string) ([]model.NoteSummary, error) {
	t, _ := model.Lookup(model.Notes)
	rows, err := sqlrow.Select(ctx, s.db, t, model.Row{"userId": userID, "contractId": contractID})
	if err != nil {
		return nil, fmt.Errorf("serverdb: notes for contract: %w", err)
	}
	return views.NoteSummaries(rows), nil
}

// NoteByID returns one of the user's notes, or nil when it does not exist
// or belongs to someone else.
func (s *Store) NoteByID(ctx context.Context, userID, noteID string) (*model.NoteDetail, error) {
	t, _ := model.Lookup(model.Notes)
	rows, err := sqlrow.Select(ctx, s.db, t, model.Row{"id": noteID, "userId": userID})
	if err != nil {
		return nil, fmt.Errorf("serverdb: note: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return views.NoteDetail(rows[0])
}

// ErrInvalidWeek wraps a week start that is not a YYYY-MM-DD date.
var ErrInvalidWeek = errors.New("invalid week start")

// WeeklyTimeEntries groups the user's non-draft time entries into the
// requested weeks.
func (s *Store) WeeklyTimeEntries(ctx context.Context, userID string, weekStarts []string) ([]model.WeekData, error) {
	from, to, err := views.WeekRange(weekStarts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWeek, err)
	}
	if len(weekStarts) == 0 {
		return []model.WeekData{}, nil
	}

	t, _ := model.Lookup(model.TimeEntries)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqlrow.Columns(t, "te")+`, c.name, cl.name, cl.short_code, d.name, w.name
		FROM time_entries te
		LEFT JOIN contracts c ON c.id = te.contract_id
		LEFT JOIN clients cl ON cl.id = c.client_id
		LEFT JOIN deliverables d ON d.id = te.deliverable_id
		LEFT JOIN work_types w ON w.id = te.work_type_id
		WHERE te.user_id = ? AND te.is_draft = 0 AND te.date BETWEEN ? AND ?
		ORDER BY te.id`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("serverdb: weekly time entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var joined []views.JoinedEntry
	for rows.Next() {
		var contract, client, shortCode, deliverable, workType sql.NullString
		r, err := sqlrow.ScanOne(rows, t, &contract, &client, &shortCode, &deliverable, &workType)
		if err != nil {
			return nil, fmt.Errorf("serverdb: weekly time entries: %w", err)
		}
		joined = append(joined, views.JoinedEntry{
			Entry:           r,
			ContractName:    nullable(contract),
			ClientName:      nullable(client),
			ClientShortCode: nullable(shortCode),
			DeliverableName: nullable(deliverable),
			WorkTypeName:    nullable(workType),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("serverdb: weekly time entries: %w", err)
	}

	st, _ := model.Lookup(model.WeeklyStatuses)
	statuses, err := sqlrow.Select(ctx, s.db, st, model.Row{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("serverdb: weekly statuses: %w", err)
	}
	return views.Weeks(weekStarts, joined, statuses)
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// TimerStatus returns the user's draft time entry, or nil when no timer is
// running.
func (s *Store) TimerStatus(ctx context.Context, userID string) (*model.TimerEntry, error) {
	t, _ := model.Lookup(model.TimeEntries)
	rows, err := sqlrow.Select(ctx, s.db, t, model.Row{"userId": userID, "isDraft": true})
	if err != nil {
		return nil, fmt.Errorf("serverdb: timer status: %w", err)
	}
	return views.Timer(rows), nil
}

// GenerateNoteID returns the next "{shortCode}.{YYYYMMDD}.{seq}" id for a
// note on the user's contract. Ids are global, so every user's notes are
// scanned for the sequence.
func (s *Store) GenerateNoteID(ctx context.Context, userID, contractID string) (string, error) {
	var shortCode string
	err := s.db.QueryRowContext(ctx, `
		SELECT cl.short_code FROM contracts c JOIN clients cl ON cl.id = c.client_id
		WHERE c.id = ? AND cl.user_id = ?`, contractID, userID).Scan(&shortCode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("serverdb: contract %s: %w", contractID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("serverdb: generate note id: %w", err)
	}

	prefix := views.NoteIDPrefix(shortCode, s.now())
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM notes WHERE substr(id, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("serverdb: generate note id: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("serverdb: generate note id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("serverdb: generate note id: %w", err)
	}
	return views.NextNoteID(prefix, ids), nil
}
