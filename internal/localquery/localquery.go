// Package localquery answers the server's view queries from the local store
// when the server is unreachable or the local copy has unsynced changes.
// Results match the server views in shape, ordering and placeholders.
package localquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/views"
)

// Reader is the slice of the local store the queries need.
type Reader interface {
	GetAll(ctx context.Context, table string) ([]model.Row, error)
	GetByID(ctx context.Context, table, id string) (model.Row, error)
	Query(ctx context.Context, table string, filter map[string]any) ([]model.Row, error)
}

// loadAll reads several tables concurrently.
func loadAll(ctx context.Context, r Reader, tables ...string) (map[string][]model.Row, error) {
	results := make([][]model.Row, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			rows, err := r.GetAll(gctx, table)
			if err != nil {
				return fmt.Errorf("read %s: %w", table, err)
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]model.Row, len(tables))
	for i, table := range tables {
		out[table] = results[i]
	}
	return out, nil
}

func index(rows []model.Row) map[string]model.Row {
	m := make(map[string]model.Row, len(rows))
	for _, r := range rows {
		m[r.String("id")] = r
	}
	return m
}

// ContractsByClient lists cached contracts with client names and note
// counts.
func ContractsByClient(ctx context.Context, r Reader) ([]model.ContractSummary, error) {
	rows, err := loadAll(ctx, r, model.Contracts, model.Clients, model.Notes)
	if err != nil {
		return nil, fmt.Errorf("localquery: contracts by client: %w", err)
	}
	return views.ContractSummaries(rows[model.Contracts], rows[model.Clients], rows[model.Notes]), nil
}

// NotesForContract lists a contract's cached notes, pinned first then most
// recently updated.
func NotesForContract(ctx context.Context, r Reader, contractID string) ([]model.NoteSummary, error) {
	rows, err := r.Query(ctx, model.Notes, map[string]any{"contractId": contractID})
	if err != nil {
		return nil, fmt.Errorf("localquery: notes for contract: %w", err)
	}
	return views.NoteSummaries(rows), nil
}

// NoteByID returns nil when the note is not cached.
func NoteByID(ctx context.Context, r Reader, noteID string) (*model.NoteDetail, error) {
	row, err := r.GetByID(ctx, model.Notes, noteID)
	if err != nil {
		return nil, fmt.Errorf("localquery: note: %w", err)
	}
	return views.NoteDetail(row)
}

// WeeklyTimeEntries groups cached non-draft entries into the requested
// weeks. Names that do not resolve locally become placeholders.
func WeeklyTimeEntries(ctx context.Context, r Reader, weekStarts []string) ([]model.WeekData, error) {
	from, to, err := views.WeekRange(weekStarts)
	if err != nil {
		return nil, fmt.Errorf("localquery: weekly time entries: %w", err)
	}
	if len(weekStarts) == 0 {
		return []model.WeekData{}, nil
	}

	rows, err := loadAll(ctx, r, model.TimeEntries, model.Contracts, model.Clients,
		model.Deliverables, model.WorkTypes, model.WeeklyStatuses)
	if err != nil {
		return nil, fmt.Errorf("localquery: weekly time entries: %w", err)
	}
	contracts := index(rows[model.Contracts])
	clients := index(rows[model.Clients])
	deliverables := index(rows[model.Deliverables])
	workTypes := index(rows[model.WorkTypes])

	var joined []views.JoinedEntry
	for _, e := range rows[model.TimeEntries] {
		date := e.String("date")
		if e.Bool("isDraft") || date < from || date > to {
			continue
		}
		j := views.JoinedEntry{Entry: e}
		if c, ok := contracts[e.String("contractId")]; ok {
			j.ContractName = name(c, "name")
			if cl, ok := clients[c.String("clientId")]; ok {
				j.ClientName = name(cl, "name")
				j.ClientShortCode = name(cl, "shortCode")
			}
		}
		if d, ok := deliverables[e.String("deliverableId")]; ok {
			j.DeliverableName = name(d, "name")
		}
		if w, ok := workTypes[e.String("workTypeId")]; ok {
			j.WorkTypeName = name(w, "name")
		}
		joined = append(joined, j)
	}
	return views.Weeks(weekStarts, joined, rows[model.WeeklyStatuses])
}

func name(r model.Row, col string) *string {
	s := r.String(col)
	return &s
}

// TimerStatus returns the cached draft entry, or nil.
func TimerStatus(ctx context.Context, r Reader) (*model.TimerEntry, error) {
	rows, err := r.Query(ctx, model.TimeEntries, map[string]any{"isDraft": true})
	if err != nil {
		return nil, fmt.Errorf("localquery: timer status: %w", err)
	}
	return views.Timer(rows), nil
}

// GenerateNoteID derives the next note id from cached notes. When the
// contract or its client is not cached it returns an offline id instead.
func GenerateNoteID(ctx context.Context, r Reader, contractID string, now time.Time) (string, error) {
	contract, err := r.GetByID(ctx, model.Contracts, contractID)
	if err != nil {
		return "", fmt.Errorf("localquery: generate note id: %w", err)
	}
	if contract == nil {
		return views.OfflineNoteID(now), nil
	}
	client, err := r.GetByID(ctx, model.Clients, contract.String("clientId"))
	if err != nil {
		return "", fmt.Errorf("localquery: generate note id: %w", err)
	}
	if client == nil {
		return views.OfflineNoteID(now), nil
	}

	prefix := views.NoteIDPrefix(client.String("shortCode"), now)
	notes, err := r.GetAll(ctx, model.Notes)
	if err != nil {
		return "", fmt.Errorf("localquery: generate note id: %w", err)
	}
	var ids []string
	for _, n := range notes {
		if id := n.String("id"); strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	return views.NextNoteID(prefix, ids), nil
}
