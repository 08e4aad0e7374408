package serverdb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
)

// Ownership subqueries. Each takes the user id as its only argument.
const (
	userClients      = `SELECT id FROM clients WHERE user_id = ?`
	userContracts    = `SELECT c.id FROM contracts c JOIN clients cl ON cl.id = c.client_id WHERE cl.user_id = ?`
	userDeliverables = `SELECT d.id FROM deliverables d JOIN contracts c ON c.id = d.contract_id JOIN clients cl ON cl.id = c.client_id WHERE cl.user_id = ?`
	userNotes        = `SELECT id FROM notes WHERE user_id = ?`
)

// pullScope says how one table is scoped to a user and which column, if
// any, the watermark filters on.
type pullScope struct {
	table string
	where string
	since string
}

var pullScopes = []pullScope{
	{model.Clients, "user_id = ?", "updated_at"},
	{model.Contracts, "client_id IN (" + userClients + ")", "updated_at"},
	{model.Deliverables, "contract_id IN (" + userContracts + ")", "updated_at"},
	{model.WorkTypes, "deliverable_id IN (" + userDeliverables + ")", ""},
	{model.TimeEntries, "user_id = ?", "updated_at"},
	{model.Notes, "user_id = ?", "updated_at"},
	{model.WeeklyStatuses, "user_id = ?", "updated_at"},
	{model.NoteLinks, "source_note_id IN (" + userNotes + ")", "created_at"},
	{model.NoteTimeEntries, "note_id IN (" + userNotes + ")", ""},
	{model.Attachments, "note_id IN (" + userNotes + ")", "created_at"},
}

// PullChangesSince returns every row of the user's ownership graph changed
// after since. A nil since returns everything. Work types and note/time
// entry links carry no timestamps and are always returned in full.
// Attachments carry metadata only.
func (s *Store) PullChangesSince(ctx context.Context, userID string, since *time.Time) (*model.PullResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := model.NewPullResponse(s.now())
	var sinceArg string
	if since != nil {
		sinceArg = model.FormatTime(*since)
	}

	results := make([][]model.Row, len(pullScopes))
	g, gctx := errgroup.WithContext(ctx)
	for i, scope := range pullScopes {
		g.Go(func() error {
			rows, err := s.pullTable(gctx, scope, userID, sinceArg)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("serverdb: pull: %w", err)
	}

	for i, scope := range pullScopes {
		resp.Set(scope.table, results[i])
	}
	s.logger.Debug("pull served",
		slog.String("user", userID),
		slog.String("since", sinceArg),
		slog.Int("rows", resp.Total()),
		slog.String("server_timestamp", resp.ServerTimestamp))
	return resp, nil
}

func (s *Store) pullTable(ctx context.Context, scope pullScope, userID, since string) ([]model.Row, error) {
	t, err := model.Lookup(scope.table)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", sqlrow.Columns(t, ""), t.SQLName(), scope.where)
	args := []any{userID}
	if since != "" && scope.since != "" {
		query += " AND " + scope.since + " > ?"
		args = append(args, since)
	}
	query += " ORDER BY " + sqlrow.OrderBy(t, "")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return sqlrow.Scan(rows, t)
}
