package chronolog

import (
	"context"
	"log/slog"

	"github.com/hyperengineering/chronolog/internal/localquery"
	"github.com/hyperengineering/chronolog/internal/model"
)

func (c *Client) fallback(op string, err error) {
	c.logger.Debug("server view unavailable, reading local store",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

// ContractsByClient lists contracts with their client and note count.
// Server results are cached locally so offline note ids can resolve the
// client short code.
func (c *Client) ContractsByClient(ctx context.Context) ([]ContractSummary, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.serverSynced() {
		contracts, err := c.transport.ContractsByClient(ctx)
		if err == nil {
			c.cacheContracts(ctx, contracts)
			return contracts, nil
		}
		c.fallback("contracts by client", err)
	}
	return localquery.ContractsByClient(ctx, c.store)
}

// cacheContracts upserts the clients and contracts named by a server
// contracts view, keeping fields the view does not carry. Failures are
// logged and ignored.
func (c *Client) cacheContracts(ctx context.Context, contracts []ContractSummary) {
	now := model.FormatTime(c.now())
	clients := map[string]model.Row{}
	var clientRows, contractRows []model.Row

	for _, s := range contracts {
		if _, seen := clients[s.ClientID]; !seen {
			row, err := c.store.GetByID(ctx, model.Clients, s.ClientID)
			if err != nil {
				c.logger.Warn("cache contracts", slog.String("error", err.Error()))
				return
			}
			if row == nil {
				row = model.Row{"id": s.ClientID, "userId": "", "createdAt": now, "updatedAt": now}
			}
			row["name"] = s.ClientName
			row["shortCode"] = s.ClientShortCode
			clients[s.ClientID] = row
			clientRows = append(clientRows, row)
		}

		row, err := c.store.GetByID(ctx, model.Contracts, s.ID)
		if err != nil {
			c.logger.Warn("cache contracts", slog.String("error", err.Error()))
			return
		}
		if row == nil {
			row = model.Row{"id": s.ID, "createdAt": now, "updatedAt": now}
		}
		row["clientId"] = s.ClientID
		row["name"] = s.Name
		row["isActive"] = s.IsActive
		row["sortOrder"] = s.SortOrder
		contractRows = append(contractRows, row)
	}

	if err := c.store.BulkPut(ctx, model.Clients, clientRows); err != nil {
		c.logger.Warn("cache clients", slog.String("error", err.Error()))
		return
	}
	if err := c.store.BulkPut(ctx, model.Contracts, contractRows); err != nil {
		c.logger.Warn("cache contracts", slog.String("error", err.Error()))
	}
}

// NotesForContract lists a contract's notes, pinned first.
func (c *Client) NotesForContract(ctx context.Context, contractID string) ([]NoteSummary, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.serverSynced() {
		notes, err := c.transport.NotesForContract(ctx, contractID)
		if err == nil {
			return notes, nil
		}
		c.fallback("notes for contract", err)
	}
	return localquery.NotesForContract(ctx, c.store, contractID)
}

// NoteByID returns a note, or nil when it does not exist.
func (c *Client) NoteByID(ctx context.Context, id string) (*NoteDetail, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.serverSynced() {
		note, err := c.transport.NoteByID(ctx, id)
		if err == nil {
			return note, nil
		}
		c.fallback("note", err)
	}
	return localquery.NoteByID(ctx, c.store, id)
}

// WeeklyTimeEntries groups non-draft time entries into the weeks starting
// on each of weekStarts (YYYY-MM-DD Mondays).
func (c *Client) WeeklyTimeEntries(ctx context.Context, weekStarts []string) ([]WeekData, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if c.serverSynced() && len(weekStarts) > 0 {
		weeks, err := c.transport.WeeklyTimeEntries(ctx, weekStarts)
		if err == nil {
			return weeks, nil
		}
		c.fallback("weekly time entries", err)
	}
	return localquery.WeeklyTimeEntries(ctx, c.store, weekStarts)
}

// TimerStatus returns the running timer, or nil. Timers start as local
// drafts, so a local draft wins over the server's view.
func (c *Client) TimerStatus(ctx context.Context) (*TimerEntry, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	local, err := localquery.TimerStatus(ctx, c.store)
	if err != nil || local != nil {
		return local, err
	}
	if c.serverSynced() {
		timer, err := c.transport.TimerStatus(ctx)
		if err == nil {
			return timer, nil
		}
		c.fallback("timer status", err)
	}
	return nil, nil
}
