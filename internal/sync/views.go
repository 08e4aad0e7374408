package sync

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/hyperengineering/chronolog/internal/model"
)

// Server-computed views. Each mirrors a query in the local fallback layer.

func (c *HTTPTransport) ContractsByClient(ctx context.Context) ([]model.ContractSummary, error) {
	var resp struct {
		Contracts []model.ContractSummary `json:"contracts"`
	}
	if err := c.getJSON(ctx, "contracts_by_client", "/api/contracts-by-client", &resp); err != nil {
		return nil, err
	}
	if resp.Contracts == nil {
		resp.Contracts = []model.ContractSummary{}
	}
	return resp.Contracts, nil
}

func (c *HTTPTransport) NotesForContract(ctx context.Context, contractID string) ([]model.NoteSummary, error) {
	var resp struct {
		Notes []model.NoteSummary `json:"notes"`
	}
	path := "/api/notes?contractId=" + url.QueryEscape(contractID)
	if err := c.getJSON(ctx, "notes_for_contract", path, &resp); err != nil {
		return nil, err
	}
	if resp.Notes == nil {
		resp.Notes = []model.NoteSummary{}
	}
	return resp.Notes, nil
}

// NoteByID returns nil, nil when the server reports the note missing.
func (c *HTTPTransport) NoteByID(ctx context.Context, id string) (*model.NoteDetail, error) {
	var resp struct {
		Note *model.NoteDetail `json:"note"`
	}
	err := c.getJSON(ctx, "note_by_id", "/api/notes/"+url.PathEscape(id), &resp)
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Note, nil
}

func (c *HTTPTransport) WeeklyTimeEntries(ctx context.Context, weekStarts []string) ([]model.WeekData, error) {
	var resp struct {
		Weeks []model.WeekData `json:"weeks"`
	}
	path := "/api/time-entries/weekly?weeks=" + url.QueryEscape(strings.Join(weekStarts, ","))
	if err := c.getJSON(ctx, "weekly_time_entries", path, &resp); err != nil {
		return nil, err
	}
	if resp.Weeks == nil {
		resp.Weeks = []model.WeekData{}
	}
	return resp.Weeks, nil
}

// TimerStatus returns the user's draft entry, or nil when no timer exists.
func (c *HTTPTransport) TimerStatus(ctx context.Context) (*model.TimerEntry, error) {
	var resp struct {
		Timer *model.TimerEntry `json:"timer"`
	}
	if err := c.getJSON(ctx, "timer_status", "/api/timer/status", &resp); err != nil {
		return nil, err
	}
	return resp.Timer, nil
}

// Attachment downloads an attachment payload. A missing attachment returns
// nil data and a nil error.
func (c *HTTPTransport) Attachment(ctx context.Context, id string) ([]byte, string, error) {
	body, _, header, err := c.do(ctx, "attachment", http.MethodGet, "/api/attachments/"+url.PathEscape(id), nil)
	if isNotFound(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return body, header.Get("Content-Type"), nil
}

func isNotFound(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == KindServer && se.StatusCode == http.StatusNotFound
}
