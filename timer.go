package chronolog

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/chronolog/internal/localquery"
	"github.com/hyperengineering/chronolog/internal/model"
)

const clockLayout = "15:04:05"

// StartTimer creates a draft time entry starting now. With an empty
// contractID the first active contract is used, else the first contract.
// The draft stays local until SaveTimer.
func (c *Client) StartTimer(ctx context.Context, contractID string) (*TimerEntry, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if contractID == "" {
		picked, err := c.defaultContract(ctx)
		if err != nil {
			return nil, err
		}
		contractID = picked
	}

	now := c.now().Local()
	stamp := model.FormatTime(now)
	row := model.Row{
		"id":              uuid.NewString(),
		"userId":          "",
		"contractId":      contractID,
		"deliverableId":   nil,
		"workTypeId":      nil,
		"date":            now.Format(model.DateLayout),
		"startTime":       now.Format(clockLayout),
		"endTime":         nil,
		"durationMinutes": int64(0),
		"description":     nil,
		"isDraft":         true,
		"createdAt":       stamp,
		"updatedAt":       stamp,
	}
	if err := c.store.Put(ctx, model.TimeEntries, row); err != nil {
		return nil, fmt.Errorf("start timer: %w", err)
	}
	c.logger.Debug("timer started", "id", row["id"], "contract", contractID)
	return timerEntry(row), nil
}

func (c *Client) defaultContract(ctx context.Context) (string, error) {
	summaries, err := localquery.ContractsByClient(ctx, c.store)
	if err != nil {
		return "", err
	}
	for _, s := range summaries {
		if s.IsActive {
			return s.ID, nil
		}
	}
	if len(summaries) > 0 {
		return summaries[0].ID, nil
	}
	contracts, err := c.store.GetAll(ctx, model.Contracts)
	if err != nil {
		return "", err
	}
	if len(contracts) == 0 {
		return "", ErrNoContracts
	}
	return contracts[0].String("id"), nil
}

// StopTimer ends a running draft and records its duration in whole
// minutes, rounded. The entry remains a draft until saved or discarded.
func (c *Client) StopTimer(ctx context.Context, id string) (*TimerEntry, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	row, err := c.draft(ctx, id)
	if err != nil {
		return nil, err
	}

	now := c.now().Local()
	row["endTime"] = now.Format(clockLayout)
	row["durationMinutes"] = elapsedMinutes(row.String("startTime"), now)
	row["updatedAt"] = model.FormatTime(now)
	if err := c.store.Put(ctx, model.TimeEntries, row); err != nil {
		return nil, fmt.Errorf("stop timer: %w", err)
	}
	return timerEntry(row), nil
}

// SaveTimer turns a draft into a regular time entry and queues it for sync.
// Empty fields of s leave the draft's values in place.
func (c *Client) SaveTimer(ctx context.Context, id string, s TimerSave) error {
	if err := c.check(); err != nil {
		return err
	}
	row, err := c.draft(ctx, id)
	if err != nil {
		return err
	}
	if s.ContractID != "" {
		row["contractId"] = s.ContractID
	}
	if s.DeliverableID != "" {
		row["deliverableId"] = s.DeliverableID
	}
	if s.WorkTypeID != "" {
		row["workTypeId"] = s.WorkTypeID
	}
	if s.Description != "" {
		row["description"] = s.Description
	}
	row["isDraft"] = false
	row["updatedAt"] = model.FormatTime(c.now())

	if err := c.store.Put(ctx, model.TimeEntries, row); err != nil {
		return fmt.Errorf("save timer: %w", err)
	}
	return c.enqueue(ctx, model.TimeEntries, id, model.OpUpsert, row)
}

// DiscardTimer drops a draft. The delete is queued in case the draft was
// ever pushed.
func (c *Client) DiscardTimer(ctx context.Context, id string) error {
	return c.deleteRow(ctx, model.TimeEntries, id)
}

// UpdateDraft edits a running draft without queueing it.
func (c *Client) UpdateDraft(ctx context.Context, id string, u DraftUpdate) error {
	if err := c.check(); err != nil {
		return err
	}
	row, err := c.draft(ctx, id)
	if err != nil {
		return err
	}
	if u.ContractID != nil {
		row["contractId"] = *u.ContractID
	}
	if u.Description != nil {
		row["description"] = *u.Description
	}
	row["updatedAt"] = model.FormatTime(c.now())
	return c.store.Put(ctx, model.TimeEntries, row)
}

func (c *Client) draft(ctx context.Context, id string) (model.Row, error) {
	row, err := c.store.GetByID(ctx, model.TimeEntries, id)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.Bool("isDraft") {
		return nil, fmt.Errorf("timer %s: %w", id, ErrTimerNotFound)
	}
	return row, nil
}

// elapsedMinutes measures from a wall-clock start time on the same day.
// Unparseable or future start times give zero.
func elapsedMinutes(start string, now time.Time) int64 {
	t, err := time.Parse(clockLayout, start)
	if err != nil {
		if t, err = time.Parse("15:04", start); err != nil {
			return 0
		}
	}
	startSec := t.Hour()*3600 + t.Minute()*60 + t.Second()
	nowSec := now.Hour()*3600 + now.Minute()*60 + now.Second()
	minutes := math.Round(float64(nowSec-startSec) / 60)
	return int64(max(0, minutes))
}

func timerEntry(r model.Row) *TimerEntry {
	e := &TimerEntry{ID: r.String("id"), DurationMinutes: r.Int("durationMinutes")}
	if s, ok := r["startTime"].(string); ok {
		e.StartTime = &s
	}
	if s, ok := r["endTime"].(string); ok {
		e.EndTime = &s
	}
	return e
}
