package chronolog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
)

// CreateTimeEntry records a finished time entry and returns its id.
func (c *Client) CreateTimeEntry(ctx context.Context, in TimeEntryCreate) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	if in.ContractID == "" {
		return "", &ValidationError{Field: "contractId", Message: "is required"}
	}
	if _, err := time.Parse(model.DateLayout, in.Date); err != nil {
		return "", &ValidationError{Field: "date", Message: "must be YYYY-MM-DD"}
	}
	if in.DurationMinutes < 0 {
		return "", &ValidationError{Field: "durationMinutes", Message: "must not be negative"}
	}

	stamp := model.FormatTime(c.now())
	id := uuid.NewString()
	row := model.Row{
		"id":              id,
		"userId":          "",
		"contractId":      in.ContractID,
		"deliverableId":   nil,
		"workTypeId":      nil,
		"date":            in.Date,
		"startTime":       nil,
		"endTime":         nil,
		"durationMinutes": in.DurationMinutes,
		"description":     nullable(in.Description),
		"isDraft":         false,
		"createdAt":       stamp,
		"updatedAt":       stamp,
	}
	if err := c.store.Put(ctx, model.TimeEntries, row); err != nil {
		return "", fmt.Errorf("create time entry: %w", err)
	}
	if err := c.enqueue(ctx, model.TimeEntries, id, model.OpUpsert, row); err != nil {
		return "", fmt.Errorf("create time entry: %w", err)
	}
	return id, nil
}

// UpdateTimeEntry applies the set fields of u to an existing entry.
func (c *Client) UpdateTimeEntry(ctx context.Context, id string, u TimeEntryUpdate) error {
	if err := c.check(); err != nil {
		return err
	}
	row, err := c.store.GetByID(ctx, model.TimeEntries, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("time entry %s: %w", id, ErrNotFound)
	}
	if u.ContractID != nil {
		row["contractId"] = *u.ContractID
	}
	switch {
	case u.ClearDeliverable:
		row["deliverableId"] = nil
	case u.DeliverableID != nil:
		row["deliverableId"] = *u.DeliverableID
	}
	switch {
	case u.ClearWorkType:
		row["workTypeId"] = nil
	case u.WorkTypeID != nil:
		row["workTypeId"] = *u.WorkTypeID
	}
	if u.Description != nil {
		row["description"] = *u.Description
	}
	if u.DurationMinutes != nil {
		if *u.DurationMinutes < 0 {
			return &ValidationError{Field: "durationMinutes", Message: "must not be negative"}
		}
		row["durationMinutes"] = *u.DurationMinutes
	}
	row["updatedAt"] = model.FormatTime(c.now())

	if err := c.store.Put(ctx, model.TimeEntries, row); err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}
	return c.enqueue(ctx, model.TimeEntries, id, model.OpUpsert, row)
}

// DeleteTimeEntry removes a time entry locally and on the server.
func (c *Client) DeleteTimeEntry(ctx context.Context, id string) error {
	return c.deleteRow(ctx, model.TimeEntries, id)
}

// LinkTimeEntry attaches a time entry to a note.
func (c *Client) LinkTimeEntry(ctx context.Context, noteID, timeEntryID, headingAnchor string) error {
	if err := c.check(); err != nil {
		return err
	}
	row := model.Row{"noteId": noteID, "timeEntryId": timeEntryID}
	if headingAnchor != "" {
		row["headingAnchor"] = headingAnchor
	}
	if err := c.store.Put(ctx, model.NoteTimeEntries, row); err != nil {
		return fmt.Errorf("link time entry: %w", err)
	}
	return c.enqueue(ctx, model.NoteTimeEntries, model.EncodeKey(noteID, timeEntryID), model.OpUpsert, row)
}

// UpdateWeeklyStatus sets the status of an ISO week, creating the record
// on first use.
func (c *Client) UpdateWeeklyStatus(ctx context.Context, year, week int, status string) error {
	if err := c.check(); err != nil {
		return err
	}
	if week < 1 || week > 53 {
		return &ValidationError{Field: "week", Message: "must be between 1 and 53"}
	}
	switch status {
	case StatusUnsubmitted, StatusSubmitted, StatusApproved:
	default:
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	rows, err := c.store.Query(ctx, model.WeeklyStatuses, map[string]any{
		"year":       int64(year),
		"weekNumber": int64(week),
	})
	if err != nil {
		return err
	}
	stamp := model.FormatTime(c.now())
	var row model.Row
	if len(rows) > 0 {
		row = rows[0]
	} else {
		row = model.Row{
			"id":         uuid.NewString(),
			"userId":     "",
			"weekStart":  isoweek.MondayOfISOWeek(year, week),
			"year":       int64(year),
			"weekNumber": int64(week),
			"createdAt":  stamp,
		}
	}
	row["status"] = status
	row["updatedAt"] = stamp

	if err := c.store.Put(ctx, model.WeeklyStatuses, row); err != nil {
		return fmt.Errorf("update weekly status: %w", err)
	}
	return c.enqueue(ctx, model.WeeklyStatuses, row.String("id"), model.OpUpsert, row)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
