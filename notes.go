package chronolog

import (
	"context"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/localquery"
	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/notetext"
	"github.com/hyperengineering/chronolog/internal/views"
)

// CreateNote creates an empty note on a contract. The id follows the
// "{shortCode}.{YYYYMMDD}.{seq}" scheme when the contract is cached, and
// is an offline id otherwise.
func (c *Client) CreateNote(ctx context.Context, contractID string) (*NoteDetail, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	now := c.now()
	id, err := localquery.GenerateNoteID(ctx, c.store, contractID, now)
	if err != nil {
		return nil, err
	}
	stamp := model.FormatTime(now)
	row := model.Row{
		"id":          id,
		"userId":      "",
		"contractId":  contractID,
		"title":       nil,
		"content":     nil,
		"contentJson": nil,
		"wordCount":   int64(0),
		"isPinned":    false,
		"createdAt":   stamp,
		"updatedAt":   stamp,
	}
	if err := c.store.Put(ctx, model.Notes, row); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	if err := c.enqueue(ctx, model.Notes, id, model.OpUpsert, row); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return views.NoteDetail(row)
}

// UpdateNote applies the non-nil fields of u. A new contentJson also
// recomputes the word count. It returns nil when the note does not exist.
func (c *Client) UpdateNote(ctx context.Context, id string, u NoteUpdate) (*NoteDetail, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	row, err := c.store.GetByID(ctx, model.Notes, id)
	if err != nil || row == nil {
		return nil, err
	}
	if u.Title != nil {
		row["title"] = *u.Title
	}
	if u.Content != nil {
		row["content"] = *u.Content
	}
	if u.ContentJSON != nil {
		row["contentJson"] = *u.ContentJSON
		row["wordCount"] = notetext.WordCount(*u.ContentJSON)
	}
	row["updatedAt"] = model.FormatTime(c.now())

	if err := c.store.Put(ctx, model.Notes, row); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if err := c.enqueue(ctx, model.Notes, id, model.OpUpsert, row); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return views.NoteDetail(row)
}

// SetNotePinned pins or unpins a note.
func (c *Client) SetNotePinned(ctx context.Context, id string, pinned bool) error {
	if err := c.check(); err != nil {
		return err
	}
	row, err := c.store.GetByID(ctx, model.Notes, id)
	if err != nil {
		return err
	}
	if row == nil {
		return fmt.Errorf("note %s: %w", id, ErrNotFound)
	}
	row["isPinned"] = pinned
	row["updatedAt"] = model.FormatTime(c.now())
	if err := c.store.Put(ctx, model.Notes, row); err != nil {
		return fmt.Errorf("pin note: %w", err)
	}
	return c.enqueue(ctx, model.Notes, id, model.OpUpsert, row)
}

// DeleteNote removes a note locally and on the server.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.deleteRow(ctx, model.Notes, id)
}

// LinkNotes records that source refers to target, optionally at a heading.
func (c *Client) LinkNotes(ctx context.Context, sourceID, targetID, headingAnchor string) error {
	if err := c.check(); err != nil {
		return err
	}
	row := model.Row{
		"sourceNoteId": sourceID,
		"targetNoteId": targetID,
		"createdAt":    model.FormatTime(c.now()),
	}
	if headingAnchor != "" {
		row["headingAnchor"] = headingAnchor
	}
	if err := c.store.Put(ctx, model.NoteLinks, row); err != nil {
		return fmt.Errorf("link notes: %w", err)
	}
	return c.enqueue(ctx, model.NoteLinks, model.EncodeKey(sourceID, targetID), model.OpUpsert, row)
}

// UnlinkNotes removes a link between two notes.
func (c *Client) UnlinkNotes(ctx context.Context, sourceID, targetID string) error {
	if err := c.check(); err != nil {
		return err
	}
	id := model.EncodeKey(sourceID, targetID)
	if err := c.store.Delete(ctx, model.NoteLinks, id); err != nil {
		return fmt.Errorf("unlink notes: %w", err)
	}
	return c.enqueue(ctx, model.NoteLinks, id, model.OpDelete,
		model.Row{"sourceNoteId": sourceID, "targetNoteId": targetID})
}

// deleteRow deletes a row by id locally and queues the delete.
func (c *Client) deleteRow(ctx context.Context, table, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, table, id); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return c.enqueue(ctx, table, id, model.OpDelete, model.Row{"id": id})
}
