package chronolog

import (
	"context"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/model"
)

// Attachments lists the cached attachment metadata of a note.
func (c *Client) Attachments(ctx context.Context, noteID string) ([]Attachment, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	rows, err := c.store.Query(ctx, model.Attachments, map[string]any{"noteId": noteID})
	if err != nil {
		return nil, err
	}
	return model.DecodeAll[Attachment](rows)
}

// AttachmentData returns an attachment's payload. A cached blob is served
// locally; otherwise it is downloaded once and cached.
func (c *Client) AttachmentData(ctx context.Context, id string) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	data, err := c.store.GetBlob(ctx, id)
	if err != nil {
		return nil, err
	}
	if data != nil {
		return data, nil
	}
	if err := c.online(); err != nil {
		return nil, fmt.Errorf("attachment %s: %w", id, err)
	}

	data, _, err = c.transport.Attachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("attachment %s: %w", id, ErrNotFound)
	}
	if err := c.store.PutBlob(ctx, id, data); err != nil {
		c.logger.Warn("caching attachment failed", "id", id, "error", err)
	}
	return data, nil
}

// DeleteAttachment removes an attachment's metadata and cached payload
// and queues the delete.
func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	if err := c.store.DeleteBlob(ctx, id); err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return c.deleteRow(ctx, model.Attachments, id)
}
