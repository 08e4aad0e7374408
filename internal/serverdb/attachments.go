package serverdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/chronolog/internal/model"
)

// AttachmentFile is an attachment's metadata with its payload.
type AttachmentFile struct {
	model.Attachment
	Data []byte
}

// Attachment returns an attachment on one of the user's notes. Attachments
// on other users' notes are reported as ErrNotFound.
func (s *Store) Attachment(ctx context.Context, userID, id string) (*AttachmentFile, error) {
	var (
		f         AttachmentFile
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.note_id, a.filename, a.mime_type, a.size_bytes, a.created_at, a.data
		FROM attachments a JOIN notes n ON n.id = a.note_id
		WHERE a.id = ? AND n.user_id = ?`, id, userID).
		Scan(&f.ID, &f.NoteID, &f.Filename, &f.MimeType, &f.SizeBytes, &createdAt, &f.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("serverdb: attachment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("serverdb: attachment %s: %w", id, err)
	}
	f.CreatedAt = createdAt
	return &f, nil
}

// PutAttachment stores an attachment on one of the user's notes. Size and
// a missing creation time are filled in.
func (s *Store) PutAttachment(ctx context.Context, userID string, a model.Attachment, data []byte) (model.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM notes WHERE id = ?`, a.NoteID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
		return model.Attachment{}, fmt.Errorf("serverdb: note %s: %w", a.NoteID, ErrNotFound)
	}
	if err != nil {
		return model.Attachment{}, fmt.Errorf("serverdb: put attachment: %w", err)
	}

	if data == nil {
		data = []byte{}
	}
	a.SizeBytes = int64(len(data))
	if a.CreatedAt == "" {
		a.CreatedAt = model.FormatTime(s.now())
	} else if ts, ok := model.CanonicalTime(a.CreatedAt); ok {
		a.CreatedAt = ts
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, note_id, filename, mime_type, size_bytes, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			size_bytes = excluded.size_bytes,
			data = excluded.data`,
		a.ID, a.NoteID, a.Filename, a.MimeType, a.SizeBytes, data, a.CreatedAt)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("serverdb: put attachment: %w", err)
	}
	return a, nil
}
