package serverdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/sqlrow"
)

type outcome int

const (
	skipped outcome = iota
	applied
	conflict
)

// PushChanges applies a batch of client mutations in one transaction.
// Tables are applied parents first; unknown tables are ignored.
//
// Upserts into tables with updatedAt are rejected as conflicts when the
// stored row is newer than the mutation's clientUpdatedAt. Protected
// columns are forced to userID and updatedAt is stamped with server time.
// Rows outside the user's ownership graph are skipped. A mutation that
// violates a constraint or carries an unusable value is skipped without
// affecting the rest of the batch.
func (s *Store) PushChanges(ctx context.Context, userID string, req model.PushRequest) (*model.PushResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := model.FormatTime(s.now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("serverdb: begin push: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p := &pusher{tx: tx, userID: userID, stamp: stamp, logger: s.logger}
	resp := &model.PushResponse{ServerTimestamp: stamp}
	for name := range req.Changes {
		if !model.IsTable(name) {
			s.logger.Debug("push ignored unknown table", slog.String("table", name))
		}
	}
	for _, t := range model.Tables() {
		for _, ch := range req.Changes[t.Name] {
			out, err := p.apply(ctx, t, ch)
			if err != nil {
				return nil, fmt.Errorf("serverdb: push %s: %w", t.Name, err)
			}
			switch out {
			case applied:
				resp.Applied++
			case conflict:
				resp.Conflicts++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("serverdb: commit push: %w", err)
	}
	s.logger.Debug("push applied",
		slog.String("user", userID),
		slog.Int("applied", resp.Applied),
		slog.Int("conflicts", resp.Conflicts))
	return resp, nil
}

// pusher applies mutations inside one push transaction.
type pusher struct {
	tx     *sql.Tx
	userID string
	stamp  string
	logger *slog.Logger
}

// apply runs one mutation inside a savepoint so a rejected row leaves the
// rest of the batch intact.
func (p *pusher) apply(ctx context.Context, t *model.Table, ch model.Change) (outcome, error) {
	if _, err := p.tx.ExecContext(ctx, "SAVEPOINT mutation"); err != nil {
		return skipped, err
	}
	out, err := p.applyOne(ctx, t, ch)
	if err != nil {
		if !isConstraint(err) && !errors.Is(err, model.ErrInvalidValue) {
			return skipped, err
		}
		p.logger.Warn("push mutation rejected",
			slog.String("table", t.Name),
			slog.String("operation", string(ch.Operation)),
			slog.String("error", err.Error()))
		if _, rbErr := p.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT mutation"); rbErr != nil {
			return skipped, rbErr
		}
		out = skipped
	}
	if _, err := p.tx.ExecContext(ctx, "RELEASE SAVEPOINT mutation"); err != nil {
		return skipped, err
	}
	return out, nil
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func (p *pusher) applyOne(ctx context.Context, t *model.Table, ch model.Change) (outcome, error) {
	if !ch.Operation.Valid() {
		return skipped, nil
	}
	switch t.Name {
	case model.NoteLinks:
		return p.applyLink(ctx, t, ch, "sourceNoteId", "targetNoteId")
	case model.NoteTimeEntries:
		return p.applyLink(ctx, t, ch, "noteId", "timeEntryId")
	case model.Attachments:
		return p.applyAttachment(ctx, ch)
	}

	id, _ := ch.Data["id"].(string)
	if id == "" {
		return skipped, nil
	}
	existing, err := sqlrow.Get(ctx, p.tx, t, id)
	if err != nil {
		return skipped, err
	}
	if existing != nil {
		owned, err := p.ownsExisting(ctx, t, existing)
		if err != nil || !owned {
			return skipped, err
		}
	}

	if ch.Operation == model.OpDelete {
		if existing == nil {
			return skipped, nil
		}
		removed, err := sqlrow.Remove(ctx, p.tx, t, id)
		if err != nil || !removed {
			return skipped, err
		}
		return applied, nil
	}

	if existing != nil && t.HasUpdatedAt && ch.ClientUpdatedAt != "" &&
		newer(existing.String("updatedAt"), ch.ClientUpdatedAt) {
		return conflict, nil
	}

	data, err := model.NormalizePartial(t, ch.Data)
	if err != nil {
		return skipped, err
	}
	for _, col := range []string{"createdAt", "updatedAt"} {
		if s, ok := data[col].(string); ok {
			if ts, ok := model.CanonicalTime(s); ok {
				data[col] = ts
			}
		}
	}
	for _, col := range t.Protected {
		data[col] = p.userID
	}
	if t.HasUpdatedAt {
		data["updatedAt"] = p.stamp
	}
	if existing == nil && t.HasCreatedAt && data["createdAt"] == nil {
		data["createdAt"] = p.stamp
	}

	result := data
	if existing != nil {
		result = existing.Clone()
		for k, v := range data {
			result[k] = v
		}
	}
	if ok, err := p.parentOwned(ctx, t, result); err != nil || !ok {
		return skipped, err
	}

	if existing == nil {
		err = insertRow(ctx, p.tx, t, data)
	} else {
		err = updateRow(ctx, p.tx, t, id, data)
	}
	if err != nil {
		return skipped, err
	}
	return applied, nil
}

// newer reports whether the stored timestamp is strictly after the
// client's. Unparseable timestamps never conflict.
func newer(server, client string) bool {
	st, err := model.ParseTime(server)
	if err != nil {
		return false
	}
	ct, err := model.ParseTime(client)
	if err != nil {
		return false
	}
	return st.After(ct)
}

// chainOwner resolves the user owning the parent chain of a row in a table
// without a user_id column. found is false when the chain is broken.
func (p *pusher) chainOwner(ctx context.Context, t *model.Table, r model.Row) (owner string, found bool, err error) {
	var query, parent string
	switch t.Name {
	case model.Contracts:
		query, parent = `SELECT user_id FROM clients WHERE id = ?`, r.String("clientId")
	case model.Deliverables:
		query = `SELECT cl.user_id FROM contracts c JOIN clients cl ON cl.id = c.client_id WHERE c.id = ?`
		parent = r.String("contractId")
	case model.WorkTypes:
		query = `SELECT cl.user_id FROM deliverables d
			JOIN contracts c ON c.id = d.contract_id
			JOIN clients cl ON cl.id = c.client_id
			WHERE d.id = ?`
		parent = r.String("deliverableId")
	default:
		return "", false, nil
	}
	if parent == "" {
		return "", false, nil
	}
	err = p.tx.QueryRowContext(ctx, query, parent).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return owner, true, nil
}

// ownsExisting reports whether the user may overwrite or delete a stored
// row: it is theirs, or it is an orphan whose parent chain is gone.
func (p *pusher) ownsExisting(ctx context.Context, t *model.Table, existing model.Row) (bool, error) {
	if t.HasColumn("userId") {
		return existing.String("userId") == p.userID, nil
	}
	owner, found, err := p.chainOwner(ctx, t, existing)
	if err != nil {
		return false, err
	}
	return !found || owner == p.userID, nil
}

// parentOwned reports whether the row about to be written hangs off the
// user's ownership graph. Tables with user_id are always owned once the
// protected column is forced.
func (p *pusher) parentOwned(ctx context.Context, t *model.Table, r model.Row) (bool, error) {
	if t.HasColumn("userId") {
		return true, nil
	}
	owner, found, err := p.chainOwner(ctx, t, r)
	if err != nil {
		return false, err
	}
	return found && owner == p.userID, nil
}

func (p *pusher) ownsNote(ctx context.Context, noteID string) (bool, error) {
	var one int
	err := p.tx.QueryRowContext(ctx, `SELECT 1 FROM notes WHERE id = ? AND user_id = ?`, noteID, p.userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// applyLink handles the composite-key join tables: insert if absent,
// delete if present, gated on the user owning the note named by ownerCol.
func (p *pusher) applyLink(ctx context.Context, t *model.Table, ch model.Change, ownerCol, otherCol string) (outcome, error) {
	noteID, _ := ch.Data[ownerCol].(string)
	otherID, _ := ch.Data[otherCol].(string)
	if noteID == "" || otherID == "" {
		return skipped, nil
	}
	if ok, err := p.ownsNote(ctx, noteID); err != nil || !ok {
		return skipped, err
	}

	if ch.Operation == model.OpDelete {
		removed, err := sqlrow.Remove(ctx, p.tx, t, model.EncodeKey(noteID, otherID))
		if err != nil || !removed {
			return skipped, err
		}
		return applied, nil
	}

	anchor, _ := ch.Data["headingAnchor"].(string)
	var anchorArg any
	if anchor != "" {
		anchorArg = anchor
	}
	cols := []string{model.SnakeCase(ownerCol), model.SnakeCase(otherCol), "heading_anchor"}
	args := []any{noteID, otherID, anchorArg}
	if t.HasCreatedAt {
		cols = append(cols, "created_at")
		args = append(args, p.stamp)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		t.SQLName(), strings.Join(cols, ", "), sqlrow.Placeholders(len(cols)))
	if _, err := p.tx.ExecContext(ctx, query, args...); err != nil {
		return skipped, err
	}
	return applied, nil
}

// applyAttachment only deletes. Attachment uploads do not travel through
// sync.
func (p *pusher) applyAttachment(ctx context.Context, ch model.Change) (outcome, error) {
	if ch.Operation != model.OpDelete {
		return skipped, nil
	}
	id, _ := ch.Data["id"].(string)
	if id == "" {
		return skipped, nil
	}
	res, err := p.tx.ExecContext(ctx,
		`DELETE FROM attachments WHERE id = ? AND note_id IN (`+userNotes+`)`, id, p.userID)
	if err != nil {
		return skipped, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return skipped, err
	}
	return applied, nil
}

// insertRow inserts the non-nil columns present in data. Omitted columns
// take their schema defaults.
func insertRow(ctx context.Context, q sqlrow.Querier, t *model.Table, data model.Row) error {
	var (
		cols []string
		args []any
	)
	for _, c := range t.Columns {
		v, ok := data[c.Name]
		if !ok || v == nil {
			continue
		}
		cols = append(cols, c.SQLName())
		args = append(args, sqlrow.Value(v))
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.SQLName(), strings.Join(cols, ", "), sqlrow.Placeholders(len(cols)))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", t.Name, err)
	}
	return nil
}

// updateRow sets the non-key columns present in data.
func updateRow(ctx context.Context, q sqlrow.Querier, t *model.Table, id string, data model.Row) error {
	var (
		sets []string
		args []any
	)
	for _, c := range t.Columns {
		v, ok := data[c.Name]
		if !ok || c.Name == "id" {
			continue
		}
		sets = append(sets, c.SQLName()+" = ?")
		args = append(args, sqlrow.Value(v))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", t.SQLName(), strings.Join(sets, ", "))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update %s: %w", t.Name, err)
	}
	return nil
}
