// Package sqlrow maps registry tables onto typed snake_case SQLite tables.
// It is shared by the on-device SQL store and the server database.
package sqlrow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hyperengineering/chronolog/internal/model"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Columns returns the table's column list, optionally qualified by alias.
func Columns(t *model.Table, alias string) string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if alias != "" {
			names[i] = alias + "." + c.SQLName()
		} else {
			names[i] = c.SQLName()
		}
	}
	return strings.Join(names, ", ")
}

// Placeholders returns n comma-separated "?" markers.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// KeyWhere returns the primary key predicate, e.g. "note_id = ? AND time_entry_id = ?".
func KeyWhere(t *model.Table, alias string) string {
	parts := make([]string, len(t.Key))
	for i, k := range t.Key {
		col := model.SnakeCase(k)
		if alias != "" {
			col = alias + "." + col
		}
		parts[i] = col + " = ?"
	}
	return strings.Join(parts, " AND ")
}

// OrderBy returns the primary key ordering clause body.
func OrderBy(t *model.Table, alias string) string {
	parts := make([]string, len(t.Key))
	for i, k := range t.Key {
		col := model.SnakeCase(k)
		if alias != "" {
			col = alias + "." + col
		}
		parts[i] = col
	}
	return strings.Join(parts, ", ")
}

// KeyArgs converts an id into key arguments.
func KeyArgs(t *model.Table, id string) ([]any, error) {
	parts, err := t.KeyParts(id)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(parts))
	for i, p := range parts {
		args[i] = p
	}
	return args, nil
}

// Value converts a normalized row value into a SQL argument.
func Value(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// Args returns the values of a normalized row in column order.
func Args(t *model.Table, r model.Row) []any {
	args := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		args[i] = Value(r[c.Name])
	}
	return args
}

// Where builds an AND-combined equality predicate from a normalized filter.
// Nil filter values match NULL. Columns are visited in table order so the
// generated SQL is stable.
func Where(t *model.Table, alias string, filter model.Row) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range t.Columns {
		v, ok := filter[c.Name]
		if !ok {
			continue
		}
		col := c.SQLName()
		if alias != "" {
			col = alias + "." + col
		}
		if v == nil {
			clauses = append(clauses, col+" IS NULL")
			continue
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, Value(v))
	}
	return strings.Join(clauses, " AND "), args
}

// Select reads rows of t matching the filter, ordered by primary key.
func Select(ctx context.Context, q Querier, t *model.Table, filter model.Row) ([]model.Row, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", Columns(t, ""), t.SQLName())
	where, args := Where(t, "", filter)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY " + OrderBy(t, "")
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return Scan(rows, t)
}

// Get reads one row by id. A missing row returns nil, nil.
func Get(ctx context.Context, q Querier, t *model.Table, id string) (model.Row, error) {
	args, err := KeyArgs(t, id)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", Columns(t, ""), t.SQLName(), KeyWhere(t, ""))
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.Name, err)
	}
	out, err := Scan(rows, t)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// Replace writes a whole row, inserting or replacing by primary key.
func Replace(ctx context.Context, q Querier, t *model.Table, r model.Row) error {
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		t.SQLName(), Columns(t, ""), Placeholders(len(t.Columns)))
	if _, err := q.ExecContext(ctx, query, Args(t, r)...); err != nil {
		return fmt.Errorf("put %s: %w", t.Name, err)
	}
	return nil
}

// Remove deletes one row by id and reports whether a row was removed.
func Remove(ctx context.Context, q Querier, t *model.Table, id string) (bool, error) {
	args, err := KeyArgs(t, id)
	if err != nil {
		return false, err
	}
	res, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t.SQLName(), KeyWhere(t, "")), args...)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	return n > 0, nil
}

// Scan reads every row of rows as normalized rows of t. The result set must
// select exactly the table's columns in order. rows is closed.
func Scan(rows *sql.Rows, t *model.Table) ([]model.Row, error) {
	defer func() { _ = rows.Close() }()
	out := []model.Row{}
	for rows.Next() {
		r, err := ScanOne(rows, t)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.Name, err)
	}
	return out, nil
}

// ScanOne scans the current row. The leading values are the table's columns;
// trailing values are scanned into extra.
func ScanOne(rows *sql.Rows, t *model.Table, extra ...any) (model.Row, error) {
	vals := make([]any, len(t.Columns))
	dest := make([]any, 0, len(vals)+len(extra))
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	dest = append(dest, extra...)
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s: %w", t.Name, err)
	}
	r := make(model.Row, len(t.Columns))
	for i, c := range t.Columns {
		v, err := fromSQL(c.Kind, vals[i])
		if err != nil {
			return nil, fmt.Errorf("scan %s.%s: %w", t.Name, c.Name, err)
		}
		r[c.Name] = v
	}
	return r, nil
}

func fromSQL(kind model.Kind, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		v = string(x)
	case time.Time:
		v = model.FormatTime(x)
	}
	if kind == model.KindText {
		if n, ok := v.(int64); ok {
			return fmt.Sprint(n), nil
		}
	}
	return model.Coerce(kind, v)
}
