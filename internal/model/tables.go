// Package model defines the syncable tables, their rows and the shapes exchanged
// between the local stores, the sync engine and the server.
package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Table names as they appear on the wire and in the storage API.
const (
	Clients         = "clients"
	Contracts       = "contracts"
	Deliverables    = "deliverables"
	WorkTypes       = "workTypes"
	TimeEntries     = "timeEntries"
	Notes           = "notes"
	NoteLinks       = "noteLinks"
	NoteTimeEntries = "noteTimeEntries"
	WeeklyStatuses  = "weeklyStatuses"
	Attachments     = "attachments"
)

var (
	// ErrUnknownTable is returned for a table name outside the registry.
	ErrUnknownTable = errors.New("unknown table")

	// ErrInvalidValue is returned when a column value cannot be coerced to its kind.
	ErrInvalidValue = errors.New("invalid column value")

	// ErrInvalidKey is returned when a row id or composite key cannot be decoded.
	ErrInvalidKey = errors.New("invalid row key")

	// ErrStoreClosed is returned when operating on a closed local store.
	ErrStoreClosed = errors.New("store is closed")
)

// Kind is the storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
)

// Column describes one field of a table row.
type Column struct {
	// Name is the camelCase wire name.
	Name string
	Kind Kind
}

// SQLName returns the snake_case column name used by SQL-backed stores.
func (c Column) SQLName() string { return SnakeCase(c.Name) }

// Table describes a syncable table.
type Table struct {
	Name    string
	Columns []Column

	// Key lists the primary key columns. Two entries means a composite key.
	Key []string

	HasUpdatedAt bool
	HasCreatedAt bool

	// Protected columns are always overwritten by the server with the
	// authenticated user's id.
	Protected []string
}

// SQLName returns the snake_case table name.
func (t *Table) SQLName() string { return SnakeCase(t.Name) }

// IsComposite reports whether the table is keyed by more than one column.
func (t *Table) IsComposite() bool { return len(t.Key) > 1 }

// Column looks up a column by wire name.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsProtected reports whether the column is owned by the server.
func (t *Table) IsProtected(name string) bool {
	for _, p := range t.Protected {
		if p == name {
			return true
		}
	}
	return false
}

// HasColumn reports whether name is a declared column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

func text(name string) Column { return Column{Name: name, Kind: KindText} }
func integer(name string) Column { return Column{Name: name, Kind: KindInt} }
func boolean(name string) Column { return Column{Name: name, Kind: KindBool} }

var registry = []*Table{
	{
		Name: Clients,
		Columns: []Column{
			text("id"), text("userId"), text("name"), text("shortCode"),
			text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
		Protected:    []string{"userId"},
	},
	{
		Name: Contracts,
		Columns: []Column{
			text("id"), text("clientId"), text("name"), text("description"),
			boolean("isActive"), integer("sortOrder"), text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
	},
	{
		Name: Deliverables,
		Columns: []Column{
			text("id"), text("contractId"), text("name"), integer("sortOrder"),
			text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
	},
	{
		Name: WorkTypes,
		Columns: []Column{
			text("id"), text("deliverableId"), text("name"), integer("sortOrder"),
		},
		Key: []string{"id"},
	},
	{
		Name: TimeEntries,
		Columns: []Column{
			text("id"), text("userId"), text("contractId"), text("deliverableId"),
			text("workTypeId"), text("date"), text("startTime"), text("endTime"),
			integer("durationMinutes"), text("description"), boolean("isDraft"),
			text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
		Protected:    []string{"userId"},
	},
	{
		Name: Notes,
		Columns: []Column{
			text("id"), text("userId"), text("contractId"), text("title"), text("content"),
			text("contentJson"), integer("wordCount"), boolean("isPinned"),
			text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
		Protected:    []string{"userId"},
	},
	{
		Name: WeeklyStatuses,
		Columns: []Column{
			text("id"), text("userId"), text("weekStart"), integer("year"), integer("weekNumber"),
			text("status"), text("createdAt"), text("updatedAt"),
		},
		Key:          []string{"id"},
		HasUpdatedAt: true,
		HasCreatedAt: true,
		Protected:    []string{"userId"},
	},
	{
		Name: NoteLinks,
		Columns: []Column{
			text("sourceNoteId"), text("targetNoteId"), text("headingAnchor"), text("createdAt"),
		},
		Key:          []string{"sourceNoteId", "targetNoteId"},
		HasCreatedAt: true,
	},
	{
		Name: NoteTimeEntries,
		Columns: []Column{
			text("noteId"), text("timeEntryId"), text("headingAnchor"),
		},
		Key: []string{"noteId", "timeEntryId"},
	},
	{
		Name: Attachments,
		Columns: []Column{
			text("id"), text("noteId"), text("filename"), text("mimeType"),
			integer("sizeBytes"), text("createdAt"),
		},
		Key:          []string{"id"},
		HasCreatedAt: true,
	},
}

var byName = func() map[string]*Table {
	m := make(map[string]*Table, len(registry))
	for _, t := range registry {
		m[t.Name] = t
	}
	return m
}()

// Tables returns every syncable table in dependency order: parents before
// the rows that reference them.
func Tables() []*Table {
	out := make([]*Table, len(registry))
	copy(out, registry)
	return out
}

// TableNames returns the wire names of all tables in dependency order.
func TableNames() []string {
	names := make([]string, len(registry))
	for i, t := range registry {
		names[i] = t.Name
	}
	return names
}

// Lookup returns the table registered under name.
func Lookup(name string) (*Table, error) {
	t, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, name)
	}
	return t, nil
}

// IsTable reports whether name is a registered table.
func IsTable(name string) bool {
	_, ok := byName[name]
	return ok
}

// SnakeCase converts a camelCase identifier to snake_case.
func SnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
