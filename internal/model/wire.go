package model

import "time"

// Operation is the kind of a queued mutation.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool { return op == OpUpsert || op == OpDelete }

// PendingMutation is a local write awaiting delivery to the server.
type PendingMutation struct {
	ID        string         `json:"id"`
	Table     string         `json:"table"`
	EntityID  string         `json:"entityId"`
	Operation Operation      `json:"operation"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Change is one mutation as sent in a push request.
type Change struct {
	Operation       Operation      `json:"operation"`
	Data            map[string]any `json:"data"`
	ClientUpdatedAt string         `json:"clientUpdatedAt,omitempty"`
}

// PushRequest is the body of POST /api/sync/push.
type PushRequest struct {
	Changes map[string][]Change `json:"changes"`
}

// PushResponse reports aggregate push results.
type PushResponse struct {
	Applied         int    `json:"applied"`
	Conflicts       int    `json:"conflicts"`
	ServerTimestamp string `json:"serverTimestamp"`
}

// PullResponse carries every row changed since the requested watermark.
type PullResponse struct {
	Clients         []Row  `json:"clients"`
	Contracts       []Row  `json:"contracts"`
	Deliverables    []Row  `json:"deliverables"`
	WorkTypes       []Row  `json:"workTypes"`
	TimeEntries     []Row  `json:"timeEntries"`
	Notes           []Row  `json:"notes"`
	NoteLinks       []Row  `json:"noteLinks"`
	NoteTimeEntries []Row  `json:"noteTimeEntries"`
	WeeklyStatuses  []Row  `json:"weeklyStatuses"`
	Attachments     []Row  `json:"attachments"`
	ServerTimestamp string `json:"serverTimestamp"`
}

// NewPullResponse returns a response with every table set to an empty slice,
// stamped with at.
func NewPullResponse(at time.Time) *PullResponse {
	p := &PullResponse{ServerTimestamp: FormatTime(at)}
	for _, name := range TableNames() {
		p.Set(name, []Row{})
	}
	return p
}

func (p *PullResponse) slot(table string) *[]Row {
	switch table {
	case Clients:
		return &p.Clients
	case Contracts:
		return &p.Contracts
	case Deliverables:
		return &p.Deliverables
	case WorkTypes:
		return &p.WorkTypes
	case TimeEntries:
		return &p.TimeEntries
	case Notes:
		return &p.Notes
	case NoteLinks:
		return &p.NoteLinks
	case NoteTimeEntries:
		return &p.NoteTimeEntries
	case WeeklyStatuses:
		return &p.WeeklyStatuses
	case Attachments:
		return &p.Attachments
	}
	return nil
}

// Rows returns the rows received for table.
func (p *PullResponse) Rows(table string) []Row {
	if s := p.slot(table); s != nil {
		return *s
	}
	return nil
}

// Set replaces the rows for table. Unknown tables are ignored.
func (p *PullResponse) Set(table string, rows []Row) {
	if s := p.slot(table); s != nil {
		*s = rows
	}
}

// Total is the number of rows across all tables.
func (p *PullResponse) Total() int {
	n := 0
	for _, name := range TableNames() {
		n += len(p.Rows(name))
	}
	return n
}
