// Package views shapes joined rows into the read models served by the
// server's view endpoints. The server database and the local query fallback
// both finish their queries here, so online and offline reads order, count
// and substitute placeholders identically.
package views

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/notetext"
)

// SortContracts orders summaries by sort order, then name, then id.
func SortContracts(cs []model.ContractSummary) {
	slices.SortStableFunc(cs, func(a, b model.ContractSummary) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

// ContractSummaries joins contracts to their clients and counts notes per
// contract. Contracts whose client is missing are dropped.
func ContractSummaries(contracts, clients, notes []model.Row) []model.ContractSummary {
	clientByID := make(map[string]model.Row, len(clients))
	for _, c := range clients {
		clientByID[c.String("id")] = c
	}
	noteCount := make(map[string]int64)
	for _, n := range notes {
		noteCount[n.String("contractId")]++
	}

	out := []model.ContractSummary{}
	for _, c := range contracts {
		client, ok := clientByID[c.String("clientId")]
		if !ok {
			continue
		}
		out = append(out, model.ContractSummary{
			ID:              c.String("id"),
			Name:            c.String("name"),
			IsActive:        c.Bool("isActive"),
			SortOrder:       c.Int("sortOrder"),
			ClientID:        client.String("id"),
			ClientName:      client.String("name"),
			ClientShortCode: client.String("shortCode"),
			NoteCount:       noteCount[c.String("id")],
		})
	}
	SortContracts(out)
	return out
}

// NoteSummaries builds list entries with preview lines, pinned notes first,
// then most recently updated, then id.
func NoteSummaries(notes []model.Row) []model.NoteSummary {
	out := make([]model.NoteSummary, 0, len(notes))
	for _, n := range notes {
		first, second := notetext.PreviewLines(n.String("contentJson"))
		out = append(out, model.NoteSummary{
			ID:         n.String("id"),
			ContractID: n.String("contractId"),
			IsPinned:   n.Bool("isPinned"),
			CreatedAt:  n.String("createdAt"),
			UpdatedAt:  n.String("updatedAt"),
			FirstLine:  first,
			SecondLine: second,
		})
	}
	slices.SortStableFunc(out, func(a, b model.NoteSummary) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		if c := strings.Compare(b.UpdatedAt, a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// NoteDetail projects a note row. A nil row yields nil.
func NoteDetail(r model.Row) (*model.NoteDetail, error) {
	if r == nil {
		return nil, nil
	}
	var n model.Note
	if err := model.Decode(r, &n); err != nil {
		return nil, err
	}
	d := model.NoteDetailFromNote(n)
	return &d, nil
}

// Timer picks the draft entry to report as the timer: the most recently
// created, then lowest id. Non-draft rows are ignored.
func Timer(entries []model.Row) *model.TimerEntry {
	var pick model.Row
	for _, e := range entries {
		if !e.Bool("isDraft") {
			continue
		}
		if pick == nil {
			pick = e
			continue
		}
		c := strings.Compare(e.String("createdAt"), pick.String("createdAt"))
		if c > 0 || (c == 0 && e.String("id") < pick.String("id")) {
			pick = e
		}
	}
	if pick == nil {
		return nil
	}
	return &model.TimerEntry{
		ID:              pick.String("id"),
		StartTime:       optional(pick, "startTime"),
		EndTime:         optional(pick, "endTime"),
		DurationMinutes: pick.Int("durationMinutes"),
	}
}

func optional(r model.Row, col string) *string {
	s, ok := r[col].(string)
	if !ok {
		return nil
	}
	return &s
}

// JoinedEntry is a time entry with the names its references resolve to. A
// nil name means the lookup did not resolve.
type JoinedEntry struct {
	Entry           model.Row
	ContractName    *string
	ClientName      *string
	ClientShortCode *string
	DeliverableName *string
	WorkTypeName    *string
}

// Display renders a joined entry, substituting placeholders for an
// unresolved contract or client.
func (j JoinedEntry) Display() model.TimeEntryDisplay {
	return model.TimeEntryDisplay{
		ID:              j.Entry.String("id"),
		StartTime:       optional(j.Entry, "startTime"),
		EndTime:         optional(j.Entry, "endTime"),
		DurationMinutes: j.Entry.Int("durationMinutes"),
		ContractID:      j.Entry.String("contractId"),
		ContractName:    orDefault(j.ContractName, model.UnknownName),
		ClientName:      orDefault(j.ClientName, model.UnknownName),
		ClientShortCode: orDefault(j.ClientShortCode, model.UnknownShortCode),
		DeliverableName: j.DeliverableName,
		WorkTypeName:    j.WorkTypeName,
		Description:     optional(j.Entry, "description"),
		Date:            j.Entry.String("date"),
	}
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

// WeekRange returns the first and last date covered by weekStarts.
func WeekRange(weekStarts []string) (from, to string, err error) {
	for _, ws := range weekStarts {
		dates, err := isoweek.WeekDates(ws)
		if err != nil {
			return "", "", err
		}
		if from == "" || dates[0] < from {
			from = dates[0]
		}
		if dates[6] > to {
			to = dates[6]
		}
	}
	return from, to, nil
}

// Weeks groups joined non-draft entries into the seven days of each
// requested week. Days list entries by start time (entries without one
// first), then id. statuses are weekly status rows; the first row for an
// ISO year and week wins, and weeks without one are Unsubmitted.
func Weeks(weekStarts []string, entries []JoinedEntry, statuses []model.Row) ([]model.WeekData, error) {
	byDate := make(map[string][]model.TimeEntryDisplay)
	for _, j := range entries {
		if j.Entry.Bool("isDraft") {
			continue
		}
		d := j.Display()
		byDate[d.Date] = append(byDate[d.Date], d)
	}
	for _, list := range byDate {
		slices.SortStableFunc(list, func(a, b model.TimeEntryDisplay) int {
			if c := strings.Compare(deref(a.StartTime), deref(b.StartTime)); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
	}

	statusByWeek := make(map[string]string)
	for _, s := range statuses {
		key := weekKey(s.Int("year"), s.Int("weekNumber"))
		if _, ok := statusByWeek[key]; !ok {
			statusByWeek[key] = s.String("status")
		}
	}

	weeks := make([]model.WeekData, 0, len(weekStarts))
	for _, ws := range weekStarts {
		dates, err := isoweek.WeekDates(ws)
		if err != nil {
			return nil, err
		}
		year, week, err := isoweek.ISOWeek(ws)
		if err != nil {
			return nil, err
		}
		wd := model.WeekData{WeekStart: ws, Days: make([]model.DayData, 0, 7), Status: model.Unsubmitted}
		if s, ok := statusByWeek[weekKey(int64(year), int64(week))]; ok {
			wd.Status = s
		}
		for _, date := range dates {
			day := model.DayData{Date: date, Entries: []model.TimeEntryDisplay{}}
			if list, ok := byDate[date]; ok {
				day.Entries = slices.Clone(list)
			}
			for _, e := range day.Entries {
				day.TotalMinutes += e.DurationMinutes
			}
			wd.WeeklyTotalMinutes += day.TotalMinutes
			wd.Days = append(wd.Days, day)
		}
		weeks = append(weeks, wd)
	}
	return weeks, nil
}

func weekKey(year, week int64) string { return fmt.Sprintf("%d-%d", year, week) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NoteIDPrefix returns "{shortCode}.{YYYYMMDD}." for the UTC date of now.
func NoteIDPrefix(shortCode string, now time.Time) string {
	return shortCode + "." + now.UTC().Format("20060102") + "."
}

// NextNoteID returns prefix followed by one more than the highest numeric
// sequence among ids sharing prefix, zero-padded to three digits.
func NextNoteID(prefix string, ids []string) string {
	var highest int64
	for _, id := range ids {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.ParseInt(rest, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, highest+1)
}

// OfflineNoteID is used when the contract's client cannot be resolved.
func OfflineNoteID(now time.Time) string {
	return fmt.Sprintf("offline-%s-%d", uuid.NewString()[:8], now.UnixMilli())
}
