package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
)

func formatContracts(contracts []chronolog.ContractSummary, refs []string) string {
	if len(contracts) == 0 {
		return "No contracts found."
	}
	// Group by client in order of first appearance, keeping contract order.
	var clients []string
	byClient := make(map[string][]int)
	for i, c := range contracts {
		if _, ok := byClient[c.ClientID]; !ok {
			clients = append(clients, c.ClientID)
		}
		byClient[c.ClientID] = append(byClient[c.ClientID], i)
	}

	var sb strings.Builder
	for n, client := range clients {
		if n > 0 {
			sb.WriteString("\n")
		}
		first := contracts[byClient[client][0]]
		fmt.Fprintf(&sb, "%s (%s)\n", first.ClientName, first.ClientShortCode)
		for _, i := range byClient[client] {
			c := contracts[i]
			fmt.Fprintf(&sb, "  [%s] %s, %d notes", refs[i], c.Name, c.NoteCount)
			if !c.IsActive {
				sb.WriteString(", inactive")
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\nUse contract refs (C1, C2, ...) with chronolog_notes, chronolog_log_time and chronolog_timer.")
	return sb.String()
}

func formatNotes(notes []chronolog.NoteSummary, refs []string) string {
	if len(notes) == 0 {
		return "No notes for this contract."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d notes:\n\n", len(notes))
	for i, n := range notes {
		fmt.Fprintf(&sb, "[%s] %s", refs[i], n.ID)
		if n.IsPinned {
			sb.WriteString(" (pinned)")
		}
		sb.WriteString("\n")
		if n.FirstLine != "" {
			fmt.Fprintf(&sb, "    %s\n", truncate(n.FirstLine, 100))
		}
		if n.SecondLine != "" {
			fmt.Fprintf(&sb, "    %s\n", truncate(n.SecondLine, 100))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatNote(n *chronolog.NoteDetail, ref string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n", ref, n.ID)
	if n.Title != nil && *n.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", *n.Title)
	}
	fmt.Fprintf(&sb, "Words: %d\nUpdated: %s\n", n.WordCount, n.UpdatedAt)
	if n.Content != nil && *n.Content != "" {
		fmt.Fprintf(&sb, "\n%s", *n.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatWeeks(weeks []chronolog.WeekData) string {
	var sb strings.Builder
	for i, w := range weeks {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "Week of %s (%s): %s\n", w.WeekStart, w.Status, isoweek.FormatDuration(w.WeeklyTotalMinutes))
		for _, d := range w.Days {
			if len(d.Entries) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "  %s %s  %s\n", weekday(d.Date), d.Date, isoweek.FormatDuration(d.TotalMinutes))
			for _, e := range d.Entries {
				fmt.Fprintf(&sb, "    - %s %s %s", isoweek.FormatDuration(e.DurationMinutes), e.ClientShortCode, e.ContractName)
				if e.Description != nil && *e.Description != "" {
					fmt.Fprintf(&sb, ": %s", *e.Description)
				}
				sb.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func weekday(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "   "
	}
	return t.Weekday().String()[:3]
}

func formatTimer(t *chronolog.TimerEntry, ref string) string {
	if t == nil {
		return "No timer running."
	}
	if t.EndTime != nil {
		return fmt.Sprintf("Timer [%s] stopped: %s to %s, %s", ref, deref(t.StartTime), *t.EndTime, isoweek.FormatDuration(t.DurationMinutes))
	}
	return fmt.Sprintf("Timer [%s] running since %s", ref, deref(t.StartTime))
}

func formatStatus(st chronolog.Status) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "State: %s\nPending changes: %d", st.State, st.PendingCount)
	if st.LastError != "" {
		fmt.Fprintf(&sb, "\nLast error: %s", st.LastError)
	}
	if st.AuthExpired {
		sb.WriteString("\nAuthentication expired: log in again.")
	}
	return sb.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
