package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/isoweek"
)

// outputAsJSON writes any value as formatted JSON to the command's stdout.
func outputAsJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output writes v as JSON with --json, otherwise through human.
func output(cmd *cobra.Command, v any, human func(w io.Writer)) error {
	if outputJSON {
		return outputAsJSON(cmd, v)
	}
	human(cmd.OutOrStdout())
	return nil
}

// outputError prints an error to stderr with the bearer token redacted.
func outputError(w io.Writer, err error) {
	msg := err.Error()
	if token := v.GetString("token"); token != "" {
		msg = strings.ReplaceAll(msg, token, "[REDACTED]")
	}
	printStyled(w, iconError, errorStyle, "Error: %s", msg)
}

func printContracts(w io.Writer, contracts []chronolog.ContractSummary) {
	if len(contracts) == 0 {
		fmt.Fprintln(w, "No contracts found.")
		return
	}
	byClient := make(map[string][]chronolog.ContractSummary)
	var order []string
	for _, c := range contracts {
		if _, ok := byClient[c.ClientID]; !ok {
			order = append(order, c.ClientID)
		}
		byClient[c.ClientID] = append(byClient[c.ClientID], c)
	}
	for i, id := range order {
		if i > 0 {
			fmt.Fprintln(w)
		}
		first := byClient[id][0]
		fmt.Fprintf(w, "%s %s\n", style(headerStyle, first.ClientName), style(mutedStyle, first.ClientShortCode))
		for _, c := range byClient[id] {
			line := fmt.Sprintf("  %s  %s", c.Name, style(mutedStyle, fmt.Sprintf("%d notes", c.NoteCount)))
			if !c.IsActive {
				line += style(mutedStyle, "  (inactive)")
			}
			fmt.Fprintln(w, line)
			printMuted(w, "    %s", c.ID)
		}
	}
}

func printNotes(w io.Writer, notes []chronolog.NoteSummary) {
	if len(notes) == 0 {
		fmt.Fprintln(w, "No notes for this contract.")
		return
	}
	for _, n := range notes {
		marker := " "
		if n.IsPinned {
			marker = style(pinnedStyle, iconPinned)
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, style(labelStyle, n.ID), style(mutedStyle, n.UpdatedAt))
		if n.FirstLine != "" {
			fmt.Fprintf(w, "    %s\n", n.FirstLine)
		}
		if n.SecondLine != "" {
			printMuted(w, "    %s", n.SecondLine)
		}
	}
}

func printNote(w io.Writer, n *chronolog.NoteDetail) {
	printField(w, "Note", n.ID)
	if n.Title != nil {
		printField(w, "Title", *n.Title)
	}
	printField(w, "Words", fmt.Sprint(n.WordCount))
	printField(w, "Updated", n.UpdatedAt)
	if n.IsPinned {
		printField(w, "Pinned", "yes")
	}
	if n.Content != nil && *n.Content != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderMarkdown(*n.Content))
	}
}

func printWeeks(w io.Writer, weeks []chronolog.WeekData) {
	for i, week := range weeks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s  %s\n",
			style(headerStyle, "Week of "+week.WeekStart),
			style(labelStyle, isoweek.FormatHours(week.WeeklyTotalMinutes)),
			style(mutedStyle, week.Status))
		for _, day := range week.Days {
			t, _ := time.Parse("2006-01-02", day.Date)
			total := "-"
			if day.TotalMinutes > 0 {
				total = isoweek.FormatDuration(day.TotalMinutes)
			}
			fmt.Fprintf(w, "  %s %s  %s\n", t.Format("Mon"), day.Date, total)
			for _, e := range day.Entries {
				desc := ""
				if e.Description != nil {
					desc = *e.Description
				}
				fmt.Fprintf(w, "      %-7s %s %s  %s\n",
					isoweek.FormatDuration(e.DurationMinutes),
					style(labelStyle, e.ClientShortCode), e.ContractName, style(mutedStyle, desc))
			}
		}
	}
}

func printTimer(w io.Writer, t *chronolog.TimerEntry) {
	if t == nil {
		fmt.Fprintln(w, "No timer running.")
		return
	}
	printField(w, "Timer", t.ID)
	if t.StartTime != nil {
		printField(w, "Started", *t.StartTime)
	}
	if t.EndTime != nil {
		printField(w, "Stopped", *t.EndTime)
		printField(w, "Duration", isoweek.FormatDuration(t.DurationMinutes))
	}
}

func printStatus(w io.Writer, st chronolog.Status, backend string, offline bool) {
	printField(w, "State", string(st.State))
	printField(w, "Pending", fmt.Sprint(st.PendingCount))
	printField(w, "Backend", backend)
	if offline {
		printField(w, "Server", "none (offline only)")
	}
	if st.LastError != "" {
		printField(w, "Error", st.LastError)
	}
	if st.AuthExpired {
		printWarning(w, "Session expired; update the token and sync again.")
	}
}

func printSyncErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		printWarning(w, "%s", e)
	}
}
