package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
)

var weekCmd = &cobra.Command{
	Use:   "week [date...]",
	Short: "Show time entries for one or more weeks",
	Long: `Show the time entries of the weeks containing the given dates
(default: today), with daily and weekly totals and the week's approval
status. With --status, set the status of the first week before showing it.`,
	Example: `  chronolog week
  chronolog week 2025-03-05 2025-03-12
  chronolog week 2025-03-05 --status Submitted`,
	RunE: runWeek,
}

var weekStatus string

func init() {
	weekCmd.Flags().StringVar(&weekStatus, "status", "", "Set the week status: Unsubmitted, Submitted or Approved")
}

func runWeek(cmd *cobra.Command, args []string) error {
	dates := args
	if len(dates) == 0 {
		dates = []string{time.Now().Format(model.DateLayout)}
	}
	mondays := make([]string, 0, len(dates))
	for _, d := range dates {
		monday, err := isoweek.MondayOfWeek(d)
		if err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", d)
		}
		mondays = append(mondays, monday)
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()
	ctx := cmd.Context()

	if weekStatus != "" {
		year, week, err := isoweek.ISOWeek(mondays[0])
		if err != nil {
			return err
		}
		if err := client.UpdateWeeklyStatus(ctx, year, week, weekStatus); err != nil {
			return err
		}
	}

	weeks, err := client.WeeklyTimeEntries(ctx, mondays)
	if err != nil {
		return err
	}
	return output(cmd, weeks, func(w io.Writer) {
		printWeeks(w, weeks)
	})
}
