package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
)

var logCmd = &cobra.Command{
	Use:   "log <contract-id> <minutes>",
	Short: "Log time against a contract",
	Long: `Record a completed time entry. The entry is stored locally and
queued for the next sync.`,
	Example: `  chronolog log 0f6c... 90 --desc "Sync engine review"
  chronolog log 0f6c... 30 --date 2025-03-04`,
	Args: cobra.ExactArgs(2),
	RunE: runLog,
}

var (
	logDate string
	logDesc string
)

func init() {
	logCmd.Flags().StringVar(&logDate, "date", "", "Entry date as YYYY-MM-DD (default: today)")
	logCmd.Flags().StringVar(&logDesc, "desc", "", "Description")
}

type loggedEntry struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	DurationMinutes int64  `json:"durationMinutes"`
}

func runLog(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid minutes %q: %w", args[1], err)
	}
	date := logDate
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	}

	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.CreateTimeEntry(cmd.Context(), chronolog.TimeEntryCreate{
		Date:            date,
		DurationMinutes: minutes,
		ContractID:      args[0],
		Description:     logDesc,
	})
	if err != nil {
		return err
	}
	entry := loggedEntry{ID: id, Date: date, DurationMinutes: minutes}
	return output(cmd, entry, func(w io.Writer) {
		printSuccess(w, "Logged %s on %s", isoweek.FormatDuration(minutes), date)
		printMuted(w, "  %s", id)
	})
}
