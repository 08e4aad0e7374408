package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <user>",
	Short: "Load development data into the server database",
	Long: `Create two clients, three contracts, a week of time entries, notes
and an attachment for a user in the server database. Running it again adds
another copy.`,
	Example: `  chronolog seed alice --db ./server.db`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSeed,
}

func init() {
	seedCmd.Flags().String("db", "", "Server database path (default: ~/.chronolog/server.db)")
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := openServerDB(cmd.Context(), cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Seed(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output(cmd, res, func(w io.Writer) {
		printSuccess(w, "Seeded %d rows for %s", res.Applied, args[0])
		for _, id := range res.NoteIDs {
			printMuted(w, "  note %s", id)
		}
		fmt.Fprintf(w, "Attachments: %d\n", res.Attachments)
	})
}
