package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize with the Chronolog server",
	Long: `Push queued local changes to the server and pull everything that
changed since the last sync. The first sync of a profile pulls the full
data set.`,
	Example: `  chronolog sync           # push then pull
  chronolog sync --push    # push queued changes only
  chronolog sync --pull    # pull server changes only`,
	RunE: runSync,
}

var (
	syncPush bool
	syncPull bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncPush, "push", false, "Push local changes only")
	syncCmd.Flags().BoolVar(&syncPull, "pull", false, "Pull server changes only")
}

func runSync(cmd *cobra.Command, _ []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	var res chronolog.SyncResult
	op := func() error {
		var err error
		switch {
		case syncPush && !syncPull:
			var pushed chronolog.PushResult
			pushed, err = client.SyncPush(ctx)
			res = chronolog.SyncResult{Pushed: pushed.Pushed, Conflicts: pushed.Conflicts, Errors: pushed.Errors}
		case syncPull && !syncPush:
			var pulled chronolog.PullResult
			pulled, err = client.SyncPull(ctx)
			res = chronolog.SyncResult{Pulled: pulled.Pulled, Errors: pulled.Errors}
		default:
			res, err = client.Initialize(ctx)
		}
		return err
	}

	start := time.Now()
	err = runWithSpinner(cmd.ErrOrStderr(), "Syncing...", op)
	if errors.Is(err, chronolog.ErrOffline) {
		return fmt.Errorf("no sync server configured (set --server-url or CHRONOLOG_SERVER_URL)")
	}
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	return output(cmd, res, func(w io.Writer) {
		printSuccess(w, "Sync complete (took %s)", time.Since(start).Round(time.Millisecond))
		printField(w, "Pushed", fmt.Sprint(res.Pushed))
		printField(w, "Conflicts", fmt.Sprint(res.Conflicts))
		printField(w, "Pulled", fmt.Sprint(res.Pulled))
		printSyncErrors(w, res.Errors)
		if st := client.Status(); st.State == chronolog.StateOffline {
			printWarning(w, "Server unreachable; changes stay queued.")
		}
	})
}
