package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and pending changes",
	RunE:  runStatus,
}

type statusInfo struct {
	chronolog.Status
	Backend string `json:"backend"`
	Offline bool   `json:"offline"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.RefreshStatus(cmd.Context()); err != nil {
		return err
	}

	cfg := loadConfig()
	info := statusInfo{
		Status:  client.Status(),
		Backend: client.Backend(),
		Offline: cfg.IsOffline(),
	}
	return output(cmd, info, func(w io.Writer) {
		printStatus(w, info.Status, info.Backend, info.Offline)
	})
}
