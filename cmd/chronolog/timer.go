package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/chronolog"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Run a stopwatch that becomes a time entry",
	Long: `A timer is a draft time entry kept on this device. Start it, stop
it, then save it as a regular entry or discard it. Only saving reaches the
server.`,
	Example: `  chronolog timer start 0f6c...
  chronolog timer stop
  chronolog timer save --desc "Pairing on sync"`,
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current timer",
	Args:  cobra.NoArgs,
	RunE: withTimerClient(func(cmd *cobra.Command, client *chronolog.Client, _ []string) error {
		t, err := client.TimerStatus(cmd.Context())
		if err != nil {
			return err
		}
		return output(cmd, t, func(w io.Writer) { printTimer(w, t) })
	}),
}

var timerStartCmd = &cobra.Command{
	Use:   "start [contract-id]",
	Short: "Start a timer (default: the first active contract)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withTimerClient(func(cmd *cobra.Command, client *chronolog.Client, args []string) error {
		contract := ""
		if len(args) == 1 {
			contract = args[0]
		}
		t, err := client.StartTimer(cmd.Context(), contract)
		if err != nil {
			return err
		}
		return output(cmd, t, func(w io.Writer) {
			printSuccess(w, "Timer started")
			printTimer(w, t)
		})
	}),
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	Args:  cobra.NoArgs,
	RunE: withTimerClient(func(cmd *cobra.Command, client *chronolog.Client, _ []string) error {
		id, err := currentTimer(cmd, client)
		if err != nil {
			return err
		}
		t, err := client.StopTimer(cmd.Context(), id)
		if err != nil {
			return err
		}
		return output(cmd, t, func(w io.Writer) { printTimer(w, t) })
	}),
}

var timerSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the timer as a time entry",
	Args:  cobra.NoArgs,
	RunE: withTimerClient(func(cmd *cobra.Command, client *chronolog.Client, _ []string) error {
		id, err := currentTimer(cmd, client)
		if err != nil {
			return err
		}
		err = client.SaveTimer(cmd.Context(), id, chronolog.TimerSave{
			ContractID:    timerContract,
			DeliverableID: timerDeliverable,
			WorkTypeID:    timerWorkType,
			Description:   timerDesc,
		})
		if err != nil {
			return err
		}
		return output(cmd, map[string]string{"id": id}, func(w io.Writer) {
			printSuccess(w, "Timer saved as a time entry")
		})
	}),
}

var timerDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Throw the timer away",
	Args:  cobra.NoArgs,
	RunE: withTimerClient(func(cmd *cobra.Command, client *chronolog.Client, _ []string) error {
		id, err := currentTimer(cmd, client)
		if err != nil {
			return err
		}
		if err := client.DiscardTimer(cmd.Context(), id); err != nil {
			return err
		}
		return output(cmd, map[string]string{"id": id}, func(w io.Writer) {
			printSuccess(w, "Timer discarded")
		})
	}),
}

var (
	timerContract    string
	timerDeliverable string
	timerWorkType    string
	timerDesc        string
)

func init() {
	f := timerSaveCmd.Flags()
	f.StringVar(&timerContract, "contract", "", "Contract to book the time on")
	f.StringVar(&timerDeliverable, "deliverable", "", "Deliverable id")
	f.StringVar(&timerWorkType, "work-type", "", "Work type id")
	f.StringVar(&timerDesc, "desc", "", "Description")

	timerCmd.AddCommand(timerStatusCmd, timerStartCmd, timerStopCmd, timerSaveCmd, timerDiscardCmd)
}

func withTimerClient(run func(*cobra.Command, *chronolog.Client, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		client, err := openClient()
		if err != nil {
			return err
		}
		defer client.Close()
		return run(cmd, client, args)
	}
}

// currentTimer returns the id of the timer TimerStatus reports.
func currentTimer(cmd *cobra.Command, client *chronolog.Client) (string, error) {
	t, err := client.TimerStatus(cmd.Context())
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", fmt.Errorf("no timer: %w", chronolog.ErrTimerNotFound)
	}
	return t.ID, nil
}
