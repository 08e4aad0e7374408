package main

import (
	"io"

	"github.com/spf13/cobra"
)

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "List contracts grouped by client",
	Long: `List every contract with its client and note count. Inactive
contracts are marked. Reads the server when reachable, otherwise the local
store.`,
	Example: `  chronolog contracts
  chronolog contracts --json`,
	Args: cobra.NoArgs,
	RunE: runContracts,
}

func runContracts(cmd *cobra.Command, _ []string) error {
	client, err := openClient()
	if err != nil {
		return err
	}
	defer client.Close()

	contracts, err := client.ContractsByClient(cmd.Context())
	if err != nil {
		return err
	}
	return output(cmd, contracts, func(w io.Writer) {
		printContracts(w, contracts)
	})
}
