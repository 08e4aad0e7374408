package main

import (
	"github.com/spf13/cobra"

	chronologmcp "github.com/hyperengineering/chronolog/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server for assistant integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio, exposing
contracts, notes, weeks, time logging, the timer and sync as tools.

Example client configuration:

  {
    "mcpServers": {
      "chronolog": {
        "command": "chronolog",
        "args": ["mcp"],
        "env": {
          "CHRONOLOG_PROFILE": "work",
          "CHRONOLOG_SERVER_URL": "https://chronolog.example.com",
          "CHRONOLOG_TOKEN": "..."
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	// The client lives as long as the server, so background sync is on.
	cfg := loadConfig()
	cfg.AutoSync = true
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	// Sync failures are reported through the status tool.
	if _, err := client.Initialize(cmd.Context()); err != nil {
		printWarning(cmd.ErrOrStderr(), "initial sync: %v", err)
	}
	return chronologmcp.NewServer(client).Run()
}
