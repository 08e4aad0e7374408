package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyperengineering/chronolog"
)

// v layers flags over CHRONOLOG_* environment variables over the config file.
var v = viper.New()

var (
	cfgFile    string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "chronolog",
	Short: "Chronolog - offline-first time and notes tracking",
	Long: `Chronolog keeps contracts, notes and time entries in a local database
and synchronizes them with a Chronolog server when one is configured.

Every read works offline. Writes are queued locally and pushed on the
next sync.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.chronolog/config.yaml)")
	pf.String("profile", "", "Profile name (env: CHRONOLOG_PROFILE)")
	pf.String("db-dir", "", "Local database directory (default: derived from profile)")
	pf.String("backend", "", "Local storage backend: auto, sql or document")
	pf.String("server-url", "", "Sync server URL; empty means offline only")
	pf.String("token", "", "Bearer token for the sync server")
	pf.Bool("debug", false, "Log sync traffic")
	pf.String("debug-log", "", "Write debug logs to this file, rotated by size")
	pf.BoolVar(&outputJSON, "json", false, "Output as JSON")

	for _, name := range []string{"profile", "db-dir", "backend", "server-url", "token", "debug", "debug-log"} {
		_ = v.BindPFlag(name, pf.Lookup(name))
	}
	v.SetEnvPrefix("CHRONOLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, seedCmd, syncCmd, statusCmd, contractsCmd,
		notesCmd, noteCmd, weekCmd, logCmd, timerCmd, mcpCmd, versionCmd)
}

// initConfig reads the config file when one is given or present at the
// default location.
func initConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.SetConfigFile(filepath.Join(home, ".chronolog", "config.yaml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// loadConfig builds the client configuration. Commands run once and exit,
// so background syncing stays off.
func loadConfig() chronolog.Config {
	return chronolog.Config{
		Profile:      v.GetString("profile"),
		LocalPath:    v.GetString("db-dir"),
		Backend:      v.GetString("backend"),
		ServerURL:    v.GetString("server-url"),
		Token:        v.GetString("token"),
		Debug:        v.GetBool("debug"),
		DebugLogPath: v.GetString("debug-log"),
	}
}

// openClient opens the client for the configured profile.
func openClient() (*chronolog.Client, error) {
	return newClient(loadConfig())
}

func newClient(cfg chronolog.Config) (*chronolog.Client, error) {
	client, err := chronolog.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	return client, nil
}
