package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hyperengineering/chronolog/internal/server"
	"github.com/hyperengineering/chronolog/internal/serverdb"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	Long: `Run the Chronolog sync server: pull/push sync plus the read views
used by online clients.

Tokens map bearer tokens to user ids and are given as user=token.`,
	Example: `  chronolog serve --token alice=s3cret --token bob=hunter2
  chronolog serve --addr :9090 --db /var/lib/chronolog/server.db --log-file /var/log/chronolog.log`,
	RunE: runServe,
}

var serveTokens []string

func init() {
	f := serveCmd.Flags()
	f.String("addr", ":8080", "Listen address (env: CHRONOLOG_ADDR)")
	f.String("db", "", "Server database path (default: ~/.chronolog/server.db)")
	f.StringArrayVar(&serveTokens, "token", nil, "Bearer token as user=token (repeatable; env: CHRONOLOG_SERVER_TOKENS)")
	f.StringSlice("cors-origin", nil, "Allowed browser origins (default: any)")
	f.String("log-file", "", "Write JSON logs to this file, rotated by size")

	for _, name := range []string{"addr", "cors-origin", "log-file"} {
		_ = v.BindPFlag(name, f.Lookup(name))
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	tokens, err := parseTokens(append(serveTokens, v.GetStringSlice("server-tokens")...))
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("at least one --token user=token is required")
	}

	logger, closeLog := serverLogger(cmd.ErrOrStderr(), v.GetString("log-file"))
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openServerDB(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := server.New(store, server.Config{
		Addr:        v.GetString("addr"),
		Tokens:      tokens,
		CORSOrigins: v.GetStringSlice("cors-origin"),
	}, logger)
	return srv.Run(ctx)
}

// parseTokens turns user=token pairs into a token to user map.
func parseTokens(pairs []string) (map[string]string, error) {
	tokens := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		user, token, ok := strings.Cut(pair, "=")
		if !ok || user == "" || token == "" {
			return nil, fmt.Errorf("invalid token %q: expected user=token", pair)
		}
		tokens[token] = user
	}
	return tokens, nil
}

// serverLogger logs JSON to w, or to a rotated file when path is set.
func serverLogger(w io.Writer, path string) (*slog.Logger, func()) {
	closeFn := func() {}
	if path != "" {
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
		w = lj
		closeFn = func() { _ = lj.Close() }
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	return slog.New(handler).With("component", "server"), closeFn
}

// openServerDB opens the database named by --db, then CHRONOLOG_SERVER_DB
// or the config file, then the default location.
func openServerDB(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) (*serverdb.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = v.GetString("server-db")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		path = filepath.Join(home, ".chronolog", "server.db")
	}
	store, err := serverdb.Open(ctx, path, serverdb.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	logger.Info("server database opened", slog.String("path", path))
	return store, nil
}
