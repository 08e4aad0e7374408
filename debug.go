package chronolog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the client logger. When debug is off, logs are
// discarded. With debug on, logs go to stderr, or to logPath rotated by
// size. The returned closer releases the log file; it is never nil.
func NewLogger(debug bool, logPath string) (*slog.Logger, io.Closer) {
	if !debug {
		return slog.New(slog.DiscardHandler), nopCloser{}
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logPath != "" {
		_ = os.MkdirAll(filepath.Dir(logPath), 0o755)
		lj := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w, closer = lj, lj
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h).With(slog.String("component", "chronolog")), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
