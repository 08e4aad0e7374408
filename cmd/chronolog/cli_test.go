package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperengineering/chronolog"
)

// testEnv points the CLI at a fresh profile directory with no server.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CHRONOLOG_DB_DIR", filepath.Join(dir, "profile"))
	t.Setenv("CHRONOLOG_SERVER_URL", "")
	t.Setenv("CHRONOLOG_TOKEN", "")
	t.Setenv("CHRONOLOG_PROFILE", "")
	return dir
}

// resetFlags restores every flag to its default so commands don't see
// values from an earlier Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("chronolog %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("output should be valid JSON: %v\n%s", err, out)
	}
	return v
}

func TestCLI_Help_ListsAllCommands(t *testing.T) {
	testEnv(t)
	out := mustExecute(t, "--help")
	for _, name := range []string{"serve", "seed", "sync", "status", "contracts", "notes", "note", "week", "log", "timer", "mcp", "version"} {
		if !strings.Contains(out, name) {
			t.Errorf("--help output should contain %q command", name)
		}
	}
}

func TestVersion_JSON(t *testing.T) {
	testEnv(t)
	info := decode[map[string]any](t, mustExecute(t, "version", "--json"))
	for _, field := range []string{"version", "commit", "date", "go", "os", "arch"} {
		if _, ok := info[field]; !ok {
			t.Errorf("JSON should have %q field", field)
		}
	}
	if info["version"] != "dev" {
		t.Errorf("version = %v, want dev", info["version"])
	}

	if out := mustExecute(t, "version"); !strings.Contains(out, "chronolog dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestCLI_LogAndWeek(t *testing.T) {
	testEnv(t)

	out := mustExecute(t, "log", "k1", "90", "--date", "2025-03-05", "--desc", "review")
	if !strings.Contains(out, "Logged 1h 30m on 2025-03-05") {
		t.Errorf("log output = %q", out)
	}

	weeks := decode[[]chronolog.WeekData](t, mustExecute(t, "week", "2025-03-05", "--json"))
	if len(weeks) != 1 || weeks[0].WeekStart != "2025-03-03" || weeks[0].WeeklyTotalMinutes != 90 {
		t.Fatalf("weeks = %+v", weeks)
	}
	if weeks[0].Status != chronolog.StatusUnsubmitted {
		t.Errorf("status = %q, want %q", weeks[0].Status, chronolog.StatusUnsubmitted)
	}

	weeks = decode[[]chronolog.WeekData](t, mustExecute(t, "week", "2025-03-07", "--status", "Submitted", "--json"))
	if weeks[0].Status != chronolog.StatusSubmitted {
		t.Errorf("status after --status = %q", weeks[0].Status)
	}

	st := decode[statusInfo](t, mustExecute(t, "status", "--json"))
	if st.PendingCount != 2 || !st.Offline || st.State != chronolog.StateIdle {
		t.Errorf("status = %+v, want 2 pending, offline, idle", st)
	}
}

func TestCLI_InvalidInput(t *testing.T) {
	testEnv(t)
	tests := [][]string{
		{"log", "k1", "ninety"},
		{"log", "k1", "-5"},
		{"log", "k1", "30", "--date", "05/03/2025"},
		{"week", "tomorrow"},
		{"week", "2025-03-05", "--status", "Paid"},
		{"note", "missing.note"},
		{"timer", "stop"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if _, err := execute(t, args...); err == nil {
				t.Errorf("chronolog %v should fail", args)
			}
		})
	}
}

func TestCLI_NoteNotFound(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "note", "ACME.20250305.001")
	if !errors.Is(err, chronolog.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCLI_Notes(t *testing.T) {
	testEnv(t)

	created := decode[chronolog.NoteDetail](t, mustExecute(t,
		"notes", "k1", "--new", "--title", "Standup", "--content", "Sync model agreed", "--json"))
	if created.Title == nil || *created.Title != "Standup" {
		t.Fatalf("created note = %+v", created)
	}

	notes := decode[[]chronolog.NoteSummary](t, mustExecute(t, "notes", "k1", "--json"))
	if len(notes) != 1 || notes[0].ID != created.ID {
		t.Fatalf("notes = %+v", notes)
	}

	note := decode[chronolog.NoteDetail](t, mustExecute(t, "note", created.ID, "--pin", "--json"))
	if !note.IsPinned {
		t.Errorf("note after --pin = %+v", note)
	}

	out := mustExecute(t, "note", created.ID, "--content", "Moved to Friday")
	if !strings.Contains(out, "Moved to Friday") {
		t.Errorf("note output = %q", out)
	}
}

func TestCLI_TimerLifecycle(t *testing.T) {
	testEnv(t)

	if out := mustExecute(t, "timer", "status"); !strings.Contains(out, "No timer running.") {
		t.Errorf("timer status = %q", out)
	}
	if _, err := execute(t, "timer", "start"); !errors.Is(err, chronolog.ErrNoContracts) {
		t.Errorf("timer start without contracts: err = %v, want ErrNoContracts", err)
	}

	started := decode[chronolog.TimerEntry](t, mustExecute(t, "timer", "start", "k1", "--json"))
	if started.StartTime == nil || started.EndTime != nil {
		t.Fatalf("started = %+v", started)
	}
	stopped := decode[chronolog.TimerEntry](t, mustExecute(t, "timer", "stop", "--json"))
	if stopped.ID != started.ID || stopped.EndTime == nil {
		t.Fatalf("stopped = %+v", stopped)
	}
	if st := decode[statusInfo](t, mustExecute(t, "status", "--json")); st.PendingCount != 0 {
		t.Errorf("pending before save = %d, want 0", st.PendingCount)
	}

	mustExecute(t, "timer", "save", "--desc", "pairing")
	if st := decode[statusInfo](t, mustExecute(t, "status", "--json")); st.PendingCount != 1 {
		t.Errorf("pending after save = %d, want 1", st.PendingCount)
	}
	if out := mustExecute(t, "timer", "status"); !strings.Contains(out, "No timer running.") {
		t.Errorf("timer status after save = %q", out)
	}
}

func TestCLI_SyncWithoutServer(t *testing.T) {
	testEnv(t)
	_, err := execute(t, "sync")
	if err == nil || !strings.Contains(err.Error(), "no sync server configured") {
		t.Errorf("sync err = %v", err)
	}
}

func TestCLI_Seed(t *testing.T) {
	dir := testEnv(t)
	db := filepath.Join(dir, "server.db")

	out := mustExecute(t, "seed", "alice", "--db", db, "--json")
	res := decode[map[string]any](t, out)
	if applied, _ := res["applied"].(float64); applied == 0 {
		t.Errorf("seed result = %s", out)
	}

	out = mustExecute(t, "seed", "alice", "--db", db)
	if !strings.Contains(out, "Seeded") || !strings.Contains(out, "ACME.") {
		t.Errorf("seed output = %q", out)
	}
}

func TestParseTokens(t *testing.T) {
	got, err := parseTokens([]string{"alice=s3cret", "bob=a=b"})
	if err != nil {
		t.Fatalf("parseTokens() error = %v", err)
	}
	if got["s3cret"] != "alice" || got["a=b"] != "bob" {
		t.Errorf("parseTokens() = %v", got)
	}

	for _, bad := range []string{"alice", "=tok", "alice="} {
		if _, err := parseTokens([]string{bad}); err == nil {
			t.Errorf("parseTokens(%q) should fail", bad)
		}
	}
}

func TestOutputError_RedactsToken(t *testing.T) {
	testEnv(t)
	t.Setenv("CHRONOLOG_TOKEN", "s3cret")
	var buf bytes.Buffer
	outputError(&buf, errors.New("request with s3cret failed"))
	if strings.Contains(buf.String(), "s3cret") || !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("outputError() = %q", buf.String())
	}
}
