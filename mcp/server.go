// Package mcp exposes the Chronolog client to agents as MCP (Model Context
// Protocol) tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hyperengineering/chronolog"
	"github.com/hyperengineering/chronolog/internal/isoweek"
	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/notetext"
)

// Server wraps the MCP server with Chronolog tools.
type Server struct {
	client    *chronolog.Client
	mcpServer *server.MCPServer
	session   *Session
	now       func() time.Time
	handlers  map[string]handler
}

type handler func(ctx context.Context, args map[string]any) (*ToolResult, error)

// ToolResult represents the result of a tool call.
type ToolResult struct {
	Content string
	IsError bool
}

// ToolInfo represents a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a new MCP server with Chronolog tools registered.
func NewServer(client *chronolog.Client, opts ...Option) *Server {
	s := &Server{
		client:  client,
		session: NewSession(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		"chronolog",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdin and stdout.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// HandleMessage processes a raw JSON-RPC message and returns a response.
func (s *Server) HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, message)
}

var toolInfo = []ToolInfo{
	{Name: "chronolog_contracts", Description: "List contracts grouped by client, with note counts"},
	{Name: "chronolog_notes", Description: "List the notes of a contract, pinned first"},
	{Name: "chronolog_note", Description: "Show a note's title and content"},
	{Name: "chronolog_write_note", Description: "Create a note on a contract, or rewrite an existing note"},
	{Name: "chronolog_week", Description: "Show time entries and totals for one or more weeks"},
	{Name: "chronolog_log_time", Description: "Record a finished time entry"},
	{Name: "chronolog_week_status", Description: "Set a week's timesheet status"},
	{Name: "chronolog_timer", Description: "Start, stop, save, discard or inspect the running timer"},
	{Name: "chronolog_sync", Description: "Synchronize the local database with the server"},
	{Name: "chronolog_status", Description: "Show sync state and pending change count"},
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(toolInfo))
	copy(out, toolInfo)
	return out
}

// CallTool executes a tool by name with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	h, ok := s.handlers[name]
	if !ok {
		return &ToolResult{Content: fmt.Sprintf("unknown tool: %s", name), IsError: true}, nil
	}
	if args == nil {
		args = map[string]any{}
	}
	return h(ctx, args)
}

func (s *Server) registerTools() {
	s.handlers = map[string]handler{
		"chronolog_contracts":   s.handleContracts,
		"chronolog_notes":       s.handleNotes,
		"chronolog_note":        s.handleNote,
		"chronolog_write_note":  s.handleWriteNote,
		"chronolog_week":        s.handleWeek,
		"chronolog_log_time":    s.handleLogTime,
		"chronolog_week_status": s.handleWeekStatus,
		"chronolog_timer":       s.handleTimer,
		"chronolog_sync":        s.handleSync,
		"chronolog_status":      s.handleStatus,
	}

	contractArg := mcp.WithString("contract",
		mcp.Description("Contract ref from chronolog_contracts (C1, C2, ...) or contract id"),
		mcp.Required(),
	)
	noteArg := mcp.WithString("note",
		mcp.Description("Note ref from chronolog_notes (N1, N2, ...) or note id"),
		mcp.Required(),
	)

	tools := []mcp.Tool{
		mcp.NewTool("chronolog_contracts",
			mcp.WithDescription("List contracts grouped by client. Each contract gets a session ref (C1, C2, ...) usable in other tools."),
		),
		mcp.NewTool("chronolog_notes",
			mcp.WithDescription("List the notes of a contract with their first two lines. Each note gets a session ref (N1, N2, ...)."),
			contractArg,
		),
		mcp.NewTool("chronolog_note",
			mcp.WithDescription("Show a note's title, word count and content."),
			noteArg,
		),
		mcp.NewTool("chronolog_write_note",
			mcp.WithDescription("Create a note on a contract, or replace the title and content of an existing note. Changes are queued for sync."),
			mcp.WithString("contract", mcp.Description("Contract ref or id for a new note")),
			mcp.WithString("note", mcp.Description("Note ref or id to rewrite instead of creating")),
			mcp.WithString("title", mcp.Description("Note title")),
			mcp.WithString("content", mcp.Description("Plain text body; one paragraph per line")),
		),
		mcp.NewTool("chronolog_week",
			mcp.WithDescription("Show time entries per day with weekly totals and timesheet status."),
			mcp.WithArray("weeks",
				mcp.Description("Dates inside the weeks to show, YYYY-MM-DD (default: the current week)"),
				mcp.WithStringItems(),
			),
		),
		mcp.NewTool("chronolog_log_time",
			mcp.WithDescription("Record a finished time entry against a contract."),
			contractArg,
			mcp.WithNumber("minutes", mcp.Description("Duration in minutes"), mcp.Required()),
			mcp.WithString("date", mcp.Description("Date YYYY-MM-DD (default: today)")),
			mcp.WithString("description", mcp.Description("What the time was spent on")),
		),
		mcp.NewTool("chronolog_week_status",
			mcp.WithDescription("Set the timesheet status of the week containing a date."),
			mcp.WithString("date", mcp.Description("Any date in the week, YYYY-MM-DD"), mcp.Required()),
			mcp.WithString("status",
				mcp.Description("New status"),
				mcp.Enum(chronolog.StatusUnsubmitted, chronolog.StatusSubmitted, chronolog.StatusApproved),
				mcp.Required(),
			),
		),
		mcp.NewTool("chronolog_timer",
			mcp.WithDescription("Control the running timer. start creates a local draft; stop records the duration; save books it as a time entry; discard drops it."),
			mcp.WithString("action",
				mcp.Description("Timer action"),
				mcp.Enum("status", "start", "stop", "save", "discard"),
				mcp.Required(),
			),
			mcp.WithString("contract", mcp.Description("Contract ref or id (start: default first active contract; save: reassign)")),
			mcp.WithString("timer", mcp.Description("Timer ref or id (default: the running timer)")),
			mcp.WithString("description", mcp.Description("Description saved with the entry")),
		),
		mcp.NewTool("chronolog_sync",
			mcp.WithDescription("Synchronize with the sync server. Requires a configured server."),
			mcp.WithString("direction",
				mcp.Description("Sync direction: pull, push, or both (default: both)"),
				mcp.Enum("pull", "push", "both"),
			),
		),
		mcp.NewTool("chronolog_status",
			mcp.WithDescription("Show the sync state, pending change count and last error."),
		),
	}
	for _, tool := range tools {
		h := s.handlers[tool.Name]
		s.mcpServer.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			result, err := h(ctx, req.GetArguments())
			if err != nil {
				return nil, err
			}
			return toMCPResult(result), nil
		})
	}
}

func toMCPResult(r *ToolResult) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: r.Content}},
		IsError: r.IsError,
	}
}

func failure(format string, args ...any) *ToolResult {
	return &ToolResult{Content: fmt.Sprintf(format, args...), IsError: true}
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// Internal handlers

func (s *Server) handleContracts(ctx context.Context, _ map[string]any) (*ToolResult, error) {
	contracts, err := s.client.ContractsByClient(ctx)
	if err != nil {
		return failure("listing contracts failed: %v", err), nil
	}
	refs := make([]string, len(contracts))
	for i, c := range contracts {
		refs[i] = s.session.Track(KindContract, c.ID)
	}
	return &ToolResult{Content: formatContracts(contracts, refs)}, nil
}

func (s *Server) handleNotes(ctx context.Context, args map[string]any) (*ToolResult, error) {
	contract := stringArg(args, "contract")
	if contract == "" {
		return failure("contract is required"), nil
	}
	notes, err := s.client.NotesForContract(ctx, s.session.ID(KindContract, contract))
	if err != nil {
		return failure("listing notes failed: %v", err), nil
	}
	refs := make([]string, len(notes))
	for i, n := range notes {
		refs[i] = s.session.Track(KindNote, n.ID)
	}
	return &ToolResult{Content: formatNotes(notes, refs)}, nil
}

func (s *Server) handleNote(ctx context.Context, args map[string]any) (*ToolResult, error) {
	ref := stringArg(args, "note")
	if ref == "" {
		return failure("note is required"), nil
	}
	note, err := s.client.NoteByID(ctx, s.session.ID(KindNote, ref))
	if err != nil {
		return failure("reading note failed: %v", err), nil
	}
	if note == nil {
		return failure("note %s not found", ref), nil
	}
	return &ToolResult{Content: formatNote(note, s.session.Track(KindNote, note.ID))}, nil
}

func (s *Server) handleWriteNote(ctx context.Context, args map[string]any) (*ToolResult, error) {
	title, content := stringArg(args, "title"), stringArg(args, "content")
	doc := notetext.Document(title, content)
	update := chronolog.NoteUpdate{Title: &title, Content: &content, ContentJSON: &doc}

	id := s.session.ID(KindNote, stringArg(args, "note"))
	if id == "" {
		contract := stringArg(args, "contract")
		if contract == "" {
			return failure("contract or note is required"), nil
		}
		created, err := s.client.CreateNote(ctx, s.session.ID(KindContract, contract))
		if err != nil {
			return failure("creating note failed: %v", err), nil
		}
		id = created.ID
	}

	note, err := s.client.UpdateNote(ctx, id, update)
	if err != nil {
		return failure("writing note failed: %v", err), nil
	}
	if note == nil {
		return failure("note %s not found", id), nil
	}
	ref := s.session.Track(KindNote, note.ID)
	return &ToolResult{Content: fmt.Sprintf("Saved note [%s] %s (%d words)", ref, note.ID, note.WordCount)}, nil
}

func (s *Server) handleWeek(ctx context.Context, args map[string]any) (*ToolResult, error) {
	dates := toStringSlice(args["weeks"])
	if len(dates) == 0 {
		dates = []string{s.now().Format(model.DateLayout)}
	}
	mondays := make([]string, 0, len(dates))
	for _, d := range dates {
		monday, err := isoweek.MondayOfWeek(d)
		if err != nil {
			return failure("invalid date %q: expected YYYY-MM-DD", d), nil
		}
		mondays = append(mondays, monday)
	}
	weeks, err := s.client.WeeklyTimeEntries(ctx, mondays)
	if err != nil {
		return failure("loading weeks failed: %v", err), nil
	}
	return &ToolResult{Content: formatWeeks(weeks)}, nil
}

func (s *Server) handleLogTime(ctx context.Context, args map[string]any) (*ToolResult, error) {
	contract := stringArg(args, "contract")
	if contract == "" {
		return failure("contract is required"), nil
	}
	minutes, ok := args["minutes"].(float64)
	if !ok || minutes <= 0 {
		return failure("minutes must be a positive number"), nil
	}
	date := stringArg(args, "date")
	if date == "" {
		date = s.now().Format(model.DateLayout)
	}

	id, err := s.client.CreateTimeEntry(ctx, chronolog.TimeEntryCreate{
		Date:            date,
		DurationMinutes: int64(minutes),
		ContractID:      s.session.ID(KindContract, contract),
		Description:     stringArg(args, "description"),
	})
	if err != nil {
		return failure("logging time failed: %v", err), nil
	}
	return &ToolResult{Content: fmt.Sprintf("Logged %s on %s (%s)", isoweek.FormatDuration(int64(minutes)), date, id)}, nil
}

func (s *Server) handleWeekStatus(ctx context.Context, args map[string]any) (*ToolResult, error) {
	date, status := stringArg(args, "date"), stringArg(args, "status")
	year, week, err := isoweek.ISOWeek(date)
	if err != nil {
		return failure("invalid date %q: expected YYYY-MM-DD", date), nil
	}
	if err := s.client.UpdateWeeklyStatus(ctx, year, week, status); err != nil {
		return failure("updating week status failed: %v", err), nil
	}
	return &ToolResult{Content: fmt.Sprintf("Week %d-W%02d is now %s", year, week, status)}, nil
}

func (s *Server) handleTimer(ctx context.Context, args map[string]any) (*ToolResult, error) {
	action := stringArg(args, "action")
	if action == "start" {
		timer, err := s.client.StartTimer(ctx, s.session.ID(KindContract, stringArg(args, "contract")))
		if err != nil {
			return failure("starting timer failed: %v", err), nil
		}
		ref := s.session.Track(KindTimer, timer.ID)
		return &ToolResult{Content: fmt.Sprintf("Timer [%s] started at %s", ref, deref(timer.StartTime))}, nil
	}

	id := s.session.ID(KindTimer, stringArg(args, "timer"))
	if id == "" {
		running, err := s.client.TimerStatus(ctx)
		if err != nil {
			return failure("reading timer failed: %v", err), nil
		}
		if running == nil {
			if action == "status" {
				return &ToolResult{Content: "No timer running."}, nil
			}
			return failure("no timer running"), nil
		}
		id = running.ID
	}
	ref := s.session.Track(KindTimer, id)

	var err error
	switch action {
	case "status":
		running, err := s.client.TimerStatus(ctx)
		if err != nil {
			return failure("reading timer failed: %v", err), nil
		}
		return &ToolResult{Content: formatTimer(running, ref)}, nil
	case "stop":
		var stopped *chronolog.TimerEntry
		if stopped, err = s.client.StopTimer(ctx, id); err == nil {
			return &ToolResult{Content: fmt.Sprintf("Timer [%s] stopped after %s", ref, isoweek.FormatDuration(stopped.DurationMinutes))}, nil
		}
	case "save":
		err = s.client.SaveTimer(ctx, id, chronolog.TimerSave{
			ContractID:  s.session.ID(KindContract, stringArg(args, "contract")),
			Description: stringArg(args, "description"),
		})
		if err == nil {
			return &ToolResult{Content: fmt.Sprintf("Timer [%s] saved as a time entry", ref)}, nil
		}
	case "discard":
		if err = s.client.DiscardTimer(ctx, id); err == nil {
			return &ToolResult{Content: fmt.Sprintf("Timer [%s] discarded", ref)}, nil
		}
	default:
		return failure("unknown timer action %q", action), nil
	}
	return failure("timer %s failed: %v", action, err), nil
}

func (s *Server) handleSync(ctx context.Context, args map[string]any) (*ToolResult, error) {
	var (
		errs    []string
		summary string
		err     error
	)
	switch stringArg(args, "direction") {
	case "pull":
		var res chronolog.PullResult
		res, err = s.client.SyncPull(ctx)
		summary, errs = fmt.Sprintf("Pulled %d rows", res.Pulled), res.Errors
	case "push":
		var res chronolog.PushResult
		res, err = s.client.SyncPush(ctx)
		summary, errs = fmt.Sprintf("Pushed %d changes, %d conflicts", res.Pushed, res.Conflicts), res.Errors
	default:
		var res chronolog.SyncResult
		res, err = s.client.Sync(ctx)
		summary = fmt.Sprintf("Pushed %d changes, %d conflicts, pulled %d rows", res.Pushed, res.Conflicts, res.Pulled)
		errs = res.Errors
	}
	if errors.Is(err, chronolog.ErrOffline) {
		return failure("sync unavailable: no server configured"), nil
	}
	if err != nil {
		return failure("sync failed: %v", err), nil
	}
	if len(errs) > 0 {
		return failure("%s; errors: %v", summary, errs), nil
	}
	return &ToolResult{Content: summary}, nil
}

func (s *Server) handleStatus(_ context.Context, _ map[string]any) (*ToolResult, error) {
	return &ToolResult{Content: formatStatus(s.client.Status())}, nil
}

// toStringSlice converts []any or []string arguments to []string.
func toStringSlice(v any) []string {
	switch arr := v.(type) {
	case []string:
		return arr
	case []any:
		result := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}
