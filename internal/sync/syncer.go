package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage"
)

// ErrNoServer is reported when the engine has no transport configured.
var ErrNoServer = errors.New("no sync server configured")

// Engine orchestrates push and pull against the local store and owns the
// observable sync state.
//
// Transport failures are converted into state transitions plus messages in
// the result's Errors. Local storage failures are returned as errors.
type Engine struct {
	store     storage.Adapter
	queue     *Queue
	meta      *Metadata
	transport Transport
	logger    *slog.Logger

	mu          gosync.Mutex
	running     bool
	state       State
	pending     int
	lastError   string
	authExpired bool
	subs        map[int]chan Status
	nextSub     int
}

// NewEngine creates an engine. A nil transport makes every exchange fail as
// a network failure. A nil logger discards logs.
func NewEngine(store storage.Adapter, transport Transport, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		store:     store,
		queue:     NewQueue(store),
		meta:      NewMetadata(store),
		transport: transport,
		logger:    logger,
		state:     StateIdle,
		subs:      make(map[int]chan Status),
	}
}

// Queue returns the engine's mutation queue.
func (e *Engine) Queue() *Queue { return e.queue }

// Metadata returns the engine's watermark store.
func (e *Engine) Metadata() *Metadata { return e.meta }

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

func (e *Engine) AuthExpired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authExpired
}

// Status returns a consistent snapshot of the observable state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

func (e *Engine) snapshot() Status {
	return Status{
		State:        e.state,
		PendingCount: e.pending,
		LastError:    e.lastError,
		AuthExpired:  e.authExpired,
	}
}

// Subscribe returns a channel that receives the latest Status after every
// change. A slow reader only misses intermediate states; the engine never
// blocks on it. Call the returned func to unsubscribe and close the channel.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	ch := make(chan Status, 1)
	e.subs[id] = ch

	var once gosync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
			close(ch)
		})
	}
}

// notify publishes the current status. Callers hold e.mu.
func (e *Engine) notify() {
	st := e.snapshot()
	for _, ch := range e.subs {
		select {
		case ch <- st:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = s
	e.notify()
}

// ResetAuth clears the auth-expired flag after the caller re-authenticates.
func (e *Engine) ResetAuth() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authExpired = false
	e.notify()
}

// RefreshPendingCount re-reads the queue size into the observable counter.
func (e *Engine) RefreshPendingCount(ctx context.Context) error {
	n, err := e.queue.Count(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = n
	e.notify()
	return nil
}

// begin claims the sync slot. It reports false when a sync is in flight.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	e.state = StateSyncing
	e.lastError = ""
	e.notify()
	return true
}

func (e *Engine) finish(s State, lastError string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.state = s
	e.lastError = lastError
	e.notify()
}

// describe turns a transport failure into a user-facing message. Auth
// failures set the auth-expired flag. network reports a connectivity failure.
func (e *Engine) describe(err error) (msg string, network bool) {
	var se *SyncError
	if errors.As(err, &se) {
		switch se.Kind {
		case KindAuth:
			e.mu.Lock()
			e.authExpired = true
			e.notify()
			e.mu.Unlock()
			return MsgAuthExpired, false
		case KindNetwork:
			return MsgOffline, true
		}
	}
	return err.Error(), false
}

// Pull fetches changes since the watermark and writes them locally.
func (e *Engine) Pull(ctx context.Context) (PullResult, error) {
	since, _, err := e.meta.LastSyncTimestamp(ctx)
	if err != nil {
		return PullResult{Errors: []string{}}, err
	}
	res, network, err := e.pull(ctx, since)
	if network {
		e.setState(StateOffline)
	}
	return res, err
}

func (e *Engine) pull(ctx context.Context, since string) (PullResult, bool, error) {
	res := PullResult{Errors: []string{}}

	var (
		resp *model.PullResponse
		err  error
	)
	if e.transport == nil {
		err = newNetworkError("pull", ErrNoServer)
	} else {
		resp, err = e.transport.Pull(ctx, since)
	}
	if err != nil {
		msg, network := e.describe(err)
		e.logger.Warn("pull failed", slog.String("since", since), slog.String("error", err.Error()))
		res.Errors = append(res.Errors, msg)
		return res, network, nil
	}
	if resp.ServerTimestamp == "" {
		res.Errors = append(res.Errors, "pull response missing serverTimestamp")
		return res, false, nil
	}

	for _, name := range model.TableNames() {
		rows := resp.Rows(name)
		if len(rows) == 0 {
			continue
		}
		if err := e.store.BulkPut(ctx, name, rows); err != nil {
			if errors.Is(err, model.ErrInvalidValue) || errors.Is(err, model.ErrInvalidKey) {
				// Bad server data: keep the watermark so the next pull retries.
				res.Errors = append(res.Errors, err.Error())
				return res, false, nil
			}
			return res, false, fmt.Errorf("pull: write %s: %w", name, err)
		}
		res.Pulled += len(rows)
	}

	if err := e.meta.SetLastSyncTimestamp(ctx, resp.ServerTimestamp); err != nil {
		return res, false, fmt.Errorf("pull: %w", err)
	}
	e.logger.Debug("pull applied",
		slog.String("since", since),
		slog.Int("rows", res.Pulled),
		slog.String("watermark", resp.ServerTimestamp))
	return res, false, nil
}

// Push sends every queued mutation in one request. An empty queue never
// reaches the transport.
func (e *Engine) Push(ctx context.Context) (PushResult, error) {
	res, network, err := e.push(ctx)
	if network {
		e.setState(StateOffline)
	}
	return res, err
}

func (e *Engine) push(ctx context.Context) (PushResult, bool, error) {
	res := PushResult{Errors: []string{}}

	items, err := e.queue.GetAll(ctx)
	if err != nil {
		return res, false, err
	}
	if len(items) == 0 {
		return res, false, nil
	}

	var resp *model.PushResponse
	if e.transport == nil {
		err = newNetworkError("push", ErrNoServer)
	} else {
		resp, err = e.transport.Push(ctx, items)
	}
	if err != nil {
		msg, network := e.describe(err)
		e.logger.Warn("push failed", slog.Int("mutations", len(items)), slog.String("error", err.Error()))
		res.Errors = append(res.Errors, msg)
		return res, network, e.RefreshPendingCount(ctx)
	}

	// The server's counts are aggregate: the whole batch leaves the queue,
	// conflicted mutations included.
	for _, m := range items {
		if err := e.queue.Dequeue(ctx, m.ID); err != nil {
			return res, false, fmt.Errorf("push: %w", err)
		}
	}
	res.Pushed = resp.Applied
	res.Conflicts = resp.Conflicts
	e.logger.Debug("push applied",
		slog.Int("mutations", len(items)),
		slog.Int("applied", resp.Applied),
		slog.Int("conflicts", resp.Conflicts))
	return res, false, e.RefreshPendingCount(ctx)
}

// Sync pushes then pulls. Only one Sync or InitialSync runs at a time; a
// concurrent call returns MsgSyncInProgress without doing any work.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	if !e.begin() {
		return SyncResult{Errors: []string{MsgSyncInProgress}}, nil
	}
	start := time.Now()

	pushRes, pushNetwork, err := e.push(ctx)
	if err != nil {
		e.finish(StateError, err.Error())
		return SyncResult{Errors: []string{err.Error()}}, err
	}

	since, _, err := e.meta.LastSyncTimestamp(ctx)
	if err != nil {
		e.finish(StateError, err.Error())
		return SyncResult{Pushed: pushRes.Pushed, Conflicts: pushRes.Conflicts, Errors: []string{err.Error()}}, err
	}
	pullRes, pullNetwork, err := e.pull(ctx, since)
	if err != nil {
		e.finish(StateError, err.Error())
		return SyncResult{Pushed: pushRes.Pushed, Conflicts: pushRes.Conflicts, Errors: []string{err.Error()}}, err
	}

	res := SyncResult{
		Pulled:    pullRes.Pulled,
		Pushed:    pushRes.Pushed,
		Conflicts: pushRes.Conflicts,
		Errors:    append(pushRes.Errors, pullRes.Errors...),
	}
	switch {
	case pushNetwork || pullNetwork:
		e.finish(StateOffline, res.Errors[0])
	case len(res.Errors) > 0:
		e.finish(StateError, res.Errors[0])
	default:
		e.finish(StateIdle, "")
	}

	e.logger.Info("sync complete",
		slog.Int("pushed", res.Pushed),
		slog.Int("conflicts", res.Conflicts),
		slog.Int("pulled", res.Pulled),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

// InitialSync pulls everything with no watermark and pushes nothing.
func (e *Engine) InitialSync(ctx context.Context) (PullResult, error) {
	if !e.begin() {
		return PullResult{Errors: []string{MsgSyncInProgress}}, nil
	}
	res, network, err := e.pull(ctx, "")
	switch {
	case err != nil:
		e.finish(StateError, err.Error())
		return res, err
	case network:
		e.finish(StateOffline, res.Errors[0])
	case len(res.Errors) > 0:
		e.finish(StateError, res.Errors[0])
	default:
		e.finish(StateIdle, "")
	}
	e.logger.Info("initial sync complete", slog.Int("pulled", res.Pulled), slog.Int("errors", len(res.Errors)))
	return res, nil
}
