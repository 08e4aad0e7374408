package chronolog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/storage"
	"github.com/hyperengineering/chronolog/internal/sync"
)

// Client is the offline-first data service. Reads prefer the server's
// views and fall back to the local store; writes land locally first and
// reach the server through the sync queue.
type Client struct {
	config    Config
	store     storage.Adapter
	backend   storage.Backend
	engine    *sync.Engine
	transport *sync.HTTPTransport
	scheduler *sync.Scheduler
	logger    *slog.Logger
	logCloser io.Closer

	mu     gosync.Mutex
	closed bool
}

// New opens the local store for cfg. No network traffic happens until
// Initialize or an explicit sync.
func New(cfg Config) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, _ := storage.ParseBackend(cfg.Backend)

	logger, logCloser := NewLogger(cfg.Debug, cfg.DebugLogPath)

	store, backend, err := storage.Open(context.Background(), storage.Options{
		Backend: backend,
		Dir:     cfg.LocalPath,
	})
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("client: %w", err)
	}

	c := &Client{
		config:    cfg,
		store:     store,
		backend:   backend,
		logger:    logger,
		logCloser: logCloser,
	}

	var transport sync.Transport
	if !cfg.IsOffline() {
		c.transport = sync.NewHTTPTransport(cfg.ServerURL, cfg.Token).WithLogger(logger)
		transport = c.transport
	}
	c.engine = sync.NewEngine(store, transport, logger)
	c.scheduler = sync.NewScheduler(c.engine, cfg.DebounceDelay, cfg.SyncInterval, logger)

	logger.Debug("client opened",
		slog.String("profile", cfg.Profile),
		slog.String("path", cfg.LocalPath),
		slog.String("backend", string(backend)),
		slog.Bool("offline", cfg.IsOffline()))
	return c, nil
}

// Initialize brings the local store up to date: a full pull on first use,
// otherwise a regular sync. Background syncing starts afterwards when
// AutoSync is set. Sync failures are reported in the result, not as errors.
func (c *Client) Initialize(ctx context.Context) (SyncResult, error) {
	if err := c.check(); err != nil {
		return SyncResult{}, err
	}
	if err := c.engine.RefreshPendingCount(ctx); err != nil {
		return SyncResult{}, err
	}

	var (
		res SyncResult
		err error
	)
	if !c.config.IsOffline() {
		_, ok, merr := c.engine.Metadata().LastSyncTimestamp(ctx)
		if merr != nil {
			return SyncResult{}, merr
		}
		if ok {
			res, err = c.engine.Sync(ctx)
		} else {
			var pulled PullResult
			pulled, err = c.engine.InitialSync(ctx)
			res = SyncResult{Pulled: pulled.Pulled, Errors: pulled.Errors}
		}
		if err != nil {
			return res, err
		}
	}

	if c.config.AutoSync && !c.config.IsOffline() {
		c.scheduler.Start()
	}
	return res, nil
}

// Sync pushes queued changes then pulls server changes.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	if err := c.online(); err != nil {
		return SyncResult{}, err
	}
	return c.engine.Sync(ctx)
}

// SyncPush pushes queued changes only.
func (c *Client) SyncPush(ctx context.Context) (PushResult, error) {
	if err := c.online(); err != nil {
		return PushResult{}, err
	}
	return c.engine.Push(ctx)
}

// SyncPull pulls server changes since the last sync only.
func (c *Client) SyncPull(ctx context.Context) (PullResult, error) {
	if err := c.online(); err != nil {
		return PullResult{}, err
	}
	return c.engine.Pull(ctx)
}

// Status returns the current sync state.
func (c *Client) Status() Status {
	return c.engine.Status()
}

// RefreshStatus reloads the pending count from the local queue without
// contacting the server.
func (c *Client) RefreshStatus(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}
	return c.engine.RefreshPendingCount(ctx)
}

// Subscribe delivers status changes until cancel is called.
func (c *Client) Subscribe() (<-chan Status, func()) {
	return c.engine.Subscribe()
}

// SetToken replaces the bearer token, for example after the user logs in
// again, and clears the auth-expired flag.
func (c *Client) SetToken(token string) {
	if c.transport == nil {
		return
	}
	c.transport.SetToken(token)
	c.engine.ResetAuth()
}

// Backend reports the local storage engine in use.
func (c *Client) Backend() string { return string(c.backend) }

// Close stops background syncing and closes the local store. Queued
// changes stay in the store for the next session.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.scheduler.Stop()
	err := c.store.Close()
	_ = c.logCloser.Close()
	return err
}

func (c *Client) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrStoreClosed
	}
	return nil
}

func (c *Client) online() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.config.IsOffline() {
		return ErrOffline
	}
	return nil
}

func (c *Client) now() time.Time { return c.config.Clock() }

// serverSynced reports whether server views can be trusted: a server is
// configured, the last sync did not fail and nothing is waiting to be pushed.
func (c *Client) serverSynced() bool {
	if c.transport == nil {
		return false
	}
	st := c.engine.Status()
	return st.State != sync.StateOffline && st.State != sync.StateError && st.PendingCount == 0
}

// enqueue records a local write for the server and schedules a sync.
func (c *Client) enqueue(ctx context.Context, table, id string, op model.Operation, data model.Row) error {
	_, err := c.engine.Queue().Enqueue(ctx, model.PendingMutation{
		Table:     table,
		EntityID:  id,
		Operation: op,
		Data:      data,
		Timestamp: model.FormatTime(c.now()),
	})
	if err != nil {
		return err
	}
	if err := c.engine.RefreshPendingCount(ctx); err != nil {
		return err
	}
	if c.config.AutoSync && !c.config.IsOffline() {
		c.scheduler.Trigger()
	}
	return nil
}
