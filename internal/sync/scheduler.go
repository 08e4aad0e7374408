package sync

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"
)

// Runner is the part of Engine the scheduler drives.
type Runner interface {
	Sync(ctx context.Context) (SyncResult, error)
	State() State
}

// Scheduler runs background syncs: a debounced sync after local writes and a
// periodic sync on a fixed interval. Both stop on Stop.
type Scheduler struct {
	runner   Runner
	debounce time.Duration
	interval time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup

	mu      gosync.Mutex
	timer   *time.Timer
	started bool
	stopped bool
}

// NewScheduler creates a stopped scheduler. A zero interval disables the
// periodic sync; a zero debounce syncs immediately on Trigger.
func NewScheduler(runner Runner, debounce, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		debounce: debounce,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the periodic sync loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped || s.interval <= 0 {
		return
	}
	s.started = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if s.runner.State() == StateSyncing {
					continue
				}
				s.run("periodic")
			}
		}
	}()
}

// Trigger schedules a sync after the debounce delay, replacing any sync
// already scheduled by an earlier Trigger.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		s.run("debounced")
	})
}

func (s *Scheduler) run(reason string) {
	res, err := s.runner.Sync(s.ctx)
	if err != nil {
		s.logger.Error("background sync failed", slog.String("trigger", reason), slog.String("error", err.Error()))
		return
	}
	if len(res.Errors) > 0 {
		s.logger.Debug("background sync finished with errors",
			slog.String("trigger", reason),
			slog.String("first_error", res.Errors[0]))
	}
}

// Stop cancels pending work and waits for a running sync to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
