package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunPruner deletes persisted run reports older than a cutoff.
// Satisfied by store.LibSQLStore.
type RunPruner interface {
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Config controls the retention job.
type Config struct {
	// Schedule is a standard five-field cron expression or a descriptor such
	// as "@daily".
	Schedule string
	// Retention is how long production run reports are kept.
	Retention time.Duration
	Logger    *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Scheduler prunes the run history on a cron schedule.
type Scheduler struct {
	pruner    RunPruner
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	running sync.Mutex // held while a prune is executing
}

// NewScheduler parses the schedule and returns a stopped scheduler.
func NewScheduler(p RunPruner, cfg Config) (*Scheduler, error) {
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", cfg.Retention)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cfg.Schedule, err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		pruner:    p,
		schedule:  schedule,
		retention: cfg.Retention,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// Next returns the first prune time after from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Start launches the background loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return fmt.Errorf("scheduler already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(loopCtx, s.done)
	s.logger.Info("run retention scheduler started", slog.Duration("retention", s.retention))
	return nil
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		now := s.now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, err := s.PruneNow(ctx); err != nil {
				s.logger.Error("run retention failed", slog.String("error", err.Error()))
			}
		}
	}
}

// PruneNow deletes run reports older than the retention window. A prune that
// is already executing makes it return (0, nil).
func (s *Scheduler) PruneNow(ctx context.Context) (int64, error) {
	if !s.running.TryLock() {
		return 0, nil
	}
	defer s.running.Unlock()

	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.pruner.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		s.logger.Info("pruned run reports", slog.Int64("count", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("run retention scheduler stopped")
	return nil
}
