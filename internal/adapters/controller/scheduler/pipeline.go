package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultInterval     = 24 * time.Hour
	DefaultMisfireGrace = 36 * time.Hour
)

// Job is one pipeline cycle.
type Job func(ctx context.Context) error

type historyStorage interface {
	LastRun(ctx context.Context) (*entity.PipelineRun, error)
}

// Lock is shared by every process running the pipeline.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Options struct {
	Interval     time.Duration
	MisfireGrace time.Duration
}

// PipelineScheduler fires Job on a fixed interval. At most one run is in
// flight at a time; a trigger that overlaps a running job is dropped.
type PipelineScheduler struct {
	job     Job
	history historyStorage
	lock    Lock
	clock   clockwork.Clock
	logger  *types.Logger

	interval time.Duration
	grace    time.Duration

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPipelineScheduler builds a scheduler. history and lock may be nil.
func NewPipelineScheduler(
	logger *types.Logger,
	clock clockwork.Clock,
	history historyStorage,
	lock Lock,
	job Job,
	opts Options,
) *PipelineScheduler {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MisfireGrace < 0 {
		opts.MisfireGrace = 0
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PipelineScheduler{
		job:      job,
		history:  history,
		lock:     lock,
		clock:    clock,
		logger:   logger,
		interval: opts.Interval,
		grace:    opts.MisfireGrace,
	}
}

// Start runs the schedule loop until ctx is cancelled or Stop is called.
func (s *PipelineScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	first := s.FirstDelay(ctx)
	s.logger.Infof("Starting pipeline scheduler (interval=%s, first run in %s)", s.interval, first)

	go func() {
		defer close(done)

		next := s.clock.Now().Add(first)
		timer := s.clock.NewTimer(first)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.Chan():
				if err := s.Trigger(ctx); err != nil && !errors.Is(err, errorz.ErrRunInProgress) && ctx.Err() == nil {
					s.logger.Errorf("scheduled pipeline run failed: %v", err)
				}

				// Ticks missed while the job ran are skipped, not replayed.
				now := s.clock.Now()
				next = next.Add(s.interval)
				for !next.After(now) {
					next = next.Add(s.interval)
				}
				timer.Reset(next.Sub(now))
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight run to return.
func (s *PipelineScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Running reports whether a run is in flight in this process.
func (s *PipelineScheduler) Running() bool {
	return s.running.Load()
}

// Trigger runs the job now unless a run is already in flight here or in
// another process holding the lock, in which case errorz.ErrRunInProgress is
// returned.
func (s *PipelineScheduler) Trigger(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("pipeline run already in progress, skipping trigger")
		return errorz.ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.lock != nil {
		ok, err := s.lock.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire pipeline lock: %w", err)
		}
		if !ok {
			s.logger.Warn("pipeline lock held elsewhere, skipping trigger")
			return errorz.ErrRunInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warnf("failed to release pipeline lock: %v", err)
			}
		}()
	}

	return s.job(ctx)
}

// FirstDelay decides when the first run fires from the last recorded run.
//
// No history runs immediately. A run that is overdue by at most the misfire
// grace also runs immediately; beyond the grace the missed tick is dropped
// and the schedule resumes at the next interval boundary.
func (s *PipelineScheduler) FirstDelay(ctx context.Context) time.Duration {
	if s.history == nil {
		return 0
	}
	last, err := s.history.LastRun(ctx)
	if err != nil {
		s.logger.Warnf("failed to read pipeline history, running now: %v", err)
		return 0
	}
	if last == nil {
		return 0
	}

	now := s.clock.Now()
	due := last.StartedAt.Add(s.interval)
	if !due.Before(now) {
		return due.Sub(now)
	}

	overdue := now.Sub(due)
	if overdue <= s.grace {
		s.logger.Infof("pipeline run overdue by %s, running now", overdue.Round(time.Second))
		return 0
	}

	s.logger.Warnf("pipeline run overdue by %s (grace %s), skipping missed run", overdue.Round(time.Second), s.grace)
	return s.interval - overdue%s.interval
}
