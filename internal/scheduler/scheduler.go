// Package scheduler runs the periodic background sync. It owns one goroutine
// that fires on an interval, can be kicked for an immediate pass, and backs
// off exponentially while the backend keeps failing.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// MinInterval is the floor for the periodic interval. Anything shorter burns
// battery and rate limits for no freshness gain, so requests below it clamp.
const MinInterval = 15 * time.Minute

// SyncFunc performs one full sync pass. The scheduler retries on error.
type SyncFunc func(ctx context.Context) error

// Scheduler drives periodic sync passes. One schedule at a time: scheduling
// while a schedule is active keeps the existing one.
type Scheduler struct {
	run            SyncFunc
	logger         *log.Logger
	initialBackoff time.Duration
	maxBackoff     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	kick    chan struct{}
	started bool
}

// New creates a scheduler around the given sync pass. Backoff bounds of zero
// fall back to 30s initial and the periodic interval as the cap.
func New(run SyncFunc, initialBackoff, maxBackoff time.Duration, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.Writer(), "[scheduler] ", log.LstdFlags)
	}
	if initialBackoff <= 0 {
		initialBackoff = 30 * time.Second
	}
	if maxBackoff < initialBackoff {
		maxBackoff = initialBackoff
	}
	return &Scheduler{
		run:            run,
		logger:         logger,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		kick:           make(chan struct{}, 1),
	}
}

// SchedulePeriodicSync starts the periodic loop. Returns the effective
// interval and whether a new schedule was started; if a schedule is already
// active it is kept and false is returned.
func (s *Scheduler) SchedulePeriodicSync(interval time.Duration) (time.Duration, bool) {
	if interval < MinInterval {
		interval = MinInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return interval, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true
	s.wg.Add(1)
	go s.loop(ctx, interval)

	s.logger.Printf("periodic sync scheduled every %s", interval)
	return interval, true
}

// RequestImmediateSync asks the loop to run a pass now. Requests arriving
// while one is already queued coalesce into a single pass.
func (s *Scheduler) RequestImmediateSync() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// CancelAllSyncs stops the schedule and waits for any in-flight pass to
// finish. The scheduler can be rescheduled afterwards.
func (s *Scheduler) CancelAllSyncs() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Printf("periodic sync cancelled")
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	defer s.wg.Done()

	backoff := time.Duration(0) // zero means healthy, use the interval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		err := s.runOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			if backoff == 0 {
				backoff = s.initialBackoff
			} else if backoff < s.maxBackoff {
				backoff *= 2
				if backoff > s.maxBackoff {
					backoff = s.maxBackoff
				}
			}
			s.logger.Printf("WARNING: sync pass failed, retrying in %s: %v", backoff, err)
			timer.Reset(backoff)
		default:
			backoff = 0
			timer.Reset(interval)
		}
	}
}

// runOnce runs one pass, converting a panic into an error so a bad pass
// cannot kill the schedule.
func (s *Scheduler) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync pass panicked: %v", r)
		}
	}()
	return s.run(ctx)
}
