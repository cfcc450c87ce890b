package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"
)

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestIntervalClampedToFloor(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 0, 0, quiet())
	defer s.CancelAllSyncs()

	effective, started := s.SchedulePeriodicSync(time.Second)
	if !started {
		t.Fatal("schedule not started")
	}
	if effective != MinInterval {
		t.Errorf("effective interval = %s, want clamped to %s", effective, MinInterval)
	}
}

func TestExistingScheduleKept(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 0, 0, quiet())
	defer s.CancelAllSyncs()

	if _, started := s.SchedulePeriodicSync(time.Hour); !started {
		t.Fatal("first schedule not started")
	}
	if _, started := s.SchedulePeriodicSync(30 * time.Minute); started {
		t.Error("second schedule replaced the active one")
	}
}

func TestImmediateSyncRunsWithoutWaiting(t *testing.T) {
	var runs atomic.Int32
	s := New(func(context.Context) error {
		runs.Add(1)
		return nil
	}, 0, 0, quiet())
	defer s.CancelAllSyncs()

	s.SchedulePeriodicSync(time.Hour)
	s.RequestImmediateSync()

	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
}

func TestImmediateRequestsCoalesce(t *testing.T) {
	var runs atomic.Int32
	block := make(chan struct{})
	s := New(func(context.Context) error {
		runs.Add(1)
		<-block
		return nil
	}, 0, 0, quiet())

	s.SchedulePeriodicSync(time.Hour)
	s.RequestImmediateSync()
	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })

	// Pile on while the first pass is still running: one queued pass results.
	for i := 0; i < 5; i++ {
		s.RequestImmediateSync()
	}
	close(block)
	waitFor(t, time.Second, func() bool { return runs.Load() == 2 })

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2 (requests must coalesce)", got)
	}
	s.CancelAllSyncs()
}

func TestFailureBacksOffThenRecovers(t *testing.T) {
	var runs atomic.Int32
	fail := atomic.Bool{}
	fail.Store(true)
	s := New(func(context.Context) error {
		runs.Add(1)
		if fail.Load() {
			return errors.New("backend down")
		}
		return nil
	}, 10*time.Millisecond, 40*time.Millisecond, quiet())
	defer s.CancelAllSyncs()

	s.SchedulePeriodicSync(time.Hour)
	s.RequestImmediateSync()

	// Failing passes keep retrying on the backoff timer, no kicks needed.
	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 3 })

	fail.Store(false)
	before := runs.Load()
	waitFor(t, 2*time.Second, func() bool { return runs.Load() > before })
}

func TestPanicDoesNotKillSchedule(t *testing.T) {
	var runs atomic.Int32
	s := New(func(context.Context) error {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		return nil
	}, 10*time.Millisecond, 40*time.Millisecond, quiet())
	defer s.CancelAllSyncs()

	s.SchedulePeriodicSync(time.Hour)
	s.RequestImmediateSync()

	// The panicking pass is treated as a failure and retried.
	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 2 })
}

func TestCancelWaitsForInFlightPass(t *testing.T) {
	release := make(chan struct{})
	done := atomic.Bool{}
	s := New(func(context.Context) error {
		<-release
		done.Store(true)
		return nil
	}, 0, 0, quiet())

	s.SchedulePeriodicSync(time.Hour)
	s.RequestImmediateSync()
	time.Sleep(50 * time.Millisecond) // let the pass start

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	s.CancelAllSyncs()

	if !done.Load() {
		t.Error("CancelAllSyncs returned before the in-flight pass finished")
	}
}

func TestRescheduleAfterCancel(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 0, 0, quiet())
	s.SchedulePeriodicSync(time.Hour)
	s.CancelAllSyncs()

	if _, started := s.SchedulePeriodicSync(time.Hour); !started {
		t.Error("scheduler cannot be reused after cancel")
	}
	s.CancelAllSyncs()
}
