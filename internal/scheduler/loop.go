package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrLoopStopped is returned when work is handed to a loop that has exited.
var ErrLoopStopped = errors.New("scheduler: loop stopped")

// taskBuffer bounds the queue of posted tasks.
const taskBuffer = 256

// ──────────────────────────────────────────────────────────────────────────────
// Loop
// ──────────────────────────────────────────────────────────────────────────────

// Loop is a single goroutine that serializes the tick driver, tasks posted
// from other goroutines and keyed timer callbacks.  Everything it runs
// executes on the loop goroutine, one at a time, so the state those functions
// touch needs no further locking.
type Loop struct {
	interval time.Duration
	onTick   func(now time.Time)
	tasks    chan func()
	done     chan struct{}
	stop     sync.Once
	logger   *slog.Logger

	mu     sync.Mutex
	gen    uint64
	timers map[string]keyedTimer
}

type keyedTimer struct {
	gen   uint64
	timer *time.Timer
}

// NewLoop creates a loop that calls onTick every interval.  A zero interval or
// a nil onTick disables the tick driver; posted tasks and timers still run.
func NewLoop(interval time.Duration, onTick func(time.Time), logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		interval: interval,
		onTick:   onTick,
		tasks:    make(chan func(), taskBuffer),
		done:     make(chan struct{}),
		logger:   logger,
		timers:   make(map[string]keyedTimer),
	}
}

// Run drives the loop until ctx is cancelled.  Pending timers are cancelled on
// exit and later Post calls report false.
func (l *Loop) Run(ctx context.Context) {
	var tick <-chan time.Time
	if l.interval > 0 && l.onTick != nil {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler loop: shutting down")
			return
		case now := <-tick:
			l.safely("tick", func() { l.onTick(now) })
		case fn := <-l.tasks:
			l.safely("task", fn)
		}
	}
}

func (l *Loop) shutdown() {
	l.stop.Do(func() {
		l.CancelAll()
		close(l.done)
	})
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// safely runs fn and turns a panic into a log line so one bad tick does not
// stop the simulation.
func (l *Loop) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("PANIC recovered in scheduler loop", "in", what, "panic", r)
		}
	}()
	fn()
}

// ──────────────────────────────────────────────────────────────────────────────
// Posted tasks
// ──────────────────────────────────────────────────────────────────────────────

// Post queues fn to run on the loop goroutine.  It returns false once the loop
// has stopped.  Post must not be called from the loop goroutine while the
// queue is full.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop goroutine and waits for its result.  A panic inside
// fn is returned as an error.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	ok := l.Post(func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("scheduler.Do: panic: %v", r)
			}
		}()
		result <- fn()
	})
	if !ok {
		return ErrLoopStopped
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Keyed timers
// ──────────────────────────────────────────────────────────────────────────────

// After arms a one-shot timer under key, replacing any pending timer with the
// same key.  fn runs on the loop goroutine.  A timer that is cancelled or
// replaced after firing but before its callback ran is discarded.
func (l *Loop) After(key string, d time.Duration, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.timers[key]; ok {
		prev.timer.Stop()
	}
	l.gen++
	gen := l.gen
	t := time.AfterFunc(d, func() {
		l.Post(func() { l.fire(key, gen, fn) })
	})
	l.timers[key] = keyedTimer{gen: gen, timer: t}
}

func (l *Loop) fire(key string, gen uint64, fn func()) {
	l.mu.Lock()
	cur, ok := l.timers[key]
	if !ok || cur.gen != gen {
		l.mu.Unlock()
		return
	}
	delete(l.timers, key)
	l.mu.Unlock()

	fn()
}

// Cancel removes the pending timer under key, if any.
func (l *Loop) Cancel(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[key]; ok {
		t.timer.Stop()
		delete(l.timers, key)
	}
}

// CancelAll removes every pending timer.
func (l *Loop) CancelAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, t := range l.timers {
		t.timer.Stop()
		delete(l.timers, key)
	}
}

// Pending reports whether a timer is armed under key.
func (l *Loop) Pending(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.timers[key]
	return ok
}
