// Package scheduler drives the simulation in real time.  It owns two
// background goroutines:
//  1. the Loop – ticks the match at the configured rate and runs every state
//     machine timer and control request, one at a time.
//  2. snapshotBroadcastLoop – pushes the latest snapshot to WS clients at the
//     broadcast interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// SnapshotHub interface
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotHub is what the Scheduler needs from the WebSocket hub.  Declared
// here so the scheduler does not import the ws implementation.
type SnapshotHub interface {
	BroadcastSnapshot(snap domain.Snapshot)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the match state machine on its Loop.  Build it first, hand
// Timers() to service.NewMatchService, then SetMatch and Start(ctx).  Cancel
// the context to shut it down.
type Scheduler struct {
	loop   *Loop
	match  *service.MatchService
	hub    SnapshotHub
	cfg    *config.Config
	logger *slog.Logger
}

// NewScheduler creates a Scheduler whose loop ticks at cfg.Sim.TickRate.
func NewScheduler(cfg *config.Config, logger *slog.Logger) *Scheduler {
	s := &Scheduler{cfg: cfg, logger: logger}
	s.loop = NewLoop(cfg.TickInterval(), s.tick, logger)
	return s
}

// Timers returns the loop the state machine arms its timers on.
func (s *Scheduler) Timers() *Loop { return s.loop }

// SetMatch injects the state machine post-construction.
func (s *Scheduler) SetMatch(m *service.MatchService) { s.match = m }

// SetHub injects the WS Hub dependency post-construction.
func (s *Scheduler) SetHub(h SnapshotHub) { s.hub = h }

// Start launches the background goroutines and, when Sim.AutoStart is set,
// the first series.  It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop.Run(ctx)
	go s.snapshotBroadcastLoop(ctx)

	if s.cfg.Sim.AutoStart && s.match != nil {
		s.loop.Post(func() {
			if err := s.match.Start(); err != nil {
				s.logger.Error("scheduler: first match", "err", err)
			}
		})
	}
	s.logger.Info("scheduler started",
		"tick_rate", s.cfg.Sim.TickRate,
		"broadcast_interval", s.cfg.Sim.BroadcastInterval,
		"auto_start", s.cfg.Sim.AutoStart,
	)
}

// Done is closed once the loop has stopped.
func (s *Scheduler) Done() <-chan struct{} { return s.loop.Done() }

func (s *Scheduler) tick(time.Time) {
	if s.match != nil {
		s.match.Tick()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Control: every call is marshalled onto the loop goroutine
// ──────────────────────────────────────────────────────────────────────────────

// Restart tears the current series down and starts total matches.
func (s *Scheduler) Restart(ctx context.Context, total int) error {
	return s.loop.Do(ctx, func() error { return s.match.Restart(total) })
}

// Stop abandons the current match.
func (s *Scheduler) Stop(ctx context.Context) error {
	return s.loop.Do(ctx, func() error {
		s.match.Stop()
		return nil
	})
}

// SetSpeed applies a speed multiplier and returns the clamped value.
func (s *Scheduler) SetSpeed(ctx context.Context, m float64) (float64, error) {
	var applied float64
	err := s.loop.Do(ctx, func() error {
		var err error
		applied, err = s.match.SetSpeed(m)
		return err
	})
	return applied, err
}

// Snapshot returns the last published state.  Safe from any goroutine.
func (s *Scheduler) Snapshot() domain.Snapshot {
	if s.match == nil {
		return domain.Snapshot{}
	}
	return s.match.Snapshot()
}

// ──────────────────────────────────────────────────────────────────────────────
// snapshotBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

// snapshotBroadcastLoop pushes the latest snapshot every broadcast interval.
// A snapshot that has not changed since the last push is skipped.
func (s *Scheduler) snapshotBroadcastLoop(ctx context.Context) {
	defer s.recoverAndLog("snapshotBroadcastLoop")

	interval := s.cfg.Sim.BroadcastInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("snapshotBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			last = s.broadcastSnapshot(last)
		}
	}
}

// broadcastSnapshot is the inner body of snapshotBroadcastLoop, extracted so
// the deferred recover in the loop catches panics.
func (s *Scheduler) broadcastSnapshot(last time.Time) time.Time {
	if s.hub == nil {
		return last
	}
	snap := s.Snapshot()
	if snap.At.IsZero() || snap.At.Equal(last) {
		return last
	}
	s.hub.BroadcastSnapshot(snap)
	return snap.At
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics
// and log them.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
