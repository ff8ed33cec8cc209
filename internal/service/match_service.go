package service

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/evetabi/matchsim/internal/config"
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/formation"
	"github.com/evetabi/matchsim/internal/physics"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into MatchService
// ──────────────────────────────────────────────────────────────────────────────

// Timers is the keyed one-shot timer facility the state machine runs on.
// Callbacks must be delivered on the same goroutine that calls Tick.
// Implemented by scheduler.Loop.
type Timers interface {
	After(key string, d time.Duration, fn func())
	Cancel(key string)
	CancelAll()
}

// Rand is the randomness the simulation draws from.  *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// TickObserver receives the wall-clock cost of each simulated tick.
// Implemented by metrics.Collector.
type TickObserver interface {
	ObserveTick(d time.Duration)
}

// Keys of the timers the state machine arms.
const (
	timerBetting = "betting"
	timerGoal    = "goal"
	timerNext    = "next"
)

// Speed multiplier bounds.
const (
	MinSpeed = 0.25
	MaxSpeed = 10.0
)

// BaseStep is the clock advance of one tick at speed 1, in match minutes.
const BaseStep = 16.67 / 1000

// kickoffBiasWeight scales the strength difference into ball velocity.
const kickoffBiasWeight = 0.5

// MatchOptions tunes the state machine.
type MatchOptions struct {
	HalfMinutes      float64
	BaseStep         float64
	Speed            float64
	TotalMatches     int
	PreMatchWindow   int // seconds
	HalftimeWindow   int // seconds
	CountdownWarning int // seconds
	GoalPauseMin     time.Duration
	GoalPauseMax     time.Duration
	NextMatchDelay   time.Duration
	SingleModeDelay  time.Duration
}

// MatchOptionsFromConfig maps the Sim config section onto MatchOptions.
func MatchOptionsFromConfig(cfg *config.Config) MatchOptions {
	return MatchOptions{
		HalfMinutes:      cfg.Sim.HalfMinutes,
		BaseStep:         BaseStep,
		Speed:            cfg.Sim.Speed,
		TotalMatches:     cfg.Sim.TotalMatches,
		PreMatchWindow:   cfg.Sim.PreMatchWindow,
		HalftimeWindow:   cfg.Sim.HalftimeWindow,
		CountdownWarning: cfg.Sim.CountdownWarning,
		GoalPauseMin:     cfg.Sim.GoalPauseMin,
		GoalPauseMax:     cfg.Sim.GoalPauseMax,
		NextMatchDelay:   cfg.Sim.NextMatchDelay,
		SingleModeDelay:  cfg.Sim.SingleModeDelay,
	}
}

// injuryRange is the inclusive range of injury minutes per half.
var injuryRange = [2][2]int{{1, 3}, {3, 6}}

// ──────────────────────────────────────────────────────────────────────────────
// MatchService
// ──────────────────────────────────────────────────────────────────────────────

// MatchService is the match lifecycle state machine.  Every method except
// Snapshot must be called on the timer goroutine (see Timers); Snapshot is a
// lock-free read of the last published state and is safe from anywhere.
type MatchService struct {
	catalog *formation.Catalog
	world   *physics.World
	bus     *events.Bus
	timers  Timers
	rng     Rand
	opts    MatchOptions
	logger  *slog.Logger
	now     func() time.Time

	observer TickObserver // injected after metrics are built

	match         *domain.Match
	home, away    formation.Formation
	number        int
	speed         float64
	total         int
	transitioning bool
	bettingOpen   bool
	bettingLeft   int
	message       string

	snap atomic.Pointer[domain.Snapshot]
}

// NewMatchService creates an idle state machine.  Call Start to begin a series.
func NewMatchService(
	catalog *formation.Catalog,
	bus *events.Bus,
	timers Timers,
	rng Rand,
	opts MatchOptions,
	logger *slog.Logger,
) *MatchService {
	if opts.BaseStep <= 0 {
		opts.BaseStep = BaseStep
	}
	if opts.HalfMinutes <= 0 {
		opts.HalfMinutes = 45
	}
	if opts.TotalMatches < 1 {
		opts.TotalMatches = 1
	}
	s := &MatchService{
		catalog: catalog,
		world:   physics.NewWorld(domain.DefaultField(), physics.DefaultConfig()),
		bus:     bus,
		timers:  timers,
		rng:     rng,
		opts:    opts,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		speed:   clampSpeed(opts.Speed),
		total:   opts.TotalMatches,
	}
	s.publishSnapshot()
	return s
}

// SetTickObserver injects the metrics dependency post-construction.
func (s *MatchService) SetTickObserver(o TickObserver) { s.observer = o }

func clampSpeed(m float64) float64 {
	if math.IsNaN(m) || m <= 0 {
		return 1
	}
	return math.Max(MinSpeed, math.Min(MaxSpeed, m))
}

// ──────────────────────────────────────────────────────────────────────────────
// Control
// ──────────────────────────────────────────────────────────────────────────────

// Start begins a series at match 1.
func (s *MatchService) Start() error {
	if s.transitioning {
		return domain.ErrTransitionInProgress
	}
	s.number = 0
	s.message = ""
	return s.startNextMatch()
}

// Restart tears the current series down and starts a new one of total matches.
func (s *MatchService) Restart(total int) error {
	if err := s.SetTotalMatches(total); err != nil {
		return err
	}
	s.abandon()
	return s.Start()
}

// Stop abandons the current match and leaves the simulation idle.
func (s *MatchService) Stop() {
	s.abandon()
	if s.match != nil {
		s.match.Phase = domain.PhaseIdle
	}
	s.message = "Simulation stopped"
	s.logger.Info("simulation stopped")
	s.publishSnapshot()
}

// abandon halts play and closes an open window without a kickoff.
func (s *MatchService) abandon() {
	s.Teardown()
	if s.match == nil {
		return
	}
	s.match.Running = false
	s.match.Started = false
	if s.bettingOpen {
		s.bettingOpen = false
		s.bettingLeft = 0
		s.bus.Publish(events.BettingClose{Header: s.header(), Half: s.windowHalf()})
	}
}

// Teardown cancels every keyed timer.
func (s *MatchService) Teardown() {
	s.timers.CancelAll()
	s.transitioning = false
}

// SetSpeed clamps m to [MinSpeed, MaxSpeed] and returns the applied value.
func (s *MatchService) SetSpeed(m float64) (float64, error) {
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return s.speed, fmt.Errorf("match_service.SetSpeed: %v: %w", m, domain.ErrInvalidControl)
	}
	s.speed = clampSpeed(m)
	s.publishSnapshot()
	return s.speed, nil
}

// SetTotalMatches sets the length of the series.  It takes effect at the next
// end of match.
func (s *MatchService) SetTotalMatches(n int) error {
	if n < 1 {
		return fmt.Errorf("match_service.SetTotalMatches: %d: %w", n, domain.ErrInvalidControl)
	}
	s.total = n
	return nil
}

// Snapshot returns the last published state.
func (s *MatchService) Snapshot() domain.Snapshot {
	if p := s.snap.Load(); p != nil {
		return *p
	}
	return domain.Snapshot{}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tick
// ──────────────────────────────────────────────────────────────────────────────

// Tick advances a running match by one step.
func (s *MatchService) Tick() {
	m := s.match
	if m == nil || !m.Running {
		return
	}
	start := time.Now()

	m.Clock += s.opts.BaseStep * s.speed
	if !s.checkHalfEnd() {
		if team, scored := physics.Step(s.world, s.speed, s.rng); scored {
			s.handleGoal(team)
		}
	}
	s.publishSnapshot()

	if s.observer != nil {
		s.observer.ObserveTick(time.Since(start))
	}
}

// checkHalfEnd applies the injury-time rules and reports whether play
// stopped.
func (s *MatchService) checkHalfEnd() bool {
	m := s.match
	boundary := m.Boundary(s.opts.HalfMinutes)
	if m.Clock < boundary {
		return false
	}
	if !m.InjuryAllocated() {
		r := injuryRange[m.Half-1]
		m.AllocateInjury(r[0] + s.rng.IntN(r[1]-r[0]+1))
		return false
	}
	if m.Clock < boundary+float64(m.InjuryMinutes()) {
		return false
	}
	if m.Half == 1 {
		s.enterHalftime()
	} else {
		s.finishMatch()
	}
	return true
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle transitions
// ──────────────────────────────────────────────────────────────────────────────

// startNextMatch lays out a fresh match and opens its pre-match window.
func (s *MatchService) startNextMatch() error {
	if s.transitioning {
		return domain.ErrTransitionInProgress
	}
	s.transitioning = true
	defer func() { s.transitioning = false }()

	s.timers.Cancel(timerNext)
	s.number++

	s.home = s.pickFormation(domain.TeamHome)
	s.away = s.pickFormation(domain.TeamAway)
	s.match = domain.NewMatch(s.number, domain.Formations{Home: s.home.Name, Away: s.away.Name}, s.now())
	s.message = ""
	s.layout()

	s.logger.Info("match started",
		"match_id", s.match.ID,
		"number", s.number,
		"total", s.total,
		"red", s.home.Name,
		"blue", s.away.Name,
	)
	s.bus.Publish(events.MatchStart{
		Header:       s.header(),
		Formations:   s.match.Formations,
		TotalMatches: s.total,
	})
	s.openBetting(s.opts.PreMatchWindow)
	return nil
}

func (s *MatchService) pickFormation(team domain.Team) formation.Formation {
	name := s.catalog.Random(s.rng)
	f, fallback := s.catalog.Resolve(name)
	if fallback {
		s.logger.Warn("unknown formation, using default", "team", team, "name", name, "default", f.Name)
	}
	return f
}

func (s *MatchService) layout() {
	f := s.world.Field
	s.world.Layout(
		formation.Expand(f, domain.TeamHome, s.home),
		formation.Expand(f, domain.TeamAway, s.away),
	)
}

// kickoffBias favours the side whose attack outweighs the opposing defense.
// Positive values push the ball toward the away goal.
func (s *MatchService) kickoffBias() float64 {
	homeEdge := formation.AttackStrength(s.home) / formation.DefenseStrength(s.away)
	awayEdge := formation.AttackStrength(s.away) / formation.DefenseStrength(s.home)
	return (homeEdge - awayEdge) * kickoffBiasWeight
}

// putInPlay resets the entities to formation and sets them moving.
func (s *MatchService) putInPlay() {
	s.layout()
	s.world.Kickoff(s.rng, s.kickoffBias())
	s.match.Phase = domain.PhasePlaying
	s.match.Running = true
	s.match.Started = true
}

func (s *MatchService) kickoff() {
	s.putInPlay()
	s.logger.Info("kickoff", "match_id", s.match.ID, "half", s.match.Half)
	s.bus.Publish(events.Kickoff{Header: s.header(), Half: s.match.Half})
}

// ── Betting window ──────────────────────────────────────────────────────────

// windowHalf is the half the open window takes bets for.
func (s *MatchService) windowHalf() int {
	if s.match.Phase == domain.PhaseHalftime {
		return 2
	}
	return 1
}

func (s *MatchService) openBetting(seconds int) {
	s.bettingOpen = true
	s.bettingLeft = seconds
	s.bus.Publish(events.BettingStart{
		Header:  s.header(),
		Half:    s.windowHalf(),
		Seconds: seconds,
		Score:   s.match.Score,
	})
	s.timers.After(timerBetting, time.Second, s.countdown)
	s.publishSnapshot()
}

func (s *MatchService) countdown() {
	if !s.bettingOpen {
		return
	}
	s.bettingLeft--
	if s.bettingLeft <= 0 {
		s.closeBetting()
		return
	}
	s.bus.Publish(events.Countdown{
		Header:    s.header(),
		Remaining: s.bettingLeft,
		Warning:   s.bettingLeft <= s.opts.CountdownWarning,
	})
	s.timers.After(timerBetting, time.Second, s.countdown)
	s.publishSnapshot()
}

// closeBetting is the only path that resumes play after a window.
func (s *MatchService) closeBetting() {
	if !s.bettingOpen {
		return
	}
	s.timers.Cancel(timerBetting)
	half := s.windowHalf()
	s.bettingOpen = false
	s.bettingLeft = 0
	s.bus.Publish(events.BettingClose{Header: s.header(), Half: half})

	switch s.match.Phase {
	case domain.PhaseBetting:
		s.kickoff()
	case domain.PhaseHalftime:
		s.match.Half = 2
		s.match.Clock = s.opts.HalfMinutes
		s.kickoff()
	}
	s.publishSnapshot()
}

// ── Goals ───────────────────────────────────────────────────────────────────

func (s *MatchService) handleGoal(team domain.Team) {
	m := s.match
	g := m.RecordGoal(team)
	m.Running = false
	m.Phase = domain.PhaseGoalPause

	s.logger.Info("goal",
		"match_id", m.ID,
		"team", team,
		"minute", g.Minute,
		"half", g.Half,
		"score", fmt.Sprintf("%d-%d", m.Score.Home, m.Score.Away),
	)
	s.bus.Publish(events.Goal{Header: s.header(), Goal: g, Score: m.Score})
	s.publishSnapshot()

	s.timers.After(timerGoal, s.goalPause(), s.resumeAfterGoal)
}

func (s *MatchService) goalPause() time.Duration {
	lo, hi := s.opts.GoalPauseMin, s.opts.GoalPauseMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Float64()*float64(hi-lo))
}

func (s *MatchService) resumeAfterGoal() {
	if s.match == nil || s.match.Phase != domain.PhaseGoalPause {
		return
	}
	s.putInPlay()
	s.publishSnapshot()
}

// ── Half end ────────────────────────────────────────────────────────────────

func (s *MatchService) enterHalftime() {
	m := s.match
	m.Running = false
	m.Phase = domain.PhaseHalftime

	s.logger.Info("halftime", "match_id", m.ID, "score", fmt.Sprintf("%d-%d", m.Score.Home, m.Score.Away))
	s.bus.Publish(events.Halftime{Header: s.header(), Score: m.Score})
	s.openBetting(s.opts.HalftimeWindow)
}

func (s *MatchService) finishMatch() {
	m := s.match
	m.Running = false
	m.Started = false
	m.Phase = domain.PhaseFulltime
	s.timers.Cancel(timerGoal)
	s.timers.Cancel(timerBetting)
	s.bettingOpen = false

	s.bus.Publish(events.Fulltime{Header: s.header(), Score: m.Score})

	result := m.Result()
	record := m.Record(s.now())
	s.logger.Info("fulltime",
		"match_id", m.ID,
		"number", m.Number,
		"score", fmt.Sprintf("%d-%d", m.Score.Home, m.Score.Away),
		"winner", result.Winner,
	)
	s.bus.Publish(events.MatchEnd{Header: s.header(), Result: result, Record: record})

	switch {
	case m.Number < s.total:
		m.Phase = domain.PhaseNextMatch
		s.message = fmt.Sprintf("Match %d of %d complete", m.Number, s.total)
		s.timers.After(timerNext, s.opts.NextMatchDelay, s.advance)
	case s.total == 1:
		m.Phase = domain.PhaseNextMatch
		s.message = "Next match starting"
		s.timers.After(timerNext, s.opts.SingleModeDelay, s.advance)
	default:
		s.message = fmt.Sprintf("Series of %d matches complete", s.total)
		s.logger.Info("series complete", "matches", s.total)
	}
}

func (s *MatchService) advance() {
	if err := s.startNextMatch(); err != nil {
		s.logger.Warn("next match not started", "err", err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot
// ──────────────────────────────────────────────────────────────────────────────

func (s *MatchService) header() events.Header {
	return events.Header{MatchID: s.match.ID, MatchNumber: s.match.Number, At: s.now()}
}

func (s *MatchService) publishSnapshot() {
	snap := domain.Snapshot{
		Entities:       s.world.Entities(),
		Field:          s.world.Field,
		BettingOpen:    s.bettingOpen,
		BettingSeconds: s.bettingLeft,
		Speed:          s.speed,
		TotalMatches:   s.total,
		Message:        s.message,
		At:             s.now(),
	}
	if s.match != nil {
		snap.Match = s.match.Clone()
		snap.ClockLabel = s.match.ClockLabel(s.opts.HalfMinutes)
	} else {
		snap.Match.Phase = domain.PhaseIdle
	}
	s.snap.Store(&snap)
}
