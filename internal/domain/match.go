package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Phase is the lifecycle state of a match.
type Phase string

const (
	PhaseIdle      Phase = "idle"       // no series running
	PhaseBetting   Phase = "betting"    // pre-match window open
	PhasePlaying   Phase = "playing"    // clock running
	PhaseGoalPause Phase = "goal_pause" // transient pause after a goal
	PhaseHalftime  Phase = "halftime"   // halftime window open
	PhaseFulltime  Phase = "fulltime"
	PhaseNextMatch Phase = "next_match" // preparing the next match of a series
)

// Winner is the settled 1X2 result.
type Winner string

const (
	WinnerHome Winner = "red"
	WinnerAway Winner = "blue"
	WinnerDraw Winner = "draw"
)

// Score counts goals per side.
type Score struct {
	Home int `json:"red"`
	Away int `json:"blue"`
}

// Total returns the combined goal count.
func (s Score) Total() int { return s.Home + s.Away }

// Add increments the counter of the given side.
func (s *Score) Add(t Team) {
	switch t {
	case TeamHome:
		s.Home++
	case TeamAway:
		s.Away++
	}
}

// GoalEvent is one entry of a match's goal log.
type GoalEvent struct {
	Minute int  `json:"minute"`
	Team   Team `json:"team"`
	Half   int  `json:"half"`
}

// Formations names the tactical layout of each side.
type Formations struct {
	Home string `json:"red"`
	Away string `json:"blue"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Match aggregate
// ──────────────────────────────────────────────────────────────────────────────

// Match is the mutable state of the match in progress.  It is mutated only by
// the match state machine; everyone else reads copies.
type Match struct {
	ID         uuid.UUID   `json:"id"`
	Number     int         `json:"number"`
	Phase      Phase       `json:"phase"`
	Half       int         `json:"half"`
	Clock      float64     `json:"clock"`  // match minutes, continuous across halves
	Injury     [2]int      `json:"injury"` // allocated injury minutes per half, 0 = not yet allocated
	Score      Score       `json:"score"`
	FirstHalf  Score       `json:"first_half"`
	Running    bool        `json:"running"`
	Started    bool        `json:"started"`
	Formations Formations  `json:"formations"`
	Goals      []GoalEvent `json:"goals"`
	StartedAt  time.Time   `json:"started_at"`
}

// NewMatch creates match number n in its pre-match state.
func NewMatch(n int, f Formations, now time.Time) *Match {
	return &Match{
		ID:         uuid.New(),
		Number:     n,
		Phase:      PhaseBetting,
		Half:       1,
		Formations: f,
		Goals:      []GoalEvent{},
		StartedAt:  now,
	}
}

// Boundary returns the regulation end of the current half in match minutes.
func (m *Match) Boundary(halfMinutes float64) float64 {
	return halfMinutes * float64(m.Half)
}

// InjuryAllocated reports whether injury time was already added to the
// current half.
func (m *Match) InjuryAllocated() bool {
	return m.injurySlot() >= 0 && m.Injury[m.injurySlot()] > 0
}

// AllocateInjury records the injury minutes of the current half.
func (m *Match) AllocateInjury(minutes int) {
	if i := m.injurySlot(); i >= 0 {
		m.Injury[i] = minutes
	}
}

// InjuryMinutes returns the injury minutes allocated to the current half.
func (m *Match) InjuryMinutes() int {
	if i := m.injurySlot(); i >= 0 {
		return m.Injury[i]
	}
	return 0
}

func (m *Match) injurySlot() int {
	if m.Half < 1 || m.Half > 2 {
		return -1
	}
	return m.Half - 1
}

// Minute returns the whole match minute shown on the clock.
func (m *Match) Minute() int {
	return int(math.Floor(m.Clock))
}

// RecordGoal updates the score counters and appends to the goal log.
func (m *Match) RecordGoal(t Team) GoalEvent {
	m.Score.Add(t)
	if m.Half == 1 {
		m.FirstHalf.Add(t)
	}
	g := GoalEvent{Minute: m.Minute(), Team: t, Half: m.Half}
	m.Goals = append(m.Goals, g)
	return g
}

// ClockLabel renders the clock as "Half: N - MM'" with a "+X'" suffix while
// in injury time.
func (m *Match) ClockLabel(halfMinutes float64) string {
	label := fmt.Sprintf("Half: %d - %02d'", m.Half, m.Minute())
	boundary := m.Boundary(halfMinutes)
	if m.Clock > boundary && m.InjuryAllocated() {
		label += fmt.Sprintf(" +%d'", int(math.Floor(m.Clock-boundary)))
	}
	return label
}

// Clone returns a deep copy safe to hand to readers.
func (m *Match) Clone() Match {
	c := *m
	c.Goals = append([]GoalEvent(nil), m.Goals...)
	return c
}

// ResultText returns "Home Win", "Away Win" or "Draw".
func (m *Match) ResultText() string {
	switch {
	case m.Score.Home > m.Score.Away:
		return "Home Win"
	case m.Score.Away > m.Score.Home:
		return "Away Win"
	}
	return "Draw"
}

// Result builds the settlement view of a finished match.
func (m *Match) Result() MatchResult {
	w := WinnerDraw
	switch {
	case m.Score.Home > m.Score.Away:
		w = WinnerHome
	case m.Score.Away > m.Score.Home:
		w = WinnerAway
	}
	return MatchResult{
		MatchID:            m.ID,
		Number:             m.Number,
		Winner:             w,
		HomeGoals:          m.Score.Home,
		AwayGoals:          m.Score.Away,
		TotalGoals:         m.Score.Total(),
		FirstHalfHomeGoals: m.FirstHalf.Home,
		FirstHalfAwayGoals: m.FirstHalf.Away,
		FirstHalfGoals:     m.FirstHalf.Total(),
		BTTS:               m.Score.Home > 0 && m.Score.Away > 0,
	}
}

// Record builds the archive row of a finished match.
func (m *Match) Record(finishedAt time.Time) MatchRecord {
	r := MatchRecord{
		MatchID:             m.ID,
		Number:              m.Number,
		HomeTeam:            TeamHome.DisplayName(),
		AwayTeam:            TeamAway.DisplayName(),
		HomeFormation:       m.Formations.Home,
		AwayFormation:       m.Formations.Away,
		HomeGoals:           m.Score.Home,
		AwayGoals:           m.Score.Away,
		FirstHalfHomeGoals:  m.FirstHalf.Home,
		FirstHalfAwayGoals:  m.FirstHalf.Away,
		SecondHalfHomeGoals: m.Score.Home - m.FirstHalf.Home,
		SecondHalfAwayGoals: m.Score.Away - m.FirstHalf.Away,
		TotalGoals:          m.Score.Total(),
		Result:              m.ResultText(),
		Goals:               append([]GoalEvent(nil), m.Goals...),
		FinishedAt:          finishedAt,
	}
	if n := len(m.Goals); n > 0 {
		first, last := m.Goals[0].Minute, m.Goals[n-1].Minute
		r.FirstGoalMinute = &first
		r.LastGoalMinute = &last
	}
	return r
}

// ──────────────────────────────────────────────────────────────────────────────
// Finalized views
// ──────────────────────────────────────────────────────────────────────────────

// MatchResult is what bets are settled against.
type MatchResult struct {
	MatchID            uuid.UUID `json:"match_id"`
	Number             int       `json:"number"`
	Winner             Winner    `json:"winner"`
	HomeGoals          int       `json:"home_goals"`
	AwayGoals          int       `json:"away_goals"`
	TotalGoals         int       `json:"total_goals"`
	FirstHalfHomeGoals int       `json:"first_half_home_goals"`
	FirstHalfAwayGoals int       `json:"first_half_away_goals"`
	FirstHalfGoals     int       `json:"first_half_goals"`
	BTTS               bool      `json:"btts"`
}

// MatchRecord is one completed match as archived and exported.
type MatchRecord struct {
	MatchID             uuid.UUID   `json:"match_id"               db:"id"`
	Number              int         `json:"number"                 db:"number"`
	HomeTeam            string      `json:"home_team"              db:"home_team"`
	AwayTeam            string      `json:"away_team"              db:"away_team"`
	HomeFormation       string      `json:"home_formation"         db:"home_formation"`
	AwayFormation       string      `json:"away_formation"         db:"away_formation"`
	HomeGoals           int         `json:"home_goals"             db:"home_goals"`
	AwayGoals           int         `json:"away_goals"             db:"away_goals"`
	FirstHalfHomeGoals  int         `json:"first_half_home_goals"  db:"first_half_home_goals"`
	FirstHalfAwayGoals  int         `json:"first_half_away_goals"  db:"first_half_away_goals"`
	SecondHalfHomeGoals int         `json:"second_half_home_goals" db:"second_half_home_goals"`
	SecondHalfAwayGoals int         `json:"second_half_away_goals" db:"second_half_away_goals"`
	TotalGoals          int         `json:"total_goals"            db:"total_goals"`
	OwnGoals            int         `json:"own_goals"              db:"own_goals"`
	Result              string      `json:"result"                 db:"result"`
	Goals               []GoalEvent `json:"goals"                  db:"-"`
	FirstGoalMinute     *int        `json:"first_goal_minute"      db:"first_goal_minute"`
	LastGoalMinute      *int        `json:"last_goal_minute"       db:"last_goal_minute"`
	FinishedAt          time.Time   `json:"finished_at"            db:"finished_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Snapshot: read model published once per tick
// ──────────────────────────────────────────────────────────────────────────────

// Snapshot is an immutable copy of the simulation for renderers and the API.
type Snapshot struct {
	Match          Match     `json:"match"`
	Entities       []Entity  `json:"entities"`
	Field          Field     `json:"field"`
	ClockLabel     string    `json:"clock_label"`
	BettingOpen    bool      `json:"betting_open"`
	BettingSeconds int       `json:"betting_seconds"`
	Speed          float64   `json:"speed"`
	TotalMatches   int       `json:"total_matches"`
	Message        string    `json:"message,omitempty"`
	At             time.Time `json:"at"`
}
