package domain_test

import (
	"testing"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
)

func TestMatch_RecordGoal_UpdatesHalves(t *testing.T) {
	m := domain.NewMatch(1, domain.Formations{Home: "4-4-2", Away: "3-5-2"}, time.Now())
	m.Clock = 12.7
	g := m.RecordGoal(domain.TeamHome)
	if g.Minute != 12 || g.Half != 1 || g.Team != domain.TeamHome {
		t.Errorf("goal event = %+v, want minute 12 half 1 red", g)
	}

	m.Half = 2
	m.Clock = 71.2
	m.RecordGoal(domain.TeamAway)

	if m.Score != (domain.Score{Home: 1, Away: 1}) {
		t.Errorf("score = %+v, want 1-1", m.Score)
	}
	if m.FirstHalf != (domain.Score{Home: 1, Away: 0}) {
		t.Errorf("first half = %+v, want 1-0", m.FirstHalf)
	}
	if len(m.Goals) != 2 {
		t.Fatalf("goal log length = %d, want 2", len(m.Goals))
	}
}

func TestMatch_Injury_PerHalf(t *testing.T) {
	m := domain.NewMatch(1, domain.Formations{}, time.Now())
	if m.InjuryAllocated() {
		t.Fatal("fresh match should have no injury time")
	}
	m.AllocateInjury(2)
	if !m.InjuryAllocated() || m.InjuryMinutes() != 2 {
		t.Errorf("first half injury = %d, allocated=%v", m.InjuryMinutes(), m.InjuryAllocated())
	}
	m.Half = 2
	if m.InjuryAllocated() {
		t.Error("second half injury must start unallocated")
	}
}

func TestMatch_ClockLabel(t *testing.T) {
	m := domain.NewMatch(1, domain.Formations{}, time.Now())
	m.Clock = 7.9
	if got := m.ClockLabel(45); got != "Half: 1 - 07'" {
		t.Errorf("ClockLabel = %q", got)
	}
	m.AllocateInjury(3)
	m.Clock = 46.5
	if got := m.ClockLabel(45); got != "Half: 1 - 46' +1'" {
		t.Errorf("ClockLabel in injury time = %q", got)
	}
}

func TestMatch_ResultAndRecord(t *testing.T) {
	m := domain.NewMatch(3, domain.Formations{Home: "4-3-3", Away: "4-4-2"}, time.Now())
	m.Clock = 10
	m.RecordGoal(domain.TeamAway)
	m.Half = 2
	m.Clock = 60
	m.RecordGoal(domain.TeamHome)
	m.Clock = 88
	m.RecordGoal(domain.TeamAway)

	r := m.Result()
	if r.Winner != domain.WinnerAway || r.TotalGoals != 3 || !r.BTTS {
		t.Errorf("result = %+v", r)
	}
	if r.FirstHalfGoals != 1 || r.FirstHalfAwayGoals != 1 {
		t.Errorf("first half result = %+v", r)
	}
	if m.ResultText() != "Away Win" {
		t.Errorf("ResultText = %s", m.ResultText())
	}

	rec := m.Record(time.Now())
	if rec.SecondHalfHomeGoals != 1 || rec.SecondHalfAwayGoals != 1 {
		t.Errorf("second half goals = %d-%d, want 1-1", rec.SecondHalfHomeGoals, rec.SecondHalfAwayGoals)
	}
	if rec.FirstGoalMinute == nil || *rec.FirstGoalMinute != 10 {
		t.Errorf("first goal minute = %v, want 10", rec.FirstGoalMinute)
	}
	if rec.LastGoalMinute == nil || *rec.LastGoalMinute != 88 {
		t.Errorf("last goal minute = %v, want 88", rec.LastGoalMinute)
	}
	if rec.HomeTeam != "Red" || rec.AwayTeam != "Blue" {
		t.Errorf("team names = %s/%s", rec.HomeTeam, rec.AwayTeam)
	}
}

func TestMatch_Record_Goalless(t *testing.T) {
	m := domain.NewMatch(1, domain.Formations{}, time.Now())
	rec := m.Record(time.Now())
	if rec.FirstGoalMinute != nil || rec.LastGoalMinute != nil {
		t.Error("goalless match must have no first/last goal minute")
	}
	if m.Result().Winner != domain.WinnerDraw || m.Result().BTTS {
		t.Errorf("goalless result = %+v", m.Result())
	}
}

func TestEntity_ClampSpeed(t *testing.T) {
	e := domain.Entity{VX: 30, VY: 40, MaxSpeed: 5}
	e.ClampSpeed()
	if s := e.Speed(); s > 5+1e-9 {
		t.Errorf("speed after clamp = %v, want <= 5", s)
	}
	if e.VX <= 0 || e.VY <= 0 {
		t.Error("clamp must preserve direction")
	}
}
