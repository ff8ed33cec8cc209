package service

import (
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/google/uuid"
)

// ScoreGoal drives the goal path without waiting for the physics to produce
// one.
func (s *MatchService) ScoreGoal(team domain.Team) { s.handleGoal(team) }

// PlaceBall moves the ball so the next Tick starts from a known position.
func (s *MatchService) PlaceBall(x, y, vx, vy float64) {
	b := s.world.Ball
	b.X, b.Y, b.VX, b.VY = x, y, vx, vy
}

// RekeyBet rewrites the outcome a stored bet backs, bypassing placement
// validation.
func (s *BetService) RekeyBet(id uuid.UUID, k domain.OutcomeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.byID[id]
	b.Market, b.Outcome = k.Market, k.Outcome
}
