package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/formation"
	"github.com/evetabi/matchsim/internal/odds"
)

// SimulationCache stores fast-simulation results.  Implemented by
// cache.SimCache.
type SimulationCache interface {
	LoadSimulation(ctx context.Context, key string, dst any) (bool, error)
	StoreSimulation(ctx context.Context, key string, v any) error
}

// MaxSimulatedMatches bounds one simulation request.
const MaxSimulatedMatches = 100_000

// baseGoalChance is the per-attack scoring rate of evenly matched sides.
const baseGoalChance = 0.15

// SimulationRequest selects the matchup and run count.  Seed 0 draws a seed
// from the clock and disables caching.
type SimulationRequest struct {
	Home    string `json:"home"    binding:"required"`
	Away    string `json:"away"    binding:"required"`
	Matches int    `json:"matches" binding:"required"`
	Seed    uint64 `json:"seed"`
}

// SimulationResult is the aggregate of a simulation run, priced with the
// same engine settings as the live board.
type SimulationResult struct {
	Home       string          `json:"home"`
	Away       string          `json:"away"`
	Matches    int             `json:"matches"`
	Seed       uint64          `json:"seed"`
	Historical odds.Historical `json:"historical"`
	Quotes     []domain.Quote  `json:"quotes"`
	Cached     bool            `json:"cached"`
}

// SimulationService runs the strength-weighted fast simulation: no physics,
// one scoring roll per side per minute.
type SimulationService struct {
	catalog *formation.Catalog
	opts    odds.Options
	logger  *slog.Logger
	cache   SimulationCache // optional
}

// NewSimulationService creates a SimulationService.
func NewSimulationService(catalog *formation.Catalog, opts odds.Options, logger *slog.Logger) *SimulationService {
	return &SimulationService{catalog: catalog, opts: opts, logger: logger}
}

// SetCache injects the Redis dependency post-construction.
func (s *SimulationService) SetCache(c SimulationCache) { s.cache = c }

// Simulate plays req.Matches fast matches and prices the aggregate.
func (s *SimulationService) Simulate(ctx context.Context, req SimulationRequest) (*SimulationResult, error) {
	home, err := s.catalog.Lookup(req.Home)
	if err != nil {
		return nil, fmt.Errorf("simulation_service.Simulate: home: %w", err)
	}
	away, err := s.catalog.Lookup(req.Away)
	if err != nil {
		return nil, fmt.Errorf("simulation_service.Simulate: away: %w", err)
	}
	if req.Matches < 1 || req.Matches > MaxSimulatedMatches {
		return nil, fmt.Errorf("simulation_service.Simulate: %d matches: %w", req.Matches, domain.ErrInvalidControl)
	}

	key := ""
	if req.Seed != 0 && s.cache != nil {
		key = fmt.Sprintf("%s:%s:%d:%d", home.Name, away.Name, req.Matches, req.Seed)
		var cached SimulationResult
		ok, err := s.cache.LoadSimulation(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("simulation_service: cache read", "key", key, "err", err)
		} else if ok {
			cached.Cached = true
			return &cached, nil
		}
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	h, err := s.run(ctx, home, away, req.Matches, rng)
	if err != nil {
		return nil, err
	}
	prior, err := odds.NewPrior(h)
	if err != nil {
		return nil, fmt.Errorf("simulation_service.Simulate: prior: %w", err)
	}
	quotes := quotesOf(odds.NewEngine(prior, s.opts).PreMatch())

	res := &SimulationResult{
		Home:       home.Name,
		Away:       away.Name,
		Matches:    req.Matches,
		Seed:       seed,
		Historical: h,
		Quotes:     quotes,
	}
	s.logger.Info("simulation complete",
		"home", home.Name,
		"away", away.Name,
		"matches", req.Matches,
		"red_wins", h.HomeWins,
		"draws", h.Draws,
		"blue_wins", h.AwayWins,
	)

	if key != "" {
		if err := s.cache.StoreSimulation(ctx, key, res); err != nil {
			s.logger.Warn("simulation_service: cache write", "key", key, "err", err)
		}
	}
	return res, nil
}

// run aggregates n matches.  The context is polled every 1000 matches.
func (s *SimulationService) run(ctx context.Context, home, away formation.Formation, n int, rng *rand.Rand) (odds.Historical, error) {
	homeChance := formation.AttackStrength(home) / formation.DefenseStrength(away) * baseGoalChance
	awayChance := formation.AttackStrength(away) / formation.DefenseStrength(home) * baseGoalChance

	var h odds.Historical
	for i := 0; i < n; i++ {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return odds.Historical{}, fmt.Errorf("simulation_service.Simulate: %w", err)
			}
		}
		var hg, ag, fhH, fhA int
		for minute := 1; minute <= 90; minute++ {
			if rng.Float64() < homeChance/45 {
				hg++
				if minute <= 45 {
					fhH++
				}
			}
			if rng.Float64() < awayChance/45 {
				ag++
				if minute <= 45 {
					fhA++
				}
			}
		}
		h.Observe(hg, ag, fhH, fhA)
	}
	h.Finalize()
	return h, nil
}
