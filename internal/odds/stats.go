// Package odds turns goal-count distributions into decimal prices.  Pre-match
// prices come from a fixed historical prior; halftime prices come from a
// Poisson model of the remaining goals.
package odds

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Historical frequencies
// ──────────────────────────────────────────────────────────────────────────────

// Historical holds raw frequency counts.  Index i of a goal table is the
// number of matches in which the side scored exactly i goals.
type Historical struct {
	HomeWins     int `json:"home_wins"     yaml:"home_wins"`
	Draws        int `json:"draws"         yaml:"draws"`
	AwayWins     int `json:"away_wins"     yaml:"away_wins"`
	TotalMatches int `json:"total_matches" yaml:"total_matches"`

	HomeGoals     []float64 `json:"home_goals"      yaml:"home_goals"`
	AwayGoals     []float64 `json:"away_goals"      yaml:"away_goals"`
	FirstHalfHome []float64 `json:"first_half_home" yaml:"first_half_home"`
	FirstHalfAway []float64 `json:"first_half_away" yaml:"first_half_away"`

	AvgHomeGoals     float64 `json:"avg_home_goals"      yaml:"avg_home_goals"`
	AvgAwayGoals     float64 `json:"avg_away_goals"      yaml:"avg_away_goals"`
	AvgFirstHalfHome float64 `json:"avg_first_half_home" yaml:"avg_first_half_home"`
	AvgFirstHalfAway float64 `json:"avg_first_half_away" yaml:"avg_first_half_away"`
}

// DefaultHistorical returns the prior observed over 1000 simulated matches.
func DefaultHistorical() Historical {
	return Historical{
		HomeWins:     343,
		Draws:        288,
		AwayWins:     369,
		TotalMatches: 1000,

		HomeGoals:     []float64{298, 395, 218, 67, 18, 3, 1},
		AwayGoals:     []float64{289, 380, 204, 98, 22, 6, 1},
		FirstHalfHome: []float64{575, 330, 81, 13, 1},
		FirstHalfAway: []float64{539, 357, 82, 16, 6},

		AvgHomeGoals:     1.125,
		AvgAwayGoals:     1.206,
		AvgFirstHalfHome: 0.535,
		AvgFirstHalfAway: 0.593,
	}
}

// Observe adds one finished match to the counts.  Call Finalize afterwards
// to refresh the averages.
func (h *Historical) Observe(home, away, fhHome, fhAway int) {
	h.TotalMatches++
	switch {
	case home > away:
		h.HomeWins++
	case away > home:
		h.AwayWins++
	default:
		h.Draws++
	}
	h.HomeGoals = bump(h.HomeGoals, home)
	h.AwayGoals = bump(h.AwayGoals, away)
	h.FirstHalfHome = bump(h.FirstHalfHome, fhHome)
	h.FirstHalfAway = bump(h.FirstHalfAway, fhAway)
}

func bump(table []float64, goals int) []float64 {
	for len(table) <= goals {
		table = append(table, 0)
	}
	table[goals]++
	return table
}

// Finalize recomputes the goal averages from the tables.
func (h *Historical) Finalize() {
	h.AvgHomeGoals = mean(h.HomeGoals)
	h.AvgAwayGoals = mean(h.AwayGoals)
	h.AvgFirstHalfHome = mean(h.FirstHalfHome)
	h.AvgFirstHalfAway = mean(h.FirstHalfAway)
}

func mean(table []float64) float64 {
	var n, sum float64
	for goals, count := range table {
		n += count
		sum += float64(goals) * count
	}
	if n == 0 {
		return 0
	}
	return sum / n
}

// ──────────────────────────────────────────────────────────────────────────────
// Prior: normalized once at load time
// ──────────────────────────────────────────────────────────────────────────────

// ErrEmptyHistory is returned when the frequency tables carry no mass.
var ErrEmptyHistory = errors.New("historical tables are empty")

// Prior is Historical normalized into probability mass functions.
type Prior struct {
	HomeWin, Draw, AwayWin float64

	HomeGoals, AwayGoals         []float64
	FirstHalfHome, FirstHalfAway []float64

	// Expected goals per side over the second half.
	LambdaHome, LambdaAway float64
}

// NewPrior normalizes h.  Result frequencies are divided by TotalMatches and
// every goal table by its own sum.
func NewPrior(h Historical) (Prior, error) {
	results := h.HomeWins + h.Draws + h.AwayWins
	total := h.TotalMatches
	if total <= 0 {
		total = results
	}
	if total <= 0 {
		return Prior{}, fmt.Errorf("odds.NewPrior: results: %w", ErrEmptyHistory)
	}

	p := Prior{
		HomeWin:    float64(h.HomeWins) / float64(total),
		Draw:       float64(h.Draws) / float64(total),
		AwayWin:    float64(h.AwayWins) / float64(total),
		LambdaHome: max(0, h.AvgHomeGoals-h.AvgFirstHalfHome),
		LambdaAway: max(0, h.AvgAwayGoals-h.AvgFirstHalfAway),
	}
	tables := []struct {
		name string
		src  []float64
		dst  *[]float64
	}{
		{"home goals", h.HomeGoals, &p.HomeGoals},
		{"away goals", h.AwayGoals, &p.AwayGoals},
		{"first half home", h.FirstHalfHome, &p.FirstHalfHome},
		{"first half away", h.FirstHalfAway, &p.FirstHalfAway},
	}
	for _, t := range tables {
		pmf, ok := normalize(t.src)
		if !ok {
			return Prior{}, fmt.Errorf("odds.NewPrior: %s: %w", t.name, ErrEmptyHistory)
		}
		*t.dst = pmf
	}
	return p, nil
}

// DefaultPrior is NewPrior(DefaultHistorical()).
func DefaultPrior() Prior {
	p, err := NewPrior(DefaultHistorical())
	if err != nil {
		panic("odds: default prior is invalid: " + err.Error())
	}
	return p
}

func normalize(table []float64) ([]float64, bool) {
	var sum float64
	for _, v := range table {
		if v < 0 {
			return nil, false
		}
		sum += v
	}
	if sum <= 0 {
		return nil, false
	}
	out := make([]float64, len(table))
	for i, v := range table {
		out[i] = v / sum
	}
	return out, true
}
