package odds

import "math"

const (
	// MinOdds is the lowest price ever quoted.
	MinOdds = 1.01

	// DefaultMargin is the bookmaker over-round.
	DefaultMargin = 0.05

	// DefaultCeiling is the highest price shown; anything above is withdrawn.
	DefaultCeiling = 1000.0

	minProbability = 1e-4
	maxProbability = 0.9999
)

// ClampProbability bounds p to [1e-4, 0.9999].  NaN is treated as the floor.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) || p < minProbability {
		return minProbability
	}
	if p > maxProbability {
		return maxProbability
	}
	return p
}

// Price converts a probability into decimal odds with margin applied:
// max(1.01, 1 / (p·(1+margin))).
func Price(p, margin float64) float64 {
	return math.Max(MinOdds, 1/(ClampProbability(p)*(1+margin)))
}

// PriceWithCeiling is Price plus ok=false when the odd exceeds ceiling.
func PriceWithCeiling(p, margin, ceiling float64) (odds float64, ok bool) {
	odds = Price(p, margin)
	return odds, odds <= ceiling
}
