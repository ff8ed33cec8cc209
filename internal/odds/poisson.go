package odds

import "math"

// maxFactorial is the largest n whose factorial fits a float64.
const maxFactorial = 170

// factorials is filled once at package init; reads need no locking.
var factorials = func() [maxFactorial + 1]float64 {
	var t [maxFactorial + 1]float64
	t[0] = 1
	for i := 1; i <= maxFactorial; i++ {
		t[i] = t[i-1] * float64(i)
	}
	return t
}()

// Factorial returns n!.  It is +Inf above 170 and NaN for negative n.
func Factorial(n int) float64 {
	switch {
	case n < 0:
		return math.NaN()
	case n > maxFactorial:
		return math.Inf(1)
	}
	return factorials[n]
}

// PMF returns P(k; λ) = e^-λ·λ^k / k!.  Out-of-domain inputs and k whose
// factorial overflows give 0.
func PMF(k int, lambda float64) float64 {
	if k < 0 || lambda < 0 {
		return 0
	}
	f := Factorial(k)
	if math.IsInf(f, 1) {
		return 0
	}
	return math.Exp(-lambda) * math.Pow(lambda, float64(k)) / f
}

// Distribution returns PMF(k, λ) for k = 0..n.
func Distribution(lambda float64, n int) []float64 {
	out := make([]float64, n+1)
	for k := range out {
		out[k] = PMF(k, lambda)
	}
	return out
}

// ScoreGrid is the joint distribution of additional goals for two
// independent sides, truncated at N per side.
type ScoreGrid struct {
	N     int
	Cells [][]float64 // [home][away]
	Total float64     // mass actually enumerated
}

// NewScoreGrid builds the outer product of two Poisson distributions.
func NewScoreGrid(lambdaHome, lambdaAway float64, n int) ScoreGrid {
	home := Distribution(lambdaHome, n)
	away := Distribution(lambdaAway, n)
	g := ScoreGrid{N: n, Cells: make([][]float64, n+1)}
	for h := range home {
		g.Cells[h] = make([]float64, n+1)
		for a := range away {
			p := home[h] * away[a]
			g.Cells[h][a] = p
			g.Total += p
		}
	}
	return g
}

// Mass returns the normalized probability of every cell for which keep
// reports true.
func (g ScoreGrid) Mass(keep func(home, away int) bool) float64 {
	if g.Total <= 0 {
		return 0
	}
	var m float64
	for h, row := range g.Cells {
		for a, p := range row {
			if p != 0 && keep(h, a) {
				m += p
			}
		}
	}
	return m / g.Total
}
