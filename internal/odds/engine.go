package odds

import (
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/shopspring/decimal"
)

// Goal lines offered on the full-match and first-half totals.
var (
	TotalGoalLines     = []float64{1.5, 2.5, 3.5}
	FirstHalfGoalLines = []float64{0.5, 1.5, 2.5}
)

// DefaultMaxGoals bounds the live Poisson grid per side.
const DefaultMaxGoals = 8

// Selection is one priced outcome.
type Selection struct {
	Key         domain.OutcomeKey
	Probability float64
	Odds        float64
	Available   bool
	Reason      string
}

// Quote converts the selection into the board representation with odds
// rounded to two decimal places.  Unavailable selections carry zero odds.
func (s Selection) Quote() domain.Quote {
	q := domain.Quote{
		Key:         s.Key,
		Label:       s.Key.Label(),
		Probability: s.Probability,
		Available:   s.Available,
		Reason:      s.Reason,
		Odds:        decimal.Zero,
	}
	if s.Available {
		q.Odds = decimal.NewFromFloat(s.Odds).Round(2)
	}
	return q
}

// Options tunes an Engine.  Zero values take the defaults.
type Options struct {
	Margin   float64
	Ceiling  float64
	MaxGoals int
}

// Engine prices every market from a prior.  It is immutable and safe for
// concurrent use.
type Engine struct {
	prior    Prior
	margin   float64
	ceiling  float64
	maxGoals int
}

// NewEngine creates an engine over prior.
func NewEngine(prior Prior, opts Options) *Engine {
	e := &Engine{prior: prior, margin: opts.Margin, ceiling: opts.Ceiling, maxGoals: opts.MaxGoals}
	if e.margin <= 0 {
		e.margin = DefaultMargin
	}
	if e.ceiling <= 0 {
		e.ceiling = DefaultCeiling
	}
	if e.maxGoals <= 0 {
		e.maxGoals = DefaultMaxGoals
	}
	return e
}

// Prior returns the engine's normalized prior.
func (e *Engine) Prior() Prior { return e.prior }

func (e *Engine) priced(k domain.OutcomeKey, p float64) Selection {
	odds, ok := PriceWithCeiling(p, e.margin, e.ceiling)
	s := Selection{Key: k, Probability: p, Odds: odds, Available: ok}
	if !ok {
		s.Reason = domain.ReasonCeiling
	}
	return s
}

func unavailable(k domain.OutcomeKey, p float64, reason string) Selection {
	return Selection{Key: k, Probability: p, Reason: reason}
}

func clamp01(p float64) float64 {
	return max(0, min(1, p))
}

// PreMatch prices every market from the historical prior.
func (e *Engine) PreMatch() []Selection {
	pr := e.prior
	out := make([]Selection, 0, 3+2*len(TotalGoalLines)+2+2*len(FirstHalfGoalLines))

	out = append(out,
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeHomeWin}, pr.HomeWin),
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeDraw}, pr.Draw),
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeAwayWin}, pr.AwayWin),
	)

	for _, line := range TotalGoalLines {
		over := CombinedOverProbability(pr.HomeGoals, pr.AwayGoals, line)
		out = append(out,
			e.priced(domain.LineKey(domain.MarketTotalGoals, domain.SideOver, line), over),
			e.priced(domain.LineKey(domain.MarketTotalGoals, domain.SideUnder, line), clamp01(1-over)),
		)
	}

	yes := ScoreProbability(pr.HomeGoals) * ScoreProbability(pr.AwayGoals)
	out = append(out,
		e.priced(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}, yes),
		e.priced(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}, clamp01(1-yes)),
	)

	for _, line := range FirstHalfGoalLines {
		over := CombinedOverProbability(pr.FirstHalfHome, pr.FirstHalfAway, line)
		out = append(out,
			e.priced(domain.LineKey(domain.MarketFirstHalfGoals, domain.SideOver, line), over),
			e.priced(domain.LineKey(domain.MarketFirstHalfGoals, domain.SideUnder, line), clamp01(1-over)),
		)
	}
	return out
}

// Live reprices at halftime from the current score.  Remaining goals per side
// are Poisson with λ = full-match average − first-half average.  Outcomes
// already decided by the score are withdrawn and first-half markets are
// closed.
func (e *Engine) Live(score domain.Score) []Selection {
	pr := e.prior
	grid := NewScoreGrid(pr.LambdaHome, pr.LambdaAway, e.maxGoals)
	out := make([]Selection, 0, 3+2*len(TotalGoalLines)+2+2*len(FirstHalfGoalLines))

	homeWin := grid.Mass(func(h, a int) bool { return score.Home+h > score.Away+a })
	draw := grid.Mass(func(h, a int) bool { return score.Home+h == score.Away+a })
	awayWin := grid.Mass(func(h, a int) bool { return score.Home+h < score.Away+a })
	out = append(out,
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeHomeWin}, homeWin),
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeDraw}, draw),
		e.priced(domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeAwayWin}, awayWin),
	)

	current := score.Total()
	for _, line := range TotalGoalLines {
		overKey := domain.LineKey(domain.MarketTotalGoals, domain.SideOver, line)
		underKey := domain.LineKey(domain.MarketTotalGoals, domain.SideUnder, line)
		if float64(current) > line {
			out = append(out,
				unavailable(overKey, 1, domain.ReasonDecided),
				unavailable(underKey, 0, domain.ReasonDecided),
			)
			continue
		}
		over := grid.Mass(func(h, a int) bool { return float64(current+h+a) > line })
		out = append(out,
			e.priced(overKey, over),
			e.priced(underKey, clamp01(1-over)),
		)
	}

	yesKey := domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}
	noKey := domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}
	if score.Home > 0 && score.Away > 0 {
		out = append(out,
			unavailable(yesKey, 1, domain.ReasonDecided),
			unavailable(noKey, 0, domain.ReasonDecided),
		)
	} else {
		yes := grid.Mass(func(h, a int) bool { return score.Home+h > 0 && score.Away+a > 0 })
		out = append(out,
			e.priced(yesKey, yes),
			e.priced(noKey, clamp01(1-yes)),
		)
	}

	for _, line := range FirstHalfGoalLines {
		out = append(out,
			unavailable(domain.LineKey(domain.MarketFirstHalfGoals, domain.SideOver, line), 0, domain.ReasonClosed),
			unavailable(domain.LineKey(domain.MarketFirstHalfGoals, domain.SideUnder, line), 0, domain.ReasonClosed),
		)
	}
	return out
}
