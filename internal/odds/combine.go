package odds

// CombinedOverProbability returns P(home + away > line) for two independent
// goal tables.  The tables are normalized by their own sums, so raw counts
// work as well as probabilities.  Empty or massless tables give 0.
func CombinedOverProbability(home, away []float64, line float64) float64 {
	hp, ok := normalize(home)
	if !ok {
		return 0
	}
	ap, ok := normalize(away)
	if !ok {
		return 0
	}
	var p float64
	for h, ph := range hp {
		if ph == 0 {
			continue
		}
		for a, pa := range ap {
			if float64(h+a) > line {
				p += ph * pa
			}
		}
	}
	return p
}

// ScoreProbability returns P(side scores at least once) from a goal table.
func ScoreProbability(table []float64) float64 {
	p, ok := normalize(table)
	if !ok {
		return 0
	}
	return 1 - p[0]
}
