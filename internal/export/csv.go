// Package export renders completed matches as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evetabi/matchsim/internal/domain"
)

// Header is the fixed column set of a match export.
var Header = []string{
	"Match Number",
	"Home Team",
	"Away Team",
	"Home Formation",
	"Away Formation",
	"Home Goals",
	"Away Goals",
	"1st Half Home Goals",
	"1st Half Away Goals",
	"2nd Half Home Goals",
	"2nd Half Away Goals",
	"Total Goals",
	"Own Goals",
	"Result",
	"Goal Times (Team:Minute)",
	"First Goal Minute",
	"Last Goal Minute",
}

// WriteCSV writes the header followed by one row per record.
func WriteCSV(w io.Writer, records []domain.MatchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export.WriteCSV: header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("export.WriteCSV: match %d: %w", r.Number, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export.WriteCSV: flush: %w", err)
	}
	return nil
}

// Row renders one record in Header order.
func Row(r domain.MatchRecord) []string {
	return []string{
		strconv.Itoa(r.Number),
		r.HomeTeam,
		r.AwayTeam,
		r.HomeFormation,
		r.AwayFormation,
		strconv.Itoa(r.HomeGoals),
		strconv.Itoa(r.AwayGoals),
		strconv.Itoa(r.FirstHalfHomeGoals),
		strconv.Itoa(r.FirstHalfAwayGoals),
		strconv.Itoa(r.SecondHalfHomeGoals),
		strconv.Itoa(r.SecondHalfAwayGoals),
		strconv.Itoa(r.TotalGoals),
		strconv.Itoa(r.OwnGoals),
		r.Result,
		goalTimes(r.Goals),
		optionalMinute(r.FirstGoalMinute),
		optionalMinute(r.LastGoalMinute),
	}
}

// goalTimes renders "Red:12; Blue:67".
func goalTimes(goals []domain.GoalEvent) string {
	parts := make([]string, 0, len(goals))
	for _, g := range goals {
		parts = append(parts, fmt.Sprintf("%s:%d", g.Team.DisplayName(), g.Minute))
	}
	return strings.Join(parts, "; ")
}

func optionalMinute(m *int) string {
	if m == nil {
		return ""
	}
	return strconv.Itoa(*m)
}
