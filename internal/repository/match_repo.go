package repository

import (
	"context"
	"fmt"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/jmoiron/sqlx"
)

// MatchRepository archives completed matches.
type MatchRepository struct {
	db *sqlx.DB
}

// NewMatchRepository creates a new MatchRepository.
func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// Insert stores a completed match and its goal log in one transaction.  A
// match that is already archived is left untouched.
func (r *MatchRepository) Insert(ctx context.Context, rec domain.MatchRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("match_repo.Insert: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO matches
			(id, number, home_team, away_team, home_formation, away_formation,
			 home_goals, away_goals, first_half_home_goals, first_half_away_goals,
			 second_half_home_goals, second_half_away_goals, total_goals, own_goals,
			 result, first_goal_minute, last_goal_minute, finished_at)
		VALUES
			(:id, :number, :home_team, :away_team, :home_formation, :away_formation,
			 :home_goals, :away_goals, :first_half_home_goals, :first_half_away_goals,
			 :second_half_home_goals, :second_half_away_goals, :total_goals, :own_goals,
			 :result, :first_goal_minute, :last_goal_minute, :finished_at)
		ON CONFLICT (id) DO NOTHING`
	res, err := tx.NamedExecContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("match_repo.Insert: match: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	for i, g := range rec.Goals {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO match_goals (match_id, seq, team, minute, half) VALUES ($1, $2, $3, $4, $5)`,
			rec.MatchID, i+1, string(g.Team), g.Minute, g.Half); err != nil {
			return fmt.Errorf("match_repo.Insert: goal %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("match_repo.Insert: commit: %w", err)
	}
	return nil
}

// List returns archived matches, newest first.  Goal logs are not loaded.
func (r *MatchRepository) List(ctx context.Context, limit, offset int) ([]domain.MatchRecord, error) {
	var recs []domain.MatchRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT id, number, home_team, away_team, home_formation, away_formation,
		       home_goals, away_goals, first_half_home_goals, first_half_away_goals,
		       second_half_home_goals, second_half_away_goals, total_goals, own_goals,
		       result, first_goal_minute, last_goal_minute, finished_at
		FROM matches
		ORDER BY finished_at DESC
		LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("match_repo.List: %w", err)
	}
	return recs, nil
}

// Count returns the number of archived matches.
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM matches`); err != nil {
		return 0, fmt.Errorf("match_repo.Count: %w", err)
	}
	return n, nil
}

// scoreRow is one archived final score.
type scoreRow struct {
	HomeGoals          int `db:"home_goals"`
	AwayGoals          int `db:"away_goals"`
	FirstHalfHomeGoals int `db:"first_half_home_goals"`
	FirstHalfAwayGoals int `db:"first_half_away_goals"`
}

// Historical aggregates the whole archive into the frequency tables the odds
// engine prices from.
func (r *MatchRepository) Historical(ctx context.Context) (odds.Historical, error) {
	var rows []scoreRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT home_goals, away_goals, first_half_home_goals, first_half_away_goals
		FROM matches`)
	if err != nil {
		return odds.Historical{}, fmt.Errorf("match_repo.Historical: %w", err)
	}
	var h odds.Historical
	for _, row := range rows {
		h.Observe(row.HomeGoals, row.AwayGoals, row.FirstHalfHomeGoals, row.FirstHalfAwayGoals)
	}
	h.Finalize()
	return h, nil
}
