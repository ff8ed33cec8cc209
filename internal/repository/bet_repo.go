package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// BetRepository archives bets as they are placed and settled.
type BetRepository struct {
	db *sqlx.DB
}

// NewBetRepository creates a new BetRepository.
func NewBetRepository(db *sqlx.DB) *BetRepository {
	return &BetRepository{db: db}
}

// Upsert writes the current state of b.  Writes arrive asynchronously and may
// be reordered, so a settled row is never overwritten.
func (r *BetRepository) Upsert(ctx context.Context, b *domain.Bet) error {
	query := `
		INSERT INTO bets
			(id, match_id, match_number, market, outcome, selection, odds, stake,
			 potential_return, status, payout, placed_at, settled_at)
		VALUES
			(:id, :match_id, :match_number, :market, :outcome, :selection, :odds, :stake,
			 :potential_return, :status, :payout, :placed_at, :settled_at)
		ON CONFLICT (id) DO UPDATE
		SET status     = EXCLUDED.status,
		    payout     = EXCLUDED.payout,
		    settled_at = EXCLUDED.settled_at
		WHERE bets.status = 'pending'`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("bet_repo.Upsert: %w", err)
	}
	return nil
}

// GetByID fetches a bet by its primary key.
func (r *BetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bet, error) {
	var b domain.Bet
	err := r.db.GetContext(ctx, &b, `SELECT * FROM bets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("bet_repo.GetByID: %w", err)
	}
	return &b, nil
}

// GetByMatch returns every bet placed on a match in placement order.
func (r *BetRepository) GetByMatch(ctx context.Context, matchID uuid.UUID) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	err := r.db.SelectContext(ctx, &bets,
		`SELECT * FROM bets WHERE match_id = $1 ORDER BY placed_at ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.GetByMatch: %w", err)
	}
	return bets, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Back-office aggregates
// ──────────────────────────────────────────────────────────────────────────────

// FinanceReport sums the archived ledger.  HouseMargin is staked minus paid
// over settled bets only.
type FinanceReport struct {
	Bets        int             `json:"bets"         db:"bets"`
	Pending     int             `json:"pending"      db:"pending"`
	Staked      decimal.Decimal `json:"staked"       db:"staked"`
	Paid        decimal.Decimal `json:"paid"         db:"paid"`
	SettledIn   decimal.Decimal `json:"settled_in"   db:"settled_in"`
	HouseMargin decimal.Decimal `json:"house_margin" db:"-"`
}

// Finance returns the archive-wide finance report.
func (r *BetRepository) Finance(ctx context.Context) (*FinanceReport, error) {
	var rep FinanceReport
	err := r.db.GetContext(ctx, &rep, `
		SELECT COUNT(*)                                                   AS bets,
		       COUNT(*) FILTER (WHERE status = 'pending')                 AS pending,
		       COALESCE(SUM(stake), 0)                                    AS staked,
		       COALESCE(SUM(payout) FILTER (WHERE status <> 'pending'), 0) AS paid,
		       COALESCE(SUM(stake)  FILTER (WHERE status <> 'pending'), 0) AS settled_in
		FROM bets`)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.Finance: %w", err)
	}
	rep.HouseMargin = rep.SettledIn.Sub(rep.Paid)
	return &rep, nil
}

// ExposureRow is the pending liability on one outcome.
type ExposureRow struct {
	Market    domain.MarketID `json:"market"    db:"market"`
	Outcome   string          `json:"outcome"   db:"outcome"`
	Bets      int             `json:"bets"      db:"bets"`
	Stake     decimal.Decimal `json:"stake"     db:"stake"`
	Liability decimal.Decimal `json:"liability" db:"liability"`
}

// Exposure returns the pending liability per outcome, largest first.
func (r *BetRepository) Exposure(ctx context.Context) ([]ExposureRow, error) {
	var rows []ExposureRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT market, outcome,
		       COUNT(*)              AS bets,
		       SUM(stake)            AS stake,
		       SUM(potential_return) AS liability
		FROM bets
		WHERE status = 'pending'
		GROUP BY market, outcome
		ORDER BY liability DESC`)
	if err != nil {
		return nil, fmt.Errorf("bet_repo.Exposure: %w", err)
	}
	return rows, nil
}
