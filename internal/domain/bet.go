package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// BetStatus represents the current state of a wager.
type BetStatus string

const (
	BetStatusPending BetStatus = "pending" // awaiting full time
	BetStatusWon     BetStatus = "won"
	BetStatusLost    BetStatus = "lost"
	BetStatusVoid    BetStatus = "void" // match abandoned, stake refunded
)

// StartingBalance is the ledger balance of a fresh session.
var StartingBalance = decimal.NewFromInt(1000)

// ──────────────────────────────────────────────────────────────────────────────
// Bet
// ──────────────────────────────────────────────────────────────────────────────

// Bet is a single wager.  Odds and stake are frozen at placement; later
// re-pricing never touches an existing bet.
type Bet struct {
	ID              uuid.UUID        `json:"id"               db:"id"`
	MatchID         uuid.UUID        `json:"match_id"         db:"match_id"`
	MatchNumber     int              `json:"match_number"     db:"match_number"`
	Market          MarketID         `json:"market"           db:"market"`
	Outcome         string           `json:"outcome"          db:"outcome"`
	Selection       string           `json:"selection"        db:"selection"`
	Odds            decimal.Decimal  `json:"odds"             db:"odds"`
	Stake           decimal.Decimal  `json:"stake"            db:"stake"`
	PotentialReturn decimal.Decimal  `json:"potential_return" db:"potential_return"`
	Status          BetStatus        `json:"status"           db:"status"`
	Payout          *decimal.Decimal `json:"payout,omitempty" db:"payout"`
	PlacedAt        time.Time        `json:"placed_at"        db:"placed_at"`
	SettledAt       *time.Time       `json:"settled_at"       db:"settled_at"`
}

// NewBet freezes the quote into a pending bet.
func NewBet(matchID uuid.UUID, matchNumber int, q Quote, stake decimal.Decimal, now time.Time) *Bet {
	return &Bet{
		ID:              uuid.New(),
		MatchID:         matchID,
		MatchNumber:     matchNumber,
		Market:          q.Key.Market,
		Outcome:         q.Key.Outcome,
		Selection:       q.Label,
		Odds:            q.Odds,
		Stake:           stake,
		PotentialReturn: stake.Mul(q.Odds),
		Status:          BetStatusPending,
		PlacedAt:        now,
	}
}

// Key returns the outcome the bet is placed on.
func (b *Bet) Key() OutcomeKey {
	return OutcomeKey{Market: b.Market, Outcome: b.Outcome}
}

// IsPending returns true while the bet awaits settlement.
func (b *Bet) IsPending() bool {
	return b.Status == BetStatusPending
}

// Settle transitions a pending bet to won or lost exactly once and returns the
// amount to credit (zero for a loss).  A bet that is not pending returns
// ErrBetAlreadySettled and is left untouched.
func (b *Bet) Settle(r MatchResult, now time.Time) (decimal.Decimal, error) {
	if !b.IsPending() {
		return decimal.Zero, ErrBetAlreadySettled
	}
	won, err := b.Key().Wins(r)
	if err != nil {
		return decimal.Zero, err
	}
	b.SettledAt = &now
	if !won {
		b.Status = BetStatusLost
		zero := decimal.Zero
		b.Payout = &zero
		return decimal.Zero, nil
	}
	b.Status = BetStatusWon
	payout := b.PotentialReturn
	b.Payout = &payout
	return payout, nil
}

// Void refunds a pending bet whose match was abandoned before full time.
func (b *Bet) Void(now time.Time) (decimal.Decimal, error) {
	if !b.IsPending() {
		return decimal.Zero, ErrBetAlreadySettled
	}
	b.Status = BetStatusVoid
	b.SettledAt = &now
	refund := b.Stake
	b.Payout = &refund
	return refund, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBetRequest: value object used by BetService
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBetRequest carries the inputs for placing a bet.
type PlaceBetRequest struct {
	Market  MarketID
	Outcome string
	Stake   decimal.Decimal
}

// Key returns the requested outcome.
func (r PlaceBetRequest) Key() OutcomeKey {
	return OutcomeKey{Market: r.Market, Outcome: r.Outcome}
}

// SettlementSummary reports what one settlement pass did.
type SettlementSummary struct {
	MatchID  uuid.UUID       `json:"match_id"`
	Settled  int             `json:"settled"`
	Won      int             `json:"won"`
	Lost     int             `json:"lost"`
	Skipped  int             `json:"skipped,omitempty"` // bets left pending after an error
	Credited decimal.Decimal `json:"credited"`
	Balance  decimal.Decimal `json:"balance"`
}
