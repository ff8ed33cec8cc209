package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func homeWinQuote(odds string) domain.Quote {
	return domain.Quote{
		Key:       domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeHomeWin},
		Label:     "Red Win",
		Odds:      decimal.RequireFromString(odds),
		Available: true,
	}
}

// ── Bet payout math ───────────────────────────────────────────────────────────

func TestNewBet_FreezesOddsAndReturn(t *testing.T) {
	q := homeWinQuote("2.78")
	b := domain.NewBet(uuid.New(), 1, q, decimal.NewFromInt(100), time.Now())

	want := decimal.RequireFromString("278")
	if !b.PotentialReturn.Equal(want) {
		t.Errorf("PotentialReturn = %s, want %s", b.PotentialReturn, want)
	}
	if b.Status != domain.BetStatusPending {
		t.Errorf("new bet status = %s, want pending", b.Status)
	}

	// Re-pricing the quote afterwards must not leak into the bet.
	q.Odds = decimal.RequireFromString("1.50")
	if !b.Odds.Equal(decimal.RequireFromString("2.78")) {
		t.Errorf("bet odds changed after re-price: %s", b.Odds)
	}
}

func TestBet_Settle_WonCreditsStakeTimesOdds(t *testing.T) {
	b := domain.NewBet(uuid.New(), 1, homeWinQuote("2.50"), decimal.NewFromInt(40), time.Now())
	credit, err := b.Settle(domain.MatchResult{Winner: domain.WinnerHome}, time.Now())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !credit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("credit = %s, want 100", credit)
	}
	if b.Status != domain.BetStatusWon || b.Payout == nil || !b.Payout.Equal(credit) {
		t.Errorf("bet after win: status=%s payout=%v", b.Status, b.Payout)
	}
}

func TestBet_Settle_Lost(t *testing.T) {
	b := domain.NewBet(uuid.New(), 1, homeWinQuote("2.50"), decimal.NewFromInt(40), time.Now())
	credit, err := b.Settle(domain.MatchResult{Winner: domain.WinnerAway}, time.Now())
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if !credit.IsZero() {
		t.Errorf("lost bet credit = %s, want 0", credit)
	}
	if b.Status != domain.BetStatusLost {
		t.Errorf("status = %s, want lost", b.Status)
	}
}

func TestBet_Settle_OnlyOnce(t *testing.T) {
	b := domain.NewBet(uuid.New(), 1, homeWinQuote("3.00"), decimal.NewFromInt(10), time.Now())
	r := domain.MatchResult{Winner: domain.WinnerHome}

	if _, err := b.Settle(r, time.Now()); err != nil {
		t.Fatalf("first Settle: %v", err)
	}
	credit, err := b.Settle(r, time.Now())
	if !errors.Is(err, domain.ErrBetAlreadySettled) {
		t.Errorf("second Settle error = %v, want ErrBetAlreadySettled", err)
	}
	if !credit.IsZero() {
		t.Errorf("second Settle credited %s, want 0", credit)
	}
}
