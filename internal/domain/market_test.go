package domain_test

import (
	"errors"
	"testing"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/shopspring/decimal"
)

// ── Outcome keys ──────────────────────────────────────────────────────────────

func TestLineKey_RoundTrip(t *testing.T) {
	k := domain.LineKey(domain.MarketTotalGoals, domain.SideOver, 2.5)
	if k.Outcome != "over-2.5" {
		t.Fatalf("LineKey outcome = %q, want over-2.5", k.Outcome)
	}
	side, line, err := k.Line()
	if err != nil {
		t.Fatalf("Line() error: %v", err)
	}
	if side != domain.SideOver || line != 2.5 {
		t.Errorf("Line() = %s %v, want over 2.5", side, line)
	}
	if k.Label() != "Over 2.5" {
		t.Errorf("Label() = %q, want \"Over 2.5\"", k.Label())
	}
}

func TestOutcomeKey_Validate(t *testing.T) {
	cases := []struct {
		key     domain.OutcomeKey
		wantErr error
	}{
		{domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeHomeWin}, nil},
		{domain.OutcomeKey{Market: domain.Market1X2, Outcome: "over-2.5"}, domain.ErrUnknownOutcome},
		{domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}, nil},
		{domain.OutcomeKey{Market: domain.MarketTotalGoals, Outcome: "under-3.5"}, nil},
		{domain.OutcomeKey{Market: domain.MarketTotalGoals, Outcome: "sideways-3.5"}, domain.ErrUnknownOutcome},
		{domain.OutcomeKey{Market: domain.MarketFirstHalfGoals, Outcome: "over-abc"}, domain.ErrUnknownOutcome},
		{domain.OutcomeKey{Market: "corners", Outcome: "over-9.5"}, domain.ErrUnknownMarket},
	}
	for _, tc := range cases {
		err := tc.key.Validate()
		if tc.wantErr == nil && err != nil {
			t.Errorf("%s: unexpected error %v", tc.key, err)
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: error = %v, want %v", tc.key, err, tc.wantErr)
		}
	}
}

// ── Settlement predicates ─────────────────────────────────────────────────────

func TestOutcomeKey_Wins(t *testing.T) {
	// 2-1 home win, 1-0 at the break.
	r := domain.MatchResult{
		Winner:             domain.WinnerHome,
		HomeGoals:          2,
		AwayGoals:          1,
		TotalGoals:         3,
		FirstHalfHomeGoals: 1,
		FirstHalfGoals:     1,
		BTTS:               true,
	}

	cases := []struct {
		market  domain.MarketID
		outcome string
		want    bool
	}{
		{domain.Market1X2, domain.OutcomeHomeWin, true},
		{domain.Market1X2, domain.OutcomeDraw, false},
		{domain.Market1X2, domain.OutcomeAwayWin, false},
		{domain.MarketTotalGoals, "over-2.5", true},
		{domain.MarketTotalGoals, "under-2.5", false},
		{domain.MarketTotalGoals, "over-3.5", false},
		{domain.MarketTotalGoals, "under-3.5", true},
		{domain.MarketBTTS, domain.OutcomeYes, true},
		{domain.MarketBTTS, domain.OutcomeNo, false},
		{domain.MarketFirstHalfGoals, "over-0.5", true},
		{domain.MarketFirstHalfGoals, "over-1.5", false},
		{domain.MarketFirstHalfGoals, "under-1.5", true},
	}
	for _, tc := range cases {
		k := domain.OutcomeKey{Market: tc.market, Outcome: tc.outcome}
		got, err := k.Wins(r)
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}
		if got != tc.want {
			t.Errorf("%s.Wins(2-1) = %v, want %v", k, got, tc.want)
		}
	}
}

func TestOutcomeKey_Wins_Draw(t *testing.T) {
	r := domain.MatchResult{Winner: domain.WinnerDraw}
	k := domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeDraw}
	if won, _ := k.Wins(r); !won {
		t.Error("draw outcome should win a drawn match")
	}
	btts := domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}
	if won, _ := btts.Wins(r); !won {
		t.Error("btts/no should win a goalless draw")
	}
}

// ── Board lookups ─────────────────────────────────────────────────────────────

func TestOddsBoard_FindAndAccepting(t *testing.T) {
	k := domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}
	b := domain.OddsBoard{
		Open: true,
		Quotes: []domain.Quote{
			{Key: k, Odds: decimal.NewFromFloat(2.1), Available: true},
		},
	}
	q, ok := b.Find(k)
	if !ok || !q.Odds.Equal(decimal.NewFromFloat(2.1)) {
		t.Errorf("Find(%s) = %v, %v", k, q, ok)
	}
	if _, ok := b.Find(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}); ok {
		t.Error("Find should miss an outcome that is not on the board")
	}
	if !b.Accepting() {
		t.Error("open, unlocked board should accept bets")
	}
	b.Locked = true
	if b.Accepting() {
		t.Error("locked board must not accept bets")
	}

	c := b.Clone()
	c.Quotes[0].Available = false
	if !b.Quotes[0].Available {
		t.Error("Clone must not share the quote slice")
	}
}

func TestOddsBoard_MethodsOnReturnedValue(t *testing.T) {
	board := func() domain.OddsBoard {
		return domain.OddsBoard{Open: true, Quotes: []domain.Quote{{Key: domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}}}}
	}
	if !board().Accepting() {
		t.Error("open board returned by value should accept bets")
	}
	if _, ok := board().Find(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}); !ok {
		t.Error("Find on a returned board missed a priced outcome")
	}
	if len(board().Clone().Quotes) != 1 {
		t.Error("Clone on a returned board dropped quotes")
	}
}

func TestReasonCode(t *testing.T) {
	if got := domain.ReasonCode(domain.ErrInsufficientBalance); got != "ERR_INSUFFICIENT_BALANCE" {
		t.Errorf("ReasonCode(ErrInsufficientBalance) = %s", got)
	}
	wrapped := errors.Join(errors.New("ctx"), domain.ErrMarketClosed)
	if got := domain.ReasonCode(wrapped); got != "ERR_MARKET_CLOSED" {
		t.Errorf("ReasonCode(wrapped closed) = %s", got)
	}
	if got := domain.ReasonCode(errors.New("boom")); got != "ERR_INTERNAL" {
		t.Errorf("ReasonCode(unknown) = %s, want ERR_INTERNAL", got)
	}
	if !domain.IsConflict(domain.ErrMarketClosed) || domain.IsConflict(domain.ErrInvalidStake) {
		t.Error("IsConflict classification is wrong")
	}
}
