package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ledgerFixture struct {
	bets  *service.BetService
	odds  *service.OddsService
	bus   *events.Bus
	match uuid.UUID
}

// newLedger opens a pre-match window for a fresh match.
func newLedger(t *testing.T, balance int64) *ledgerFixture {
	t.Helper()
	bus := events.NewBus(quietLogger())
	oddsSvc := service.NewOddsService(odds.NewEngine(odds.DefaultPrior(), odds.Options{}), quietLogger())
	oddsSvc.Attach(bus)
	bets := service.NewBetService(oddsSvc, decimal.NewFromInt(balance), quietLogger())
	bets.Attach(bus)

	f := &ledgerFixture{bets: bets, odds: oddsSvc, bus: bus}
	f.startMatch()
	return f
}

func (f *ledgerFixture) startMatch() {
	f.match = uuid.New()
	f.bus.Publish(events.MatchStart{Header: header(f.match)})
	f.bus.Publish(events.BettingStart{Header: header(f.match), Half: 1, Seconds: 20})
}

func (f *ledgerFixture) kickoff() {
	f.bus.Publish(events.BettingClose{Header: header(f.match), Half: 1})
	f.bus.Publish(events.Kickoff{Header: header(f.match), Half: 1})
}

func stake(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func place(k domain.OutcomeKey, amount string) domain.PlaceBetRequest {
	return domain.PlaceBetRequest{Market: k.Market, Outcome: k.Outcome, Stake: stake(amount)}
}

func TestPlaceBet_FreezesOddsAndDebits(t *testing.T) {
	f := newLedger(t, 1000)

	bet, err := f.bets.PlaceBet(context.Background(), place(redWin, "100"))
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !bet.Odds.Equal(stake("2.78")) || !bet.PotentialReturn.Equal(stake("278")) {
		t.Errorf("odds=%s return=%s", bet.Odds, bet.PotentialReturn)
	}
	if bet.Status != domain.BetStatusPending || bet.MatchID != f.match || bet.Selection != "Red Win" {
		t.Errorf("bet = %+v", bet)
	}
	if !f.bets.Balance().Equal(stake("900")) {
		t.Errorf("balance = %s, want 900", f.bets.Balance())
	}

	// A later re-price does not touch the frozen odds.
	f.odds.Reprice(header(f.match), 2, domain.Score{Away: 3})
	got, err := f.bets.GetBet(bet.ID)
	if err != nil || !got.Odds.Equal(stake("2.78")) {
		t.Errorf("GetBet = %+v, %v", got, err)
	}
}

func TestPlaceBet_RejectionOrder(t *testing.T) {
	f := newLedger(t, 1000)
	f.kickoff() // window closed for every case below

	cases := []struct {
		name string
		req  domain.PlaceBetRequest
		want error
	}{
		{"zero stake", place(redWin, "0"), domain.ErrInvalidStake},
		{"negative stake", place(redWin, "-5"), domain.ErrInvalidStake},
		{"sub-cent stake", place(redWin, "1.005"), domain.ErrInvalidStake},
		{"above balance", place(redWin, "1000.01"), domain.ErrInsufficientBalance},
		{"closed window", place(redWin, "10"), domain.ErrMarketClosed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.bets.PlaceBet(context.Background(), tc.req); !errors.Is(err, tc.want) {
				t.Errorf("PlaceBet = %v, want %v", err, tc.want)
			}
		})
	}
	if !f.bets.Balance().Equal(stake("1000")) {
		t.Errorf("rejected bets moved the balance: %s", f.bets.Balance())
	}
}

func TestPlaceBet_UnknownAndUnavailableOutcomes(t *testing.T) {
	f := newLedger(t, 1000)
	f.bus.Publish(events.BettingStart{Header: header(f.match), Half: 2, Score: domain.Score{Home: 1, Away: 1}})

	_, err := f.bets.PlaceBet(context.Background(), place(domain.OutcomeKey{Market: domain.Market1X2, Outcome: "away"}, "10"))
	if !errors.Is(err, domain.ErrUnknownOutcome) {
		t.Errorf("unknown outcome = %v", err)
	}
	_, err = f.bets.PlaceBet(context.Background(), place(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeYes}, "10"))
	if !errors.Is(err, domain.ErrOutcomeUnavailable) {
		t.Errorf("decided outcome = %v", err)
	}
	if domain.ReasonCode(err) != "ERR_OUTCOME_UNAVAILABLE" {
		t.Errorf("reason code = %s", domain.ReasonCode(err))
	}
}

func TestSettle_CreditsWinnersOnce(t *testing.T) {
	f := newLedger(t, 1000)
	ctx := context.Background()
	won, _ := f.bets.PlaceBet(ctx, place(redWin, "100"))
	lost, _ := f.bets.PlaceBet(ctx, place(domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}, "50"))
	f.kickoff()

	result := domain.MatchResult{
		MatchID: f.match, Winner: domain.WinnerHome,
		HomeGoals: 2, AwayGoals: 1, TotalGoals: 3, BTTS: true,
	}
	f.bus.Publish(events.MatchEnd{Header: header(f.match), Result: result})

	if !f.bets.Balance().Equal(stake("1128")) { // 850 + 278
		t.Errorf("balance = %s, want 1128", f.bets.Balance())
	}
	if b, _ := f.bets.GetBet(won.ID); b.Status != domain.BetStatusWon || !b.Payout.Equal(stake("278")) {
		t.Errorf("winner = %+v", b)
	}
	if b, _ := f.bets.GetBet(lost.ID); b.Status != domain.BetStatusLost || !b.Payout.IsZero() {
		t.Errorf("loser = %+v", b)
	}

	// Duplicate delivery changes nothing.
	summary, err := f.bets.Settle(ctx, result)
	if err != nil || summary.Settled != 0 {
		t.Errorf("second Settle = %+v, %v", summary, err)
	}
	if !f.bets.Balance().Equal(stake("1128")) {
		t.Errorf("balance after duplicate = %s", f.bets.Balance())
	}
}

type summaryRecorder struct{ summaries []domain.SettlementSummary }

func (r *summaryRecorder) BroadcastSettlement(s domain.SettlementSummary) {
	r.summaries = append(r.summaries, s)
}

func TestSettle_SkipsUnresolvableBet(t *testing.T) {
	f := newLedger(t, 1000)
	rec := &summaryRecorder{}
	f.bets.SetBroadcaster(rec)
	ctx := context.Background()
	good, _ := f.bets.PlaceBet(ctx, place(redWin, "100"))
	bad, _ := f.bets.PlaceBet(ctx, place(redWin, "50"))
	f.bets.RekeyBet(bad.ID, domain.OutcomeKey{Market: "corners", Outcome: "over"})
	f.kickoff()

	result := domain.MatchResult{MatchID: f.match, Winner: domain.WinnerHome, HomeGoals: 1, TotalGoals: 1}
	summary, err := f.bets.Settle(ctx, result)
	if !errors.Is(err, domain.ErrUnknownMarket) {
		t.Errorf("Settle error = %v, want ErrUnknownMarket", err)
	}
	if summary.Settled != 1 || summary.Skipped != 1 || !summary.Credited.Equal(stake("278")) {
		t.Errorf("summary = %+v", summary)
	}
	if !f.bets.Balance().Equal(stake("1128")) { // 850 + 278
		t.Errorf("balance = %s, want 1128", f.bets.Balance())
	}
	if b, _ := f.bets.GetBet(good.ID); b.Status != domain.BetStatusWon {
		t.Errorf("good bet = %s, want won", b.Status)
	}
	if b, _ := f.bets.GetBet(bad.ID); !b.IsPending() {
		t.Errorf("bad bet = %s, want pending", b.Status)
	}
	if len(rec.summaries) != 1 || rec.summaries[0].Settled != 1 {
		t.Errorf("broadcasts = %+v", rec.summaries)
	}
}

func TestSettle_IgnoresOtherMatches(t *testing.T) {
	f := newLedger(t, 1000)
	_, _ = f.bets.PlaceBet(context.Background(), place(redWin, "10"))

	summary, _ := f.bets.Settle(context.Background(), domain.MatchResult{MatchID: uuid.New(), Winner: domain.WinnerHome})
	if summary.Settled != 0 {
		t.Errorf("settled %d bets of another match", summary.Settled)
	}
}

func TestVoidStale_RefundsAbandonedMatch(t *testing.T) {
	f := newLedger(t, 1000)
	bet, _ := f.bets.PlaceBet(context.Background(), place(redWin, "40"))

	f.startMatch()

	if !f.bets.Balance().Equal(stake("1000")) {
		t.Errorf("balance = %s, want the stake refunded", f.bets.Balance())
	}
	if b, _ := f.bets.GetBet(bet.ID); b.Status != domain.BetStatusVoid {
		t.Errorf("status = %s, want void", b.Status)
	}
}

func TestBets_NewestFirstAndPaged(t *testing.T) {
	f := newLedger(t, 1000)
	for _, s := range []string{"1", "2", "3"} {
		if _, err := f.bets.PlaceBet(context.Background(), place(redWin, s)); err != nil {
			t.Fatal(err)
		}
	}
	page := f.bets.Bets(2, 0)
	if len(page) != 2 || !page[0].Stake.Equal(stake("3")) || !page[1].Stake.Equal(stake("2")) {
		t.Errorf("page 1 = %v", page)
	}
	if page := f.bets.Bets(2, 2); len(page) != 1 || !page[0].Stake.Equal(stake("1")) {
		t.Errorf("page 2 = %v", page)
	}
	for _, offset := range []int{3, 1 << 40, -4} {
		if page := f.bets.Bets(4, offset); page == nil || len(page) != 0 {
			t.Errorf("Bets(4, %d) = %v, want empty", offset, page)
		}
	}
	if _, err := f.bets.GetBet(uuid.New()); !errors.Is(err, domain.ErrBetNotFound) {
		t.Errorf("GetBet(unknown) = %v", err)
	}
	if exp := f.bets.Exposure()[redWin]; !exp.Equal(stake("16.68")) { // 6 x 2.78
		t.Errorf("exposure = %s", exp)
	}
}
