package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/evetabi/matchsim/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type boardRecorder struct {
	boards []domain.OddsBoard
}

func (r *boardRecorder) BroadcastOdds(b domain.OddsBoard) { r.boards = append(r.boards, b) }

func newOddsFixture(t *testing.T) (*service.OddsService, *events.Bus, *boardRecorder) {
	t.Helper()
	bus := events.NewBus(quietLogger())
	svc := service.NewOddsService(odds.NewEngine(odds.DefaultPrior(), odds.Options{}), quietLogger())
	rec := &boardRecorder{}
	svc.SetBroadcaster(rec)
	svc.Attach(bus)
	return svc, bus, rec
}

func header(id uuid.UUID) events.Header {
	return events.Header{MatchID: id, MatchNumber: 1, At: time.Now()}
}

var redWin = domain.OutcomeKey{Market: domain.Market1X2, Outcome: domain.OutcomeHomeWin}

func TestOddsService_PreMatchWindow(t *testing.T) {
	svc, bus, rec := newOddsFixture(t)
	id := uuid.New()

	bus.Publish(events.MatchStart{Header: header(id)})
	if _, err := svc.Offer(redWin); !errors.Is(err, domain.ErrMarketClosed) {
		t.Errorf("offer before window = %v, want ErrMarketClosed", err)
	}

	bus.Publish(events.BettingStart{Header: header(id), Half: 1, Seconds: 20})
	board := svc.Board()
	if !board.Open || board.Locked || board.Live || board.MatchID != id {
		t.Fatalf("board = %+v", board)
	}
	if len(board.Quotes) != 17 {
		t.Errorf("quotes = %d, want 17", len(board.Quotes))
	}

	offer, err := svc.Offer(redWin)
	if err != nil {
		t.Fatalf("Offer: %v", err)
	}
	if offer.MatchID != id || !offer.Quote.Odds.Equal(decimal.RequireFromString("2.78")) {
		t.Errorf("offer = %+v", offer)
	}

	bus.Publish(events.BettingClose{Header: header(id), Half: 1})
	bus.Publish(events.Kickoff{Header: header(id), Half: 1})
	if _, err := svc.Offer(redWin); !errors.Is(err, domain.ErrMarketClosed) {
		t.Errorf("offer after kickoff = %v, want ErrMarketClosed", err)
	}
	if b := svc.Board(); !b.Locked || b.Open {
		t.Errorf("board after kickoff: open=%v locked=%v", b.Open, b.Locked)
	}

	// Every change was pushed with an increasing version.
	for i := 1; i < len(rec.boards); i++ {
		if rec.boards[i].Version <= rec.boards[i-1].Version {
			t.Errorf("version did not increase: %d then %d", rec.boards[i-1].Version, rec.boards[i].Version)
		}
	}
}

func TestOddsService_HalftimeReprice(t *testing.T) {
	svc, bus, _ := newOddsFixture(t)
	id := uuid.New()
	bus.Publish(events.MatchStart{Header: header(id)})
	bus.Publish(events.BettingStart{Header: header(id), Half: 2, Seconds: 15, Score: domain.Score{Home: 2, Away: 1}})

	if !svc.Board().Live {
		t.Fatal("halftime board should be live")
	}
	cases := []struct {
		key  domain.OutcomeKey
		want error
	}{
		{redWin, nil},
		{domain.LineKey(domain.MarketTotalGoals, domain.SideOver, 3.5), nil},
		{domain.LineKey(domain.MarketTotalGoals, domain.SideOver, 2.5), domain.ErrOutcomeUnavailable},
		{domain.OutcomeKey{Market: domain.MarketBTTS, Outcome: domain.OutcomeNo}, domain.ErrOutcomeUnavailable},
		{domain.LineKey(domain.MarketFirstHalfGoals, domain.SideUnder, 0.5), domain.ErrOutcomeUnavailable},
		{domain.LineKey(domain.MarketTotalGoals, domain.SideOver, 4.5), domain.ErrUnknownOutcome},
		{domain.OutcomeKey{Market: "corners", Outcome: "over-9.5"}, domain.ErrUnknownMarket},
	}
	for _, tc := range cases {
		_, err := svc.Offer(tc.key)
		if tc.want == nil && err != nil {
			t.Errorf("Offer(%s) = %v", tc.key, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("Offer(%s) = %v, want %v", tc.key, err, tc.want)
		}
	}
}

func TestOddsService_RepriceIsDeterministic(t *testing.T) {
	svc, _, _ := newOddsFixture(t)
	h := header(uuid.New())
	score := domain.Score{Home: 0, Away: 1}

	svc.Reprice(h, 2, score)
	first := svc.Board()
	svc.Reprice(h, 2, score)
	second := svc.Board()

	for i := range first.Quotes {
		if !first.Quotes[i].Odds.Equal(second.Quotes[i].Odds) {
			t.Errorf("%s: %s then %s", first.Quotes[i].Key, first.Quotes[i].Odds, second.Quotes[i].Odds)
		}
	}
}

func TestOddsService_FulltimeCloses(t *testing.T) {
	svc, bus, _ := newOddsFixture(t)
	id := uuid.New()
	bus.Publish(events.BettingStart{Header: header(id), Half: 2})
	bus.Publish(events.Fulltime{Header: header(id)})
	if svc.Board().Accepting() {
		t.Error("board accepts bets after full time")
	}
}

type slowBoardCache struct {
	mu        sync.Mutex
	stored    []int
	published []int
}

func (c *slowBoardCache) StoreBoard(_ context.Context, b domain.OddsBoard) error {
	time.Sleep(time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = append(c.stored, b.Version)
	return nil
}

func (c *slowBoardCache) PublishBoard(_ context.Context, b domain.OddsBoard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, b.Version)
	return nil
}

func TestOddsService_CacheWritesInVersionOrder(t *testing.T) {
	svc, bus, _ := newOddsFixture(t)
	cache := &slowBoardCache{}
	svc.SetCache(cache)

	for i := 0; i < 4; i++ {
		id := uuid.New()
		bus.Publish(events.MatchStart{Header: header(id)})
		bus.Publish(events.BettingStart{Header: header(id), Half: 1})
		bus.Publish(events.BettingClose{Header: header(id), Half: 1})
		bus.Publish(events.Kickoff{Header: header(id), Half: 1})
		bus.Publish(events.Fulltime{Header: header(id)})
	}
	svc.Close()

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if len(cache.stored) == 0 || len(cache.stored) != len(cache.published) {
		t.Fatalf("stored %d versions, published %d", len(cache.stored), len(cache.published))
	}
	for i := range cache.stored {
		if cache.stored[i] != cache.published[i] {
			t.Errorf("write %d: SET v%d, PUBLISH v%d", i, cache.stored[i], cache.published[i])
		}
		if i > 0 && cache.stored[i] <= cache.stored[i-1] {
			t.Errorf("version %d written after %d", cache.stored[i], cache.stored[i-1])
		}
	}
	if last, want := cache.stored[len(cache.stored)-1], svc.Board().Version; last != want {
		t.Errorf("last cached version = %d, want %d", last, want)
	}

	// Versions after Close stay off the cache.
	bus.Publish(events.MatchStart{Header: header(uuid.New())})
	if n := len(cache.stored); cache.stored[n-1] == svc.Board().Version {
		t.Error("board cached after Close")
	}
}
