package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into OddsService
// ──────────────────────────────────────────────────────────────────────────────

// BoardCache stores and fans out board versions.  Implemented by
// cache.OddsCache.
type BoardCache interface {
	StoreBoard(ctx context.Context, board domain.OddsBoard) error
	PublishBoard(ctx context.Context, board domain.OddsBoard) error
}

// BoardBroadcaster pushes board versions to connected clients.  Implemented
// by ws.Hub.
type BoardBroadcaster interface {
	BroadcastOdds(board domain.OddsBoard)
}

// RepriceObserver counts re-pricing passes.  Implemented by metrics.Collector.
type RepriceObserver interface {
	ObserveReprice(live bool)
}

// fanOutTimeout bounds one cache round trip.
const fanOutTimeout = 2 * time.Second

// cacheQueueSize bounds the board versions waiting for Redis.
const cacheQueueSize = 64

// Offer is a quote together with the match it belongs to.
type Offer struct {
	MatchID     uuid.UUID
	MatchNumber int
	Quote       domain.Quote
}

// ──────────────────────────────────────────────────────────────────────────────
// OddsService
// ──────────────────────────────────────────────────────────────────────────────

// OddsService keeps the odds board of the match in play.  It is driven by
// lifecycle events: a window opening re-prices the board, a kickoff locks it,
// and the window closing or full time closes it.
type OddsService struct {
	engine *odds.Engine
	logger *slog.Logger

	mu    sync.RWMutex
	board domain.OddsBoard

	broadcaster BoardBroadcaster // optional
	observer    RepriceObserver  // optional

	// Board versions reach Redis through a single writer so SET and PUBLISH
	// follow version order.
	qmu       sync.Mutex
	cacheQ    chan domain.OddsBoard
	cacheDone chan struct{}
}

// NewOddsService creates an OddsService with an empty, closed board.
func NewOddsService(engine *odds.Engine, logger *slog.Logger) *OddsService {
	return &OddsService{
		engine: engine,
		logger: logger,
		board:  domain.OddsBoard{Quotes: []domain.Quote{}, Locked: true},
	}
}

// SetCache injects the Redis dependency post-construction and starts the
// writer that drains board versions into it.  Call Close to stop it.
func (s *OddsService) SetCache(c BoardCache) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.cacheQ != nil {
		return
	}
	s.cacheQ = make(chan domain.OddsBoard, cacheQueueSize)
	s.cacheDone = make(chan struct{})
	go s.writeBoards(c, s.cacheQ, s.cacheDone)
}

// Close stops the cache writer after the queued versions are written.
func (s *OddsService) Close() {
	s.qmu.Lock()
	q, done := s.cacheQ, s.cacheDone
	s.cacheQ = nil
	s.qmu.Unlock()
	if q == nil {
		return
	}
	close(q)
	<-done
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *OddsService) SetBroadcaster(b BoardBroadcaster) { s.broadcaster = b }

// SetObserver injects the metrics dependency post-construction.
func (s *OddsService) SetObserver(o RepriceObserver) { s.observer = o }

// Engine returns the pricing engine.
func (s *OddsService) Engine() *odds.Engine { return s.engine }

// Attach subscribes the board to the lifecycle events it reacts to.
func (s *OddsService) Attach(bus *events.Bus) (detach func()) {
	unsubs := []func(){
		bus.Subscribe(events.KindMatchStart, func(e events.Event) {
			s.reset(events.HeaderOf(e))
		}),
		bus.Subscribe(events.KindBettingStart, func(e events.Event) {
			bs := e.(events.BettingStart)
			s.Reprice(bs.Header, bs.Half, bs.Score)
		}),
		bus.Subscribe(events.KindBettingClose, func(e events.Event) {
			s.update(func(b *domain.OddsBoard) { b.Open = false })
		}),
		bus.Subscribe(events.KindKickoff, func(e events.Event) {
			s.update(func(b *domain.OddsBoard) { b.Open, b.Locked = false, true })
		}),
		bus.Subscribe(events.KindFulltime, func(e events.Event) {
			s.update(func(b *domain.OddsBoard) { b.Open, b.Locked = false, true })
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Board mutation
// ──────────────────────────────────────────────────────────────────────────────

func (s *OddsService) reset(h events.Header) {
	s.mu.Lock()
	s.board = domain.OddsBoard{
		MatchID:     h.MatchID,
		MatchNumber: h.MatchNumber,
		Locked:      true,
		Version:     s.board.Version + 1,
		Quotes:      []domain.Quote{},
		UpdatedAt:   h.At,
	}
	board := s.board.Clone()
	s.mu.Unlock()
	s.fanOut(board)
}

// Reprice rebuilds every quote and opens the board.  Half 1 prices from the
// historical prior; half 2 prices the remaining goals from score.  The result
// depends only on its inputs, so a repeated event re-publishes the same
// prices.
func (s *OddsService) Reprice(h events.Header, half int, score domain.Score) {
	live := half > 1
	var sels []odds.Selection
	if live {
		sels = s.engine.Live(score)
	} else {
		sels = s.engine.PreMatch()
	}
	quotes := quotesOf(sels)

	s.mu.Lock()
	s.board = domain.OddsBoard{
		MatchID:     h.MatchID,
		MatchNumber: h.MatchNumber,
		Live:        live,
		Open:        true,
		Locked:      false,
		Version:     s.board.Version + 1,
		Quotes:      quotes,
		UpdatedAt:   h.At,
	}
	board := s.board.Clone()
	s.mu.Unlock()

	s.logger.Info("odds board repriced",
		"match_id", h.MatchID,
		"live", live,
		"quotes", len(quotes),
		"version", board.Version,
	)
	if s.observer != nil {
		s.observer.ObserveReprice(live)
	}
	s.fanOut(board)
}

func (s *OddsService) update(fn func(b *domain.OddsBoard)) {
	s.mu.Lock()
	fn(&s.board)
	s.board.Version++
	s.board.UpdatedAt = time.Now().UTC()
	board := s.board.Clone()
	s.mu.Unlock()
	s.fanOut(board)
}

// fanOut pushes a board version to the hub and queues it for the Redis
// writer.  A full queue drops the version; a later one supersedes it.
func (s *OddsService) fanOut(board domain.OddsBoard) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastOdds(board)
	}
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if s.cacheQ == nil {
		return
	}
	select {
	case s.cacheQ <- board:
	default:
		s.logger.Warn("odds_service: cache queue full, dropping board", "version", board.Version)
	}
}

// writeBoards stores and publishes queued versions one at a time.  Versions
// can be queued out of order by concurrent callers; anything not newer than
// the last written version is skipped.
func (s *OddsService) writeBoards(c BoardCache, q <-chan domain.OddsBoard, done chan<- struct{}) {
	defer close(done)
	last := -1
	for board := range q {
		if board.Version <= last {
			continue
		}
		last = board.Version
		ctx, cancel := context.WithTimeout(context.Background(), fanOutTimeout)
		if err := c.StoreBoard(ctx, board); err != nil {
			s.logger.Warn("odds_service: cache board", "err", err)
		}
		if err := c.PublishBoard(ctx, board); err != nil {
			s.logger.Warn("odds_service: publish board", "err", err)
		}
		cancel()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// Board returns a copy of the current board.
func (s *OddsService) Board() domain.OddsBoard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board.Clone()
}

// Offer returns the bettable quote for k.  Errors, in order: ErrMarketClosed
// when the board is not accepting, ErrUnknownMarket / ErrUnknownOutcome for
// keys the board does not price, ErrOutcomeUnavailable for decided, closed
// or ceiling-capped outcomes.
func (s *OddsService) Offer(k domain.OutcomeKey) (Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.board.Accepting() {
		return Offer{}, domain.ErrMarketClosed
	}
	if err := k.Validate(); err != nil {
		return Offer{}, fmt.Errorf("odds_service.Offer: %w", err)
	}
	q, ok := s.board.Find(k)
	if !ok {
		return Offer{}, fmt.Errorf("odds_service.Offer: %s: %w", k, domain.ErrUnknownOutcome)
	}
	if !q.Available {
		return Offer{}, fmt.Errorf("odds_service.Offer: %s (%s): %w", k, q.Reason, domain.ErrOutcomeUnavailable)
	}
	return Offer{MatchID: s.board.MatchID, MatchNumber: s.board.MatchNumber, Quote: q}, nil
}
