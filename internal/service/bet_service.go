package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into BetService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Quoter is the minimal interface BetService needs from OddsService.
type Quoter interface {
	Offer(k domain.OutcomeKey) (Offer, error)
}

// BetArchive persists bets.  Implemented by repository.BetRepository.
type BetArchive interface {
	Upsert(ctx context.Context, b *domain.Bet) error
}

// BetObserver counts placements and payouts.  Implemented by metrics.Collector.
type BetObserver interface {
	BetPlaced(b *domain.Bet)
	BetSettled(b *domain.Bet)
}

// SettlementBroadcaster pushes settlement summaries to connected clients.
// Implemented by ws.Hub.
type SettlementBroadcaster interface {
	BroadcastSettlement(summary domain.SettlementSummary)
}

// archiveTimeout bounds one archive write.
const archiveTimeout = 5 * time.Second

// ──────────────────────────────────────────────────────────────────────────────
// BetService
// ──────────────────────────────────────────────────────────────────────────────

// BetService is the single-balance bet ledger.  All money movement happens
// under one mutex, so the balance never goes negative and every bet is
// settled at most once.
type BetService struct {
	quoter   Quoter
	maxStake decimal.Decimal // zero = no limit beyond the balance
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	balance decimal.Decimal
	bets    []*domain.Bet
	byID    map[uuid.UUID]*domain.Bet

	archive     BetArchive            // optional, injected when Postgres is configured
	observer    BetObserver           // optional
	broadcaster SettlementBroadcaster // optional
}

// NewBetService creates a ledger holding startingBalance.
func NewBetService(quoter Quoter, startingBalance decimal.Decimal, logger *slog.Logger) *BetService {
	return &BetService{
		quoter:  quoter,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		balance: startingBalance,
		byID:    make(map[uuid.UUID]*domain.Bet),
	}
}

// SetMaxStake caps a single stake.  Zero removes the cap.
func (s *BetService) SetMaxStake(limit decimal.Decimal) { s.maxStake = limit }

// SetArchive injects the repository dependency post-construction.
func (s *BetService) SetArchive(a BetArchive) { s.archive = a }

// SetObserver injects the metrics dependency post-construction.
func (s *BetService) SetObserver(o BetObserver) { s.observer = o }

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *BetService) SetBroadcaster(b SettlementBroadcaster) { s.broadcaster = b }

// Attach subscribes the ledger to match start (voiding bets on abandoned
// matches) and match end (settlement).
func (s *BetService) Attach(bus *events.Bus) (detach func()) {
	unsubStart := bus.Subscribe(events.KindMatchStart, func(e events.Event) {
		s.VoidStale(context.Background(), events.HeaderOf(e).MatchID)
	})
	unsubEnd := bus.Subscribe(events.KindMatchEnd, func(e events.Event) {
		end := e.(events.MatchEnd)
		if _, err := s.Settle(context.Background(), end.Result); err != nil {
			s.logger.Error("bet_service: settlement failed", "match_id", end.MatchID, "err", err)
		}
	})
	return func() {
		unsubStart()
		unsubEnd()
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBet
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBet validates the request, debits the stake and records a pending bet
// with the quoted odds frozen.  Checks run in a fixed order: stake, balance,
// window, outcome.
func (s *BetService) PlaceBet(ctx context.Context, req domain.PlaceBetRequest) (*domain.Bet, error) {
	// ── 1. Stake validation ──────────────────────────────────────────────────
	if !req.Stake.IsPositive() || !req.Stake.Equal(req.Stake.Round(2)) {
		return nil, domain.ErrInvalidStake
	}
	if s.maxStake.IsPositive() && req.Stake.GreaterThan(s.maxStake) {
		return nil, fmt.Errorf("bet_service.PlaceBet: stake above %s: %w", s.maxStake, domain.ErrInvalidStake)
	}

	s.mu.Lock()

	// ── 2. Balance ───────────────────────────────────────────────────────────
	if req.Stake.GreaterThan(s.balance) {
		s.mu.Unlock()
		return nil, domain.ErrInsufficientBalance
	}

	// ── 3. Window and outcome ────────────────────────────────────────────────
	offer, err := s.quoter.Offer(req.Key())
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("bet_service.PlaceBet: quote: %w", err)
	}

	// ── 4. Debit and record ──────────────────────────────────────────────────
	bet := domain.NewBet(offer.MatchID, offer.MatchNumber, offer.Quote, req.Stake, s.now())
	s.balance = s.balance.Sub(req.Stake)
	s.bets = append(s.bets, bet)
	s.byID[bet.ID] = bet
	saved := *bet
	balance := s.balance
	s.mu.Unlock()

	s.logger.Info("bet placed",
		"bet_id", bet.ID,
		"match_id", bet.MatchID,
		"outcome", bet.Key().String(),
		"odds", bet.Odds.String(),
		"stake", bet.Stake.String(),
		"balance", balance.String(),
	)
	if s.observer != nil {
		s.observer.BetPlaced(&saved)
	}
	s.persist(ctx, []domain.Bet{saved})
	return &saved, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────────────────────────────────

// Settle resolves every pending bet of result's match.  Bets that are no
// longer pending are skipped, so repeated calls change nothing.  A bet that
// cannot be resolved stays pending and is counted in Skipped; the others are
// still credited, persisted and broadcast, and the joined per-bet errors are
// returned.
func (s *BetService) Settle(ctx context.Context, result domain.MatchResult) (domain.SettlementSummary, error) {
	now := s.now()
	summary := domain.SettlementSummary{MatchID: result.MatchID, Credited: decimal.Zero}

	s.mu.Lock()
	var (
		changed []domain.Bet
		errs    []error
	)
	for _, b := range s.bets {
		if b.MatchID != result.MatchID || !b.IsPending() {
			continue
		}
		credit, err := b.Settle(result, now)
		if err != nil {
			s.logger.Warn("bet_service: bet not settled",
				"bet_id", b.ID,
				"outcome", b.Key().String(),
				"err", err,
			)
			summary.Skipped++
			errs = append(errs, fmt.Errorf("bet %s: %w", b.ID, err))
			continue
		}
		s.balance = s.balance.Add(credit)
		summary.Settled++
		summary.Credited = summary.Credited.Add(credit)
		if b.Status == domain.BetStatusWon {
			summary.Won++
		} else {
			summary.Lost++
		}
		changed = append(changed, *b)
	}
	summary.Balance = s.balance
	s.mu.Unlock()

	var err error
	if len(errs) > 0 {
		err = fmt.Errorf("bet_service.Settle: %w", errors.Join(errs...))
	}
	if summary.Settled == 0 {
		return summary, err
	}
	s.logger.Info("bets settled",
		"match_id", result.MatchID,
		"settled", summary.Settled,
		"won", summary.Won,
		"lost", summary.Lost,
		"skipped", summary.Skipped,
		"credited", summary.Credited.String(),
		"balance", summary.Balance.String(),
	)
	if s.observer != nil {
		for i := range changed {
			s.observer.BetSettled(&changed[i])
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastSettlement(summary)
	}
	s.persist(ctx, changed)
	return summary, err
}

// VoidStale refunds every pending bet that does not belong to current.  It
// runs when a match starts, so bets on an abandoned match are returned.
func (s *BetService) VoidStale(ctx context.Context, current uuid.UUID) int {
	now := s.now()

	s.mu.Lock()
	var changed []domain.Bet
	for _, b := range s.bets {
		if b.MatchID == current || !b.IsPending() {
			continue
		}
		refund, err := b.Void(now)
		if err != nil {
			continue
		}
		s.balance = s.balance.Add(refund)
		changed = append(changed, *b)
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.logger.Info("bets voided", "count", len(changed))
		s.persist(ctx, changed)
	}
	return len(changed)
}

// persist writes bets to the archive without holding up the caller.
func (s *BetService) persist(ctx context.Context, bets []domain.Bet) {
	if s.archive == nil || len(bets) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		for i := range bets {
			if err := s.archive.Upsert(ctx, &bets[i]); err != nil {
				s.logger.Warn("bet_service: archive bet", "bet_id", bets[i].ID, "err", err)
			}
		}
	}()
}

// ──────────────────────────────────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────────────────────────────────

// Balance returns the current balance.
func (s *BetService) Balance() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Bets returns copies of every bet, newest first.  limit <= 0 returns all.
func (s *BetService) Bets(limit, offset int) []domain.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()

	if offset < 0 || offset >= len(s.bets) {
		return []domain.Bet{}
	}
	out := make([]domain.Bet, 0, len(s.bets)-offset)
	for i := len(s.bets) - 1 - offset; i >= 0; i-- {
		out = append(out, *s.bets[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// GetBet returns a copy of the bet with the given id.
func (s *BetService) GetBet(id uuid.UUID) (domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return domain.Bet{}, domain.ErrBetNotFound
	}
	return *b, nil
}

// Exposure sums the potential return of pending bets per outcome.
func (s *BetService) Exposure() map[domain.OutcomeKey]decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.OutcomeKey]decimal.Decimal)
	for _, b := range s.bets {
		if b.IsPending() {
			out[b.Key()] = out[b.Key()].Add(b.PotentialReturn)
		}
	}
	return out
}
