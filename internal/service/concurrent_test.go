package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/shopspring/decimal"
)

// TestConcurrentBalanceDeduction places bets from many goroutines against a
// balance that covers only some of them.  Run with -race.
func TestConcurrentBalanceDeduction(t *testing.T) {
	const workers = 60
	const funded = 50 // balance covers exactly this many 10.00 stakes

	f := newLedger(t, funded*10)

	var placed, rejected int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bets.PlaceBet(context.Background(), place(redWin, "10"))
			switch {
			case err == nil:
				atomic.AddInt64(&placed, 1)
			case errors.Is(err, domain.ErrInsufficientBalance):
				atomic.AddInt64(&rejected, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if placed != funded || rejected != workers-funded {
		t.Errorf("placed=%d rejected=%d, want %d/%d", placed, rejected, funded, workers-funded)
	}
	if !f.bets.Balance().IsZero() {
		t.Errorf("final balance should be 0, got %s", f.bets.Balance())
	}
}

// TestConcurrentSettlementIsIdempotent settles the same result from many
// goroutines; the winning bet is credited once.
func TestConcurrentSettlementIsIdempotent(t *testing.T) {
	const workers = 20
	f := newLedger(t, 100)
	if _, err := f.bets.PlaceBet(context.Background(), place(redWin, "100")); err != nil {
		t.Fatal(err)
	}
	result := domain.MatchResult{MatchID: f.match, Winner: domain.WinnerHome, HomeGoals: 1, TotalGoals: 1}

	var settled int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, _ := f.bets.Settle(context.Background(), result)
			atomic.AddInt64(&settled, int64(s.Settled))
		}()
	}
	wg.Wait()

	if settled != 1 {
		t.Errorf("bet settled %d times, want 1", settled)
	}
	if !f.bets.Balance().Equal(decimal.NewFromInt(278)) {
		t.Errorf("balance = %s, want 278", f.bets.Balance())
	}
}
