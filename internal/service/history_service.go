package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/events"
	"github.com/evetabi/matchsim/internal/export"
	"github.com/evetabi/matchsim/internal/odds"
	"github.com/google/uuid"
)

// MatchArchive persists completed matches.  Implemented by
// repository.MatchRepository.
type MatchArchive interface {
	Insert(ctx context.Context, r domain.MatchRecord) error
}

// HistoryService keeps every completed match of the session.
type HistoryService struct {
	logger *slog.Logger

	mu      sync.RWMutex
	records []domain.MatchRecord
	seen    map[uuid.UUID]struct{}

	archive MatchArchive // optional
}

// NewHistoryService creates an empty history.
func NewHistoryService(logger *slog.Logger) *HistoryService {
	return &HistoryService{logger: logger, seen: make(map[uuid.UUID]struct{})}
}

// SetArchive injects the repository dependency post-construction.
func (s *HistoryService) SetArchive(a MatchArchive) { s.archive = a }

// Attach records every MatchEnd.
func (s *HistoryService) Attach(bus *events.Bus) (detach func()) {
	return bus.Subscribe(events.KindMatchEnd, func(e events.Event) {
		s.Record(context.Background(), e.(events.MatchEnd).Record)
	})
}

// Record stores r once per match id and reports whether it was new.
func (s *HistoryService) Record(ctx context.Context, r domain.MatchRecord) bool {
	s.mu.Lock()
	if _, dup := s.seen[r.MatchID]; dup {
		s.mu.Unlock()
		return false
	}
	s.seen[r.MatchID] = struct{}{}
	s.records = append(s.records, r)
	s.mu.Unlock()

	if s.archive != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
			defer cancel()
			if err := s.archive.Insert(ctx, r); err != nil {
				s.logger.Warn("history_service: archive match", "match_id", r.MatchID, "err", err)
			}
		}()
	}
	return true
}

// Records returns the completed matches in play order.
func (s *HistoryService) Records() []domain.MatchRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MatchRecord(nil), s.records...)
}

// Summary aggregates the session's matches into frequency tables comparable
// with the pricing prior.
func (s *HistoryService) Summary() odds.Historical {
	var h odds.Historical
	for _, r := range s.Records() {
		h.Observe(r.HomeGoals, r.AwayGoals, r.FirstHalfHomeGoals, r.FirstHalfAwayGoals)
	}
	h.Finalize()
	return h
}

// WriteCSV exports the session's matches.
func (s *HistoryService) WriteCSV(w io.Writer) error {
	if err := export.WriteCSV(w, s.Records()); err != nil {
		return fmt.Errorf("history_service.WriteCSV: %w", err)
	}
	return nil
}
