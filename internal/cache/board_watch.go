package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
)

// boardFeed is the subset of OddsCache a BoardWatch reads from.
type boardFeed interface {
	LoadBoard(ctx context.Context) (domain.OddsBoard, bool, error)
	Follow(ctx context.Context, fn func(domain.OddsBoard)) error
}

// BoardWatch keeps the latest board seen on the odds channel in memory.
// LoadBoard serves from memory once a board has arrived and falls back to
// the cached key before that.
type BoardWatch struct {
	feed   boardFeed
	logger *slog.Logger

	mu    sync.RWMutex
	board domain.OddsBoard
	seen  bool
}

// NewBoardWatch creates a BoardWatch over feed.
func NewBoardWatch(feed boardFeed, logger *slog.Logger) *BoardWatch {
	return &BoardWatch{feed: feed, logger: logger}
}

// Run follows the odds channel until ctx is cancelled, resubscribing after a
// failed subscription.
func (w *BoardWatch) Run(ctx context.Context) {
	for {
		err := w.feed.Follow(ctx, w.observe)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Warn("board_watch: follow", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// observe keeps b unless an equal or newer version of the same match is held.
func (w *BoardWatch) observe(b domain.OddsBoard) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen && w.board.MatchID == b.MatchID && w.board.Version >= b.Version {
		return
	}
	w.board, w.seen = b, true
}

// LoadBoard returns the latest known board.
func (w *BoardWatch) LoadBoard(ctx context.Context) (domain.OddsBoard, bool, error) {
	w.mu.RLock()
	if w.seen {
		b := w.board.Clone()
		w.mu.RUnlock()
		return b, true, nil
	}
	w.mu.RUnlock()
	return w.feed.LoadBoard(ctx)
}
