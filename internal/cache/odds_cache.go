package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/redis/go-redis/v9"
)

// keyBoard holds the latest board version.
const keyBoard = "odds:board:current"

// OddsCache stores the current odds board and publishes every version on a
// channel so other processes can follow the board without polling.
type OddsCache struct {
	rdb     *redis.Client
	channel string
	ttl     time.Duration
}

// NewOddsCache creates an OddsCache publishing on channel.
func NewOddsCache(rdb *redis.Client, channel string, ttl time.Duration) *OddsCache {
	return &OddsCache{rdb: rdb, channel: channel, ttl: ttl}
}

// StoreBoard overwrites the cached board.
func (c *OddsCache) StoreBoard(ctx context.Context, board domain.OddsBoard) error {
	b, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("odds_cache.StoreBoard: marshal: %w", err)
	}
	if err := c.rdb.Set(ctx, keyBoard, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("odds_cache.StoreBoard: %w", err)
	}
	return nil
}

// PublishBoard announces a board version on the odds channel.
func (c *OddsCache) PublishBoard(ctx context.Context, board domain.OddsBoard) error {
	b, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("odds_cache.PublishBoard: marshal: %w", err)
	}
	if err := c.rdb.Publish(ctx, c.channel, b).Err(); err != nil {
		return fmt.Errorf("odds_cache.PublishBoard: %w", err)
	}
	return nil
}

// LoadBoard returns the cached board.  ok is false when nothing is cached.
func (c *OddsCache) LoadBoard(ctx context.Context) (board domain.OddsBoard, ok bool, err error) {
	b, err := c.rdb.Get(ctx, keyBoard).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.OddsBoard{}, false, nil
	}
	if err != nil {
		return domain.OddsBoard{}, false, fmt.Errorf("odds_cache.LoadBoard: %w", err)
	}
	if err := json.Unmarshal(b, &board); err != nil {
		return domain.OddsBoard{}, false, fmt.Errorf("odds_cache.LoadBoard: unmarshal: %w", err)
	}
	return board, true, nil
}

// Follow calls fn with every board published on the odds channel until ctx
// is cancelled.  Malformed payloads are skipped.
func (c *OddsCache) Follow(ctx context.Context, fn func(domain.OddsBoard)) error {
	sub := c.rdb.Subscribe(ctx, c.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("odds_cache.Follow: subscribe %s: %w", c.channel, err)
	}
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, open := <-ch:
			if !open {
				return nil
			}
			var board domain.OddsBoard
			if err := json.Unmarshal([]byte(msg.Payload), &board); err != nil {
				continue
			}
			fn(board)
		}
	}
}
