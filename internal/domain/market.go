package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// MarketID identifies a wagering category.
type MarketID string

const (
	Market1X2            MarketID = "1x2"
	MarketTotalGoals     MarketID = "total-goals"
	MarketBTTS           MarketID = "btts"
	MarketFirstHalfGoals MarketID = "fh-goals"
)

// IsValid returns true for the markets the board prices.
func (m MarketID) IsValid() bool {
	switch m {
	case Market1X2, MarketTotalGoals, MarketBTTS, MarketFirstHalfGoals:
		return true
	}
	return false
}

// Name returns the display name of the market.
func (m MarketID) Name() string {
	switch m {
	case Market1X2:
		return "Match Result"
	case MarketTotalGoals:
		return "Total Goals"
	case MarketBTTS:
		return "Both Teams to Score"
	case MarketFirstHalfGoals:
		return "First Half Goals"
	}
	return string(m)
}

// Outcome identifiers for the fixed-outcome markets.  Goal-line outcomes are
// built with LineOutcome ("over-2.5", "under-0.5", ...).
const (
	OutcomeHomeWin = "red-win"
	OutcomeDraw    = "draw"
	OutcomeAwayWin = "blue-win"
	OutcomeYes     = "yes"
	OutcomeNo      = "no"

	SideOver  = "over"
	SideUnder = "under"
)

// Reasons a quote is not available for betting.
const (
	ReasonDecided = "decided" // already determined by the current score
	ReasonClosed  = "closed"  // outcome window has passed
	ReasonCeiling = "ceiling" // odd above the sanity ceiling
)

// ──────────────────────────────────────────────────────────────────────────────
// OutcomeKey
// ──────────────────────────────────────────────────────────────────────────────

// OutcomeKey is the immutable (market, outcome) pair a bet is placed on.
type OutcomeKey struct {
	Market  MarketID `json:"market"`
	Outcome string   `json:"outcome"`
}

// LineKey builds the key of a goal-line outcome such as total-goals/over-2.5.
func LineKey(m MarketID, side string, line float64) OutcomeKey {
	return OutcomeKey{Market: m, Outcome: side + "-" + strconv.FormatFloat(line, 'f', -1, 64)}
}

// String returns "market/outcome".
func (k OutcomeKey) String() string {
	return string(k.Market) + "/" + k.Outcome
}

// Line parses a goal-line outcome into its side and line.
func (k OutcomeKey) Line() (side string, line float64, err error) {
	side, raw, ok := strings.Cut(k.Outcome, "-")
	if !ok || (side != SideOver && side != SideUnder) {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownOutcome, k)
	}
	line, err = strconv.ParseFloat(raw, 64)
	if err != nil || line < 0 {
		return "", 0, fmt.Errorf("%w: %s", ErrUnknownOutcome, k)
	}
	return side, line, nil
}

// Validate checks that the key names a known market and a well-formed outcome.
func (k OutcomeKey) Validate() error {
	switch k.Market {
	case Market1X2:
		switch k.Outcome {
		case OutcomeHomeWin, OutcomeDraw, OutcomeAwayWin:
			return nil
		}
	case MarketBTTS:
		switch k.Outcome {
		case OutcomeYes, OutcomeNo:
			return nil
		}
	case MarketTotalGoals, MarketFirstHalfGoals:
		_, _, err := k.Line()
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMarket, k.Market)
	}
	return fmt.Errorf("%w: %s", ErrUnknownOutcome, k)
}

// Wins evaluates the settlement predicate of the outcome against a final
// result.
func (k OutcomeKey) Wins(r MatchResult) (bool, error) {
	if err := k.Validate(); err != nil {
		return false, err
	}
	switch k.Market {
	case Market1X2:
		switch k.Outcome {
		case OutcomeHomeWin:
			return r.Winner == WinnerHome, nil
		case OutcomeAwayWin:
			return r.Winner == WinnerAway, nil
		default:
			return r.Winner == WinnerDraw, nil
		}
	case MarketBTTS:
		return r.BTTS == (k.Outcome == OutcomeYes), nil
	case MarketTotalGoals:
		return k.beatsLine(float64(r.TotalGoals)), nil
	default: // MarketFirstHalfGoals
		return k.beatsLine(float64(r.FirstHalfGoals)), nil
	}
}

// beatsLine assumes the key was validated.
func (k OutcomeKey) beatsLine(goals float64) bool {
	side, line, _ := k.Line()
	if side == SideOver {
		return goals > line
	}
	return goals < line
}

// Label returns the selection text shown next to an odd.
func (k OutcomeKey) Label() string {
	switch k.Outcome {
	case OutcomeHomeWin:
		return "Red Win"
	case OutcomeAwayWin:
		return "Blue Win"
	case OutcomeDraw:
		return "Draw"
	case OutcomeYes:
		return "Yes"
	case OutcomeNo:
		return "No"
	}
	if side, line, err := k.Line(); err == nil {
		return fmt.Sprintf("%s%s %s", strings.ToUpper(side[:1]), side[1:], strconv.FormatFloat(line, 'f', -1, 64))
	}
	return k.Outcome
}

// ──────────────────────────────────────────────────────────────────────────────
// Quote & board
// ──────────────────────────────────────────────────────────────────────────────

// Quote is the current price of one outcome.
type Quote struct {
	Key         OutcomeKey      `json:"key"`
	Label       string          `json:"label"`
	Probability float64         `json:"probability"`
	Odds        decimal.Decimal `json:"odds"`
	Available   bool            `json:"available"`
	Reason      string          `json:"reason,omitempty"`
}

// OddsBoard is the full set of quotes for the match in play.  Quotes are
// recomputed on every re-price and never carried across matches.
type OddsBoard struct {
	MatchID     uuid.UUID `json:"match_id"`
	MatchNumber int       `json:"match_number"`
	Live        bool      `json:"live"`   // priced from the in-play model
	Open        bool      `json:"open"`   // betting window open
	Locked      bool      `json:"locked"` // markets suspended while the ball is in play
	Version     int       `json:"version"`
	Quotes      []Quote   `json:"quotes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Find returns the quote for k.
func (b OddsBoard) Find(k OutcomeKey) (Quote, bool) {
	for _, q := range b.Quotes {
		if q.Key == k {
			return q, true
		}
	}
	return Quote{}, false
}

// Accepting reports whether bets can currently be placed.
func (b OddsBoard) Accepting() bool {
	return b.Open && !b.Locked
}

// Clone returns a copy whose quote slice is not shared.
func (b OddsBoard) Clone() OddsBoard {
	c := b
	c.Quotes = append([]Quote(nil), b.Quotes...)
	return c
}
