// Package events is the typed publish/subscribe channel between the match
// state machine and its consumers (odds board, ledger, archive, transports).
package events

import (
	"time"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/google/uuid"
)

// Kind names a lifecycle event.
type Kind string

const (
	KindMatchStart   Kind = "matchStart"
	KindBettingStart Kind = "bettingStart"
	KindCountdown    Kind = "countdown"
	KindBettingClose Kind = "bettingClose"
	KindKickoff      Kind = "kickoff"
	KindGoal         Kind = "goal"
	KindHalftime     Kind = "halftime"
	KindFulltime     Kind = "fulltime"
	KindMatchEnd     Kind = "matchEnd"
)

// Kinds lists every event kind in lifecycle order.
var Kinds = []Kind{
	KindMatchStart, KindBettingStart, KindCountdown, KindBettingClose,
	KindKickoff, KindGoal, KindHalftime, KindFulltime, KindMatchEnd,
}

// Event is implemented by every payload below.
type Event interface {
	Kind() Kind
}

// Header is embedded in every payload.
type Header struct {
	MatchID     uuid.UUID `json:"match_id"`
	MatchNumber int       `json:"match_number"`
	At          time.Time `json:"at"`
}

// MatchStart is published once a new match has been laid out.
type MatchStart struct {
	Header
	Formations   domain.Formations `json:"formations"`
	TotalMatches int               `json:"total_matches"`
}

// BettingStart opens a betting window.  Half is 1 for the pre-match window
// and 2 for the halftime window.
type BettingStart struct {
	Header
	Half    int          `json:"half"`
	Seconds int          `json:"seconds"`
	Score   domain.Score `json:"score"`
}

// Countdown is published once per second while a window is open.
type Countdown struct {
	Header
	Remaining int  `json:"remaining"`
	Warning   bool `json:"warning"`
}

// BettingClose closes the open window.  Unless the series was stopped it is
// followed by a Kickoff.
type BettingClose struct {
	Header
	Half int `json:"half"`
}

// Kickoff is published when the ball is put in play for a half.
type Kickoff struct {
	Header
	Half int `json:"half"`
}

// Goal is published when the ball crosses a goal line inside the mouth.
type Goal struct {
	Header
	Goal  domain.GoalEvent `json:"goal"`
	Score domain.Score     `json:"score"`
}

// Halftime is published once when the first half ends.
type Halftime struct {
	Header
	Score domain.Score `json:"score"`
}

// Fulltime is published when the second half ends.
type Fulltime struct {
	Header
	Score domain.Score `json:"score"`
}

// MatchEnd carries the finalized result and archive record.
type MatchEnd struct {
	Header
	Result domain.MatchResult `json:"result"`
	Record domain.MatchRecord `json:"record"`
}

func (MatchStart) Kind() Kind   { return KindMatchStart }
func (BettingStart) Kind() Kind { return KindBettingStart }
func (Countdown) Kind() Kind    { return KindCountdown }
func (BettingClose) Kind() Kind { return KindBettingClose }
func (Kickoff) Kind() Kind      { return KindKickoff }
func (Goal) Kind() Kind         { return KindGoal }
func (Halftime) Kind() Kind     { return KindHalftime }
func (Fulltime) Kind() Kind     { return KindFulltime }
func (MatchEnd) Kind() Kind     { return KindMatchEnd }

// HeaderOf returns the common header of e.
func HeaderOf(e Event) Header {
	switch v := e.(type) {
	case MatchStart:
		return v.Header
	case BettingStart:
		return v.Header
	case Countdown:
		return v.Header
	case BettingClose:
		return v.Header
	case Kickoff:
		return v.Header
	case Goal:
		return v.Header
	case Halftime:
		return v.Header
	case Fulltime:
		return v.Header
	case MatchEnd:
		return v.Header
	}
	return Header{}
}

// Envelope is the wire form of an event for WebSocket clients and the
// Kafka stream.
type Envelope struct {
	Type Kind  `json:"type"`
	Data Event `json:"data"`
}

// Wrap tags e with its kind.
func Wrap(e Event) Envelope {
	return Envelope{Type: e.Kind(), Data: e}
}
