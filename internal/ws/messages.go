// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/evetabi/matchsim/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeSnapshot   MsgType = "snapshot"
	MsgTypeOdds       MsgType = "odds"
	MsgTypeSettlement MsgType = "settlement"
	// Lifecycle events are sent as events.Envelope with their own kind in
	// the type field (matchStart, goal, ...).
)

// ──────────────────────────────────────────────────────────────────────────────
// SnapshotMessage: sent at the broadcast interval while clients are connected.
// ──────────────────────────────────────────────────────────────────────────────

// SnapshotMessage carries the full render state of the simulation.
type SnapshotMessage struct {
	Type     MsgType         `json:"type"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// ──────────────────────────────────────────────────────────────────────────────
// OddsMessage: sent on every board version.
// ──────────────────────────────────────────────────────────────────────────────

// OddsMessage carries one odds board version.
type OddsMessage struct {
	Type  MsgType          `json:"type"`
	Board domain.OddsBoard `json:"board"`
}

// ──────────────────────────────────────────────────────────────────────────────
// SettlementMessage: sent after the ledger settles a match.
// ──────────────────────────────────────────────────────────────────────────────

// SettlementMessage tells clients how their bets on a match ended.
type SettlementMessage struct {
	Type      MsgType                  `json:"type"`
	Summary   domain.SettlementSummary `json:"summary"`
	Timestamp time.Time                `json:"timestamp"`
}
