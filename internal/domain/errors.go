package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Configuration errors.  These are recovered locally (fallback formation,
// disabled outcome) and never crash the simulation.
var (
	// ErrUnknownFormation is returned when a formation name is not in the catalog.
	ErrUnknownFormation = errors.New("unknown formation")

	// ErrInvalidFormation is returned when a formation does not have exactly
	// 10 outfield slots with normalized coordinates.
	ErrInvalidFormation = errors.New("invalid formation")

	// ErrUnknownMarket is returned for a market id the board does not price.
	ErrUnknownMarket = errors.New("unknown market")

	// ErrUnknownOutcome is returned for an outcome id that does not belong to
	// its market or has a malformed goal line.
	ErrUnknownOutcome = errors.New("unknown outcome")
)

// Betting state errors.  These are surfaced to the caller as rejected
// operations with a reason code.
var (
	// ErrInvalidStake is returned when the stake is not a positive amount with
	// at most two decimal places.
	ErrInvalidStake = errors.New("stake must be a positive amount")

	// ErrInsufficientBalance is returned when the stake exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrMarketClosed is returned when no betting window is open or markets are
	// locked because the ball is in play.
	ErrMarketClosed = errors.New("betting window is closed")

	// ErrOutcomeUnavailable is returned when the outcome is decided, closed or
	// priced above the sanity ceiling.
	ErrOutcomeUnavailable = errors.New("outcome is not available")

	// ErrBetNotFound is returned when no bet matches the given id.
	ErrBetNotFound = errors.New("bet not found")

	// ErrBetAlreadySettled is returned when settling a bet that is no longer
	// pending.
	ErrBetAlreadySettled = errors.New("bet is already settled")
)

// Match lifecycle errors
var (
	// ErrTransitionInProgress is returned when a next-match preparation is
	// requested while another one is running.
	ErrTransitionInProgress = errors.New("match transition already in progress")

	// ErrNoMatch is returned when no match has been started yet.
	ErrNoMatch = errors.New("no match in progress")

	// ErrInvalidControl is returned for out-of-range control values (speed,
	// match count).
	ErrInvalidControl = errors.New("invalid control value")

	// ErrArchiveDisabled is returned by archive reads when no database is
	// configured.
	ErrArchiveDisabled = errors.New("match archive is not configured")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when operator login fails.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBetNotFound) || errors.Is(err, ErrNoMatch)
}

// IsConflict returns true for errors that represent a state conflict: the
// request was valid but the simulation is not in a state that accepts it.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrMarketClosed,
		ErrOutcomeUnavailable,
		ErrBetAlreadySettled,
		ErrTransitionInProgress,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication errors.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrTokenInvalid)
}

// reasonCodes maps sentinel errors to the stable codes used in API envelopes.
var reasonCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidStake, "ERR_INVALID_STAKE"},
	{ErrInsufficientBalance, "ERR_INSUFFICIENT_BALANCE"},
	{ErrMarketClosed, "ERR_MARKET_CLOSED"},
	{ErrOutcomeUnavailable, "ERR_OUTCOME_UNAVAILABLE"},
	{ErrUnknownMarket, "ERR_UNKNOWN_MARKET"},
	{ErrUnknownOutcome, "ERR_UNKNOWN_OUTCOME"},
	{ErrUnknownFormation, "ERR_UNKNOWN_FORMATION"},
	{ErrBetNotFound, "ERR_BET_NOT_FOUND"},
	{ErrBetAlreadySettled, "ERR_BET_SETTLED"},
	{ErrTransitionInProgress, "ERR_TRANSITION_IN_PROGRESS"},
	{ErrNoMatch, "ERR_NO_MATCH"},
	{ErrInvalidControl, "ERR_INVALID_CONTROL"},
	{ErrArchiveDisabled, "ERR_ARCHIVE_DISABLED"},
	{ErrUnauthorized, "ERR_UNAUTHORIZED"},
	{ErrInvalidCredentials, "ERR_INVALID_CREDENTIALS"},
	{ErrTokenInvalid, "ERR_TOKEN_INVALID"},
}

// ReasonCode returns the API reason code of err, or "ERR_INTERNAL" for errors
// outside the domain taxonomy.
func ReasonCode(err error) string {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return "ERR_INTERNAL"
}
