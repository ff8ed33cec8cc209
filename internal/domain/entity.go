package domain

import "math"

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Team identifies a side.  Wire values keep the kit colours used by clients.
type Team string

const (
	TeamHome Team = "red"
	TeamAway Team = "blue"
	TeamNone Team = "" // the ball
)

// IsValid returns true for the two playing sides.
func (t Team) IsValid() bool {
	return t == TeamHome || t == TeamAway
}

// Opponent returns the other side.  TeamNone has no opponent.
func (t Team) Opponent() Team {
	switch t {
	case TeamHome:
		return TeamAway
	case TeamAway:
		return TeamHome
	}
	return TeamNone
}

// DisplayName returns the human-readable team name used in exports.
func (t Team) DisplayName() string {
	switch t {
	case TeamHome:
		return "Red"
	case TeamAway:
		return "Blue"
	}
	return ""
}

// Role is the physical behaviour class of an entity.
type Role string

const (
	RoleGoalkeeper Role = "goalkeeper"
	RoleOutfield   Role = "outfield"
	RoleBall       Role = "ball"
)

// ──────────────────────────────────────────────────────────────────────────────
// Entity
// ──────────────────────────────────────────────────────────────────────────────

// Entity is a player or the ball.  Entities are created at match setup and
// repositioned, never recreated, on goal resets and half transitions.
type Entity struct {
	ID       int     `json:"id"`
	Team     Team    `json:"team,omitempty"`
	Role     Role    `json:"role"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Radius   float64 `json:"radius"`
	MaxSpeed float64 `json:"max_speed"`
	Rotation float64 `json:"rotation"` // accumulated spin, ball only
}

// Speed returns the magnitude of the velocity vector.
func (e *Entity) Speed() float64 {
	return math.Hypot(e.VX, e.VY)
}

// ClampSpeed scales the velocity down to MaxSpeed when it exceeds it.
func (e *Entity) ClampSpeed() {
	s := e.Speed()
	if s > e.MaxSpeed && s > 0 {
		k := e.MaxSpeed / s
		e.VX *= k
		e.VY *= k
	}
}

// IsBall reports whether the entity is the ball.
func (e *Entity) IsBall() bool { return e.Role == RoleBall }

// IsGoalkeeper reports whether the entity is a goalkeeper.
func (e *Entity) IsGoalkeeper() bool { return e.Role == RoleGoalkeeper }

// Distance returns the centre-to-centre distance between two entities.
func (e *Entity) Distance(o *Entity) float64 {
	return math.Hypot(o.X-e.X, o.Y-e.Y)
}
