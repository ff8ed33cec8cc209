// Package physics advances players and the ball by one tick.  Every function
// mutates entities in place and performs no I/O.
package physics

import (
	"math"

	"github.com/evetabi/matchsim/internal/domain"
)

// ──────────────────────────────────────────────────────────────────────────────
// Config
// ──────────────────────────────────────────────────────────────────────────────

// Config holds the physical constants of the simulation.
type Config struct {
	PlayerRadius    float64
	BallRadius      float64
	PlayerMaxSpeed  float64
	GoalkeeperSpeed float64
	BallMaxSpeed    float64
	KickPower       float64 // multiplier on the kicker's velocity
	KickDirectional float64 // component along the contact normal
	MinKickSpeed    float64
	MinBallSpeed    float64
	Friction        float64 // per-tick velocity retention at speed 1
	Jitter          float64 // random steering amplitude for outfield players
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		PlayerRadius:    13,
		BallRadius:      8,
		PlayerMaxSpeed:  8.5,
		GoalkeeperSpeed: 2.5,
		BallMaxSpeed:    12.5,
		KickPower:       2.5,
		KickDirectional: 3,
		MinKickSpeed:    2,
		MinBallSpeed:    0.5,
		Friction:        0.995,
		Jitter:          0.2,
	}
}

// maxSpin bounds the per-tick ball rotation increment.
const maxSpin = 2

// keeperFloor is the vertical speed below which a goalkeeper is restarted.
const keeperFloor = 0.5

// Rand is the randomness the step needs.
type Rand interface {
	Float64() float64
}

// ──────────────────────────────────────────────────────────────────────────────
// Integration
// ──────────────────────────────────────────────────────────────────────────────

// MovePlayer integrates an outfield player: jitter, clamp, move, eject from
// the restricted boxes, then bounce off the touchlines and end lines.
func MovePlayer(f domain.Field, cfg Config, p *domain.Entity, speed float64, rng Rand) {
	p.VX += (rng.Float64() - 0.5) * cfg.Jitter * speed
	p.VY += (rng.Float64() - 0.5) * cfg.Jitter * speed
	p.ClampSpeed()

	p.X += p.VX * speed
	p.Y += p.VY * speed

	EnforceRestrictedAreas(f, p)

	r := p.Radius
	if p.X < r {
		p.X = r
		p.VX = -p.VX
	} else if p.X > f.Width-r {
		p.X = f.Width - r
		p.VX = -p.VX
	}
	if p.Y < r {
		p.Y = r
		p.VY = -p.VY
	} else if p.Y > f.Height-r {
		p.Y = f.Height - r
		p.VY = -p.VY
	}
}

// MoveGoalkeeper slides a goalkeeper along its goal box.  X never changes.
func MoveGoalkeeper(f domain.Field, cfg Config, p *domain.Entity, speed float64) {
	p.VX = 0
	p.Y += p.VY * speed

	minY := f.GoalBoxTop() + p.Radius
	maxY := f.GoalBoxBottom() - p.Radius
	if p.Y <= minY {
		p.Y = minY
		p.VY = math.Abs(p.VY)
		if p.VY == 0 {
			p.VY = cfg.GoalkeeperSpeed
		}
	} else if p.Y >= maxY {
		p.Y = maxY
		p.VY = -math.Abs(p.VY)
		if p.VY == 0 {
			p.VY = -cfg.GoalkeeperSpeed
		}
	}

	// A keeper is never idle.
	if math.Abs(p.VY) < keeperFloor {
		if p.VY >= 0 {
			p.VY = cfg.GoalkeeperSpeed
		} else {
			p.VY = -cfg.GoalkeeperSpeed
		}
	}
}

// EnforceRestrictedAreas ejects an outfield player from both goal boxes and
// both penalty boxes toward the field side and points it away from the box.
func EnforceRestrictedAreas(f domain.Field, p *domain.Entity) {
	if p.Role != domain.RoleOutfield {
		return
	}
	r := p.Radius
	inSpan := func(top, bottom float64) bool {
		return p.Y+r > top && p.Y-r < bottom
	}
	towardRight := func() {
		p.VX = math.Abs(p.VX)
		if p.VX == 0 {
			p.VX = 0.5
		}
	}
	towardLeft := func() {
		p.VX = -math.Abs(p.VX)
		if p.VX == 0 {
			p.VX = -0.5
		}
	}

	inGoalBox := inSpan(f.GoalBoxTop(), f.GoalBoxBottom())
	inPenaltyBox := inSpan(f.PenaltyBoxTop(), f.PenaltyBoxBottom())

	switch {
	case inGoalBox && p.X-r < f.GoalBoxWidth:
		p.X = f.GoalBoxWidth + r + 1
		towardRight()
	case inPenaltyBox && p.X-r < f.PenaltyBoxWidth:
		p.X = f.PenaltyBoxWidth + r + 1
		towardRight()
	case inGoalBox && p.X+r > f.Width-f.GoalBoxWidth:
		p.X = f.Width - f.GoalBoxWidth - r - 1
		towardLeft()
	case inPenaltyBox && p.X+r > f.Width-f.PenaltyBoxWidth:
		p.X = f.Width - f.PenaltyBoxWidth - r - 1
		towardLeft()
	}
}

// MoveBall applies friction, the minimum-speed floor and spin, integrates,
// then bounces off the touchlines.  End lines are left to DetectGoal.
func MoveBall(f domain.Field, cfg Config, b *domain.Entity, speed float64, rng Rand) {
	k := math.Pow(cfg.Friction, speed)
	b.VX *= k
	b.VY *= k

	switch s := b.Speed(); {
	case s == 0:
		angle := rng.Float64() * 2 * math.Pi
		b.VX = math.Cos(angle) * cfg.MinBallSpeed
		b.VY = math.Sin(angle) * cfg.MinBallSpeed
	case s < cfg.MinBallSpeed:
		b.VX *= cfg.MinBallSpeed / s
		b.VY *= cfg.MinBallSpeed / s
	}

	b.Rotation += math.Max(-maxSpin, math.Min(maxSpin, b.VX*0.1)) * speed

	b.X += b.VX * speed
	b.Y += b.VY * speed

	if b.Y < b.Radius {
		b.Y = b.Radius
		b.VY = -b.VY
	} else if b.Y > f.Height-b.Radius {
		b.Y = f.Height - b.Radius
		b.VY = -b.VY
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Collisions
// ──────────────────────────────────────────────────────────────────────────────

// separation returns the unit axis from b to a and the overlap of the two
// discs.
func separation(a, b *domain.Entity) (nx, ny, overlap float64) {
	dx, dy := a.X-b.X, a.Y-b.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		// Coincident centres: separate horizontally by the full radii.
		return 1, 0, a.Radius + b.Radius
	}
	return dx / dist, dy / dist, a.Radius + b.Radius - dist
}

// ResolvePlayerCollision separates two overlapping players and swaps their
// velocities.  A goalkeeper is anchored: the other player absorbs the whole
// overlap and rebounds.
func ResolvePlayerCollision(a, b *domain.Entity) {
	nx, ny, overlap := separation(a, b)
	if overlap <= 0 {
		return
	}
	switch {
	case a.IsGoalkeeper() && b.IsGoalkeeper():
		return
	case a.IsGoalkeeper():
		b.X -= nx * overlap
		b.Y -= ny * overlap
		b.VX, b.VY = -b.VX, -b.VY
	case b.IsGoalkeeper():
		a.X += nx * overlap
		a.Y += ny * overlap
		a.VX, a.VY = -a.VX, -a.VY
	default:
		half := overlap / 2
		a.X += nx * half
		a.Y += ny * half
		b.X -= nx * half
		b.Y -= ny * half
		a.VX, b.VX = b.VX, a.VX
		a.VY, b.VY = b.VY, a.VY
	}
}

// ResolveBallCollision pushes the ball clear of player p and applies the kick
// impulse.  The resulting ball speed lies in [MinKickSpeed, BallMaxSpeed].
func ResolveBallCollision(cfg Config, ball, p *domain.Entity) {
	nx, ny, overlap := separation(ball, p)
	if overlap <= 0 {
		return
	}
	ball.X += nx * (overlap + 1)
	ball.Y += ny * (overlap + 1)

	ball.VX = p.VX*cfg.KickPower + nx*cfg.KickDirectional
	ball.VY = p.VY*cfg.KickPower + ny*cfg.KickDirectional

	if s := ball.Speed(); s < cfg.MinKickSpeed {
		if s == 0 {
			ball.VX, ball.VY = nx*cfg.MinKickSpeed, ny*cfg.MinKickSpeed
		} else {
			ball.VX *= cfg.MinKickSpeed / s
			ball.VY *= cfg.MinKickSpeed / s
		}
	}
	ball.ClampSpeed()
}

// ResolveCollisions checks every player pair, then every ball-player pair.
func ResolveCollisions(w *World) {
	for i := 0; i < len(w.Players); i++ {
		for j := i + 1; j < len(w.Players); j++ {
			ResolvePlayerCollision(w.Players[i], w.Players[j])
		}
	}
	for _, p := range w.Players {
		ResolveBallCollision(w.Cfg, w.Ball, p)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Goal detection
// ──────────────────────────────────────────────────────────────────────────────

// DetectGoal reports the scoring side when the ball's leading edge crossed an
// end line inside the goal mouth.  Outside the mouth the ball bounces back.
func DetectGoal(f domain.Field, b *domain.Entity) (domain.Team, bool) {
	r := b.Radius
	switch {
	case b.X < r:
		if f.InGoalMouth(b.Y) {
			return domain.TeamAway, true
		}
		b.X = r
		b.VX = -b.VX
	case b.X > f.Width-r:
		if f.InGoalMouth(b.Y) {
			return domain.TeamHome, true
		}
		b.X = f.Width - r
		b.VX = -b.VX
	}
	return domain.TeamNone, false
}
