package physics

import (
	"math"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/formation"
)

// PlayersPerSide is one goalkeeper plus the outfield slots.
const PlayersPerSide = 1 + formation.OutfieldSlots

// World is the entity set of one match.  Players are ordered home keeper,
// home outfield, away keeper, away outfield; entities are created once and
// only repositioned afterwards.
type World struct {
	Field   domain.Field
	Cfg     Config
	Players []*domain.Entity
	Ball    *domain.Entity
}

// NewWorld creates the 22 players and the ball at the centre spot.
func NewWorld(f domain.Field, cfg Config) *World {
	w := &World{Field: f, Cfg: cfg}
	id := 0
	for _, team := range []domain.Team{domain.TeamHome, domain.TeamAway} {
		for i := 0; i < PlayersPerSide; i++ {
			id++
			p := &domain.Entity{
				ID:       id,
				Team:     team,
				Role:     domain.RoleOutfield,
				Radius:   cfg.PlayerRadius,
				MaxSpeed: cfg.PlayerMaxSpeed,
			}
			if i == 0 {
				p.Role = domain.RoleGoalkeeper
				p.MaxSpeed = cfg.GoalkeeperSpeed
			}
			w.Players = append(w.Players, p)
		}
	}
	w.Ball = &domain.Entity{
		ID:       0,
		Role:     domain.RoleBall,
		Radius:   cfg.BallRadius,
		MaxSpeed: cfg.BallMaxSpeed,
	}
	w.resetBall()
	return w
}

// KeeperX returns the fixed horizontal position of team's goalkeeper.
func (w *World) KeeperX(team domain.Team) float64 {
	if team == domain.TeamAway {
		return w.Field.Width - w.Field.GoalBoxWidth/2
	}
	return w.Field.GoalBoxWidth / 2
}

// Layout stops every entity and places the sides on their formation points.
// Missing points leave the player where it is.
func (w *World) Layout(home, away []formation.Point) {
	w.resetBall()
	var hi, ai int
	for _, p := range w.Players {
		p.VX, p.VY = 0, 0
		if p.IsGoalkeeper() {
			p.X = w.KeeperX(p.Team)
			p.Y = w.Field.CenterY()
			continue
		}
		pts, idx := home, &hi
		if p.Team == domain.TeamAway {
			pts, idx = away, &ai
		}
		if *idx < len(pts) {
			p.X, p.Y = pts[*idx].X, pts[*idx].Y
		}
		*idx++
	}
}

func (w *World) resetBall() {
	w.Ball.X = w.Field.CenterX()
	w.Ball.Y = w.Field.CenterY()
	w.Ball.VX, w.Ball.VY = 0, 0
	w.Ball.Rotation = 0
}

// Kickoff puts every entity in motion.  bias tilts the ball's initial
// horizontal velocity toward the stronger side's attacking direction.
func (w *World) Kickoff(rng Rand, bias float64) {
	b := w.Ball
	b.VX = (rng.Float64()-0.5)*2 + bias
	dir := 1.0
	if rng.Float64() < 0.5 {
		dir = -1
	}
	b.VY = dir * (rng.Float64()*3 + 2)
	b.ClampSpeed()

	for _, p := range w.Players {
		if p.IsGoalkeeper() {
			p.VX = 0
			p.VY = w.Cfg.GoalkeeperSpeed
			if rng.Float64() < 0.5 {
				p.VY = -p.VY
			}
			continue
		}
		p.VX = (rng.Float64() - 0.5) * w.Cfg.PlayerMaxSpeed
		p.VY = (rng.Float64() - 0.5) * w.Cfg.PlayerMaxSpeed
	}
}

// Entities returns a value copy of every entity, ball first.
func (w *World) Entities() []domain.Entity {
	out := make([]domain.Entity, 0, len(w.Players)+1)
	out = append(out, *w.Ball)
	for _, p := range w.Players {
		out = append(out, *p)
	}
	return out
}

// Step advances the world by one tick.  Order: integration, collision
// resolution, final clamps, then goal detection on the final ball position.
func Step(w *World, speed float64, rng Rand) (domain.Team, bool) {
	for _, p := range w.Players {
		if p.IsGoalkeeper() {
			MoveGoalkeeper(w.Field, w.Cfg, p, speed)
		} else {
			MovePlayer(w.Field, w.Cfg, p, speed, rng)
		}
	}
	MoveBall(w.Field, w.Cfg, w.Ball, speed, rng)

	ResolveCollisions(w)

	for _, p := range w.Players {
		p.ClampSpeed()
		w.contain(p)
	}
	w.Ball.ClampSpeed()
	w.Ball.Y = math.Max(w.Ball.Radius, math.Min(w.Field.Height-w.Ball.Radius, w.Ball.Y))

	return DetectGoal(w.Field, w.Ball)
}

// contain keeps a player on the pitch after collision pushes; a goalkeeper
// is also held inside its goal box.
func (w *World) contain(p *domain.Entity) {
	r := p.Radius
	if p.IsGoalkeeper() {
		p.X = w.KeeperX(p.Team)
		p.Y = math.Max(w.Field.GoalBoxTop()+r, math.Min(w.Field.GoalBoxBottom()-r, p.Y))
		return
	}
	p.X = math.Max(r, math.Min(w.Field.Width-r, p.X))
	p.Y = math.Max(r, math.Min(w.Field.Height-r, p.Y))
}
