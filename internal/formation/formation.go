// Package formation holds the tactical layouts teams are placed in at kickoff
// and after every goal, plus the attack/defense scalars the fast simulation
// derives from them.
package formation

import (
	"fmt"
	"sort"

	"github.com/evetabi/matchsim/internal/domain"
)

// DefaultName is the layout used when a requested formation is unknown.
const DefaultName = "4-4-2"

// OutfieldSlots is the number of non-goalkeeper players per side.
const OutfieldSlots = 10

// Point is a position.  Formation points are normalized to [0,1] with x
// measured from the team's own goal line.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Formation is a named layout of the ten outfield players.
type Formation struct {
	Name        string  `json:"name"        yaml:"name"`
	Defenders   []Point `json:"defenders"   yaml:"defenders"`
	Midfielders []Point `json:"midfielders" yaml:"midfielders"`
	Forwards    []Point `json:"forwards"    yaml:"forwards"`
}

// Slots returns defenders, then midfielders, then forwards.
func (f Formation) Slots() []Point {
	out := make([]Point, 0, OutfieldSlots)
	out = append(out, f.Defenders...)
	out = append(out, f.Midfielders...)
	return append(out, f.Forwards...)
}

// Validate checks the slot count and that every coordinate is normalized.
func (f Formation) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: missing name", domain.ErrInvalidFormation)
	}
	slots := f.Slots()
	if len(slots) != OutfieldSlots {
		return fmt.Errorf("%w: %s has %d outfield slots, want %d",
			domain.ErrInvalidFormation, f.Name, len(slots), OutfieldSlots)
	}
	for i, p := range slots {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return fmt.Errorf("%w: %s slot %d (%.2f, %.2f) is outside [0,1]",
				domain.ErrInvalidFormation, f.Name, i, p.X, p.Y)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Layout & strength
// ──────────────────────────────────────────────────────────────────────────────

// Expand converts the normalized layout into pitch coordinates for team.  The
// away side is mirrored so both teams attack the opposite goal.
func Expand(field domain.Field, team domain.Team, f Formation) []Point {
	slots := f.Slots()
	out := make([]Point, 0, len(slots))
	for _, p := range slots {
		x := p.X * field.Width
		if team == domain.TeamAway {
			x = field.Width - x
		}
		out = append(out, Point{X: x, Y: p.Y * field.Height})
	}
	return out
}

// Kind selects which strength scalar to compute.
type Kind string

const (
	Attack  Kind = "attack"
	Defense Kind = "defense"
)

// Strength scores the layout for kind.  Midfielders in the attacking half of
// the vertical axis count half toward attack, the rest half toward defense.
// The result is never below 1.
func Strength(f Formation, kind Kind) float64 {
	var s float64
	switch kind {
	case Attack:
		s = float64(len(f.Forwards))
		for _, m := range f.Midfielders {
			if m.Y > 0.5 {
				s += 0.5
			}
		}
	case Defense:
		s = float64(len(f.Defenders))
		for _, m := range f.Midfielders {
			if m.Y < 0.5 {
				s += 0.5
			}
		}
	}
	if s < 1 {
		return 1
	}
	return s
}

// AttackStrength is Strength(f, Attack).
func AttackStrength(f Formation) float64 { return Strength(f, Attack) }

// DefenseStrength is Strength(f, Defense).
func DefenseStrength(f Formation) float64 { return Strength(f, Defense) }

// ──────────────────────────────────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────────────────────────────────

// Rand is the randomness a catalog needs to pick a formation.
type Rand interface {
	IntN(n int) int
}

// Catalog is an immutable set of formations keyed by name.
type Catalog struct {
	byName map[string]Formation
	names  []string
}

// NewCatalog validates every formation and builds a catalog.  The default
// layout must be present.
func NewCatalog(fs ...Formation) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Formation, len(fs))}
	for _, f := range fs {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[f.Name]; !dup {
			c.names = append(c.names, f.Name)
		}
		c.byName[f.Name] = f
	}
	if _, ok := c.byName[DefaultName]; !ok {
		return nil, fmt.Errorf("%w: catalog has no %s", domain.ErrInvalidFormation, DefaultName)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := NewCatalog(builtins()...)
	if err != nil {
		panic("formation: built-in catalog is invalid: " + err.Error())
	}
	return c
}

// Merge returns a new catalog with extra formations layered over c.
func (c *Catalog) Merge(extra ...Formation) (*Catalog, error) {
	all := make([]Formation, 0, len(c.names)+len(extra))
	for _, n := range c.names {
		all = append(all, c.byName[n])
	}
	return NewCatalog(append(all, extra...)...)
}

// Lookup returns the named formation.
func (c *Catalog) Lookup(name string) (Formation, error) {
	f, ok := c.byName[name]
	if !ok {
		return Formation{}, fmt.Errorf("%w: %q", domain.ErrUnknownFormation, name)
	}
	return f, nil
}

// Resolve never fails: an unknown name yields the default layout and
// fallback=true.
func (c *Catalog) Resolve(name string) (f Formation, fallback bool) {
	if f, ok := c.byName[name]; ok {
		return f, false
	}
	return c.byName[DefaultName], true
}

// Names returns the formation names in catalog order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Sorted returns every formation ordered by name.
func (c *Catalog) Sorted() []Formation {
	out := make([]Formation, 0, len(c.byName))
	for _, f := range c.byName {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Random picks a formation name uniformly.
func (c *Catalog) Random(rng Rand) string {
	return c.names[rng.IntN(len(c.names))]
}

func builtins() []Formation {
	flatBack4 := []Point{{0.15, 0.2}, {0.15, 0.4}, {0.15, 0.6}, {0.15, 0.8}}
	back3 := []Point{{0.15, 0.3}, {0.15, 0.5}, {0.15, 0.7}}
	return []Formation{
		{
			Name:        "4-4-2",
			Defenders:   flatBack4,
			Midfielders: []Point{{0.35, 0.2}, {0.35, 0.4}, {0.35, 0.6}, {0.35, 0.8}},
			Forwards:    []Point{{0.55, 0.35}, {0.55, 0.65}},
		},
		{
			Name:        "3-5-2",
			Defenders:   back3,
			Midfielders: []Point{{0.25, 0.15}, {0.35, 0.35}, {0.35, 0.5}, {0.35, 0.65}, {0.25, 0.85}},
			Forwards:    []Point{{0.55, 0.4}, {0.55, 0.6}},
		},
		{
			Name:        "4-3-3",
			Defenders:   flatBack4,
			Midfielders: []Point{{0.35, 0.3}, {0.35, 0.5}, {0.35, 0.7}},
			Forwards:    []Point{{0.55, 0.25}, {0.55, 0.5}, {0.55, 0.75}},
		},
		{
			Name:        "4-3-2-1",
			Defenders:   flatBack4,
			Midfielders: []Point{{0.35, 0.3}, {0.35, 0.5}, {0.35, 0.7}},
			Forwards:    []Point{{0.5, 0.4}, {0.5, 0.6}, {0.65, 0.5}},
		},
		{
			Name:        "4-2-3-1",
			Defenders:   flatBack4,
			Midfielders: []Point{{0.3, 0.35}, {0.3, 0.65}},
			Forwards:    []Point{{0.45, 0.25}, {0.45, 0.5}, {0.45, 0.75}, {0.6, 0.5}},
		},
		{
			Name:        "3-4-3",
			Defenders:   back3,
			Midfielders: []Point{{0.35, 0.2}, {0.35, 0.4}, {0.35, 0.6}, {0.35, 0.8}},
			Forwards:    []Point{{0.55, 0.25}, {0.55, 0.5}, {0.55, 0.75}},
		},
	}
}
