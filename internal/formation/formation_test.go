package formation_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/formation"
)

func TestDefault_AllBuiltinsValid(t *testing.T) {
	c := formation.Default()
	want := []string{"4-4-2", "3-5-2", "4-3-3", "4-3-2-1", "4-2-3-1", "3-4-3"}
	got := c.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
		f, err := c.Lookup(want[i])
		if err != nil {
			t.Fatalf("Lookup(%s): %v", want[i], err)
		}
		if n := len(f.Slots()); n != formation.OutfieldSlots {
			t.Errorf("%s has %d slots", f.Name, n)
		}
	}
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	c := formation.Default()
	f, fallback := c.Resolve("9-0-1")
	if !fallback || f.Name != formation.DefaultName {
		t.Errorf("Resolve(unknown) = %s, fallback=%v", f.Name, fallback)
	}
	f, fallback = c.Resolve("3-5-2")
	if fallback || f.Name != "3-5-2" {
		t.Errorf("Resolve(3-5-2) = %s, fallback=%v", f.Name, fallback)
	}
	if _, err := c.Lookup("9-0-1"); !errors.Is(err, domain.ErrUnknownFormation) {
		t.Errorf("Lookup(unknown) error = %v", err)
	}
}

func TestExpand_MirrorsAwaySide(t *testing.T) {
	field := domain.DefaultField()
	f, _ := formation.Default().Lookup("4-4-2")

	home := formation.Expand(field, domain.TeamHome, f)
	away := formation.Expand(field, domain.TeamAway, f)
	if len(home) != 10 || len(away) != 10 {
		t.Fatalf("expanded %d/%d points, want 10/10", len(home), len(away))
	}
	// First defender: (0.15, 0.2) on an 800x500 pitch.
	if home[0].X != 120 || home[0].Y != 100 {
		t.Errorf("home[0] = %+v, want (120, 100)", home[0])
	}
	for i := range home {
		if math.Abs(home[i].X+away[i].X-field.Width) > 1e-9 || home[i].Y != away[i].Y {
			t.Errorf("slot %d not mirrored: home %+v away %+v", i, home[i], away[i])
		}
	}
	// Forwards come last.
	if home[9].X != 0.55*field.Width {
		t.Errorf("last slot x = %v, want forward line", home[9].X)
	}
}

func TestStrength(t *testing.T) {
	c := formation.Default()
	cases := []struct {
		name          string
		attack, defen float64
	}{
		// 2 forwards + 2 midfielders below the axis.
		{"4-4-2", 3, 5},
		// 3 forwards + the y=0.7 midfielder.
		{"4-3-3", 3.5, 4.5},
		{"3-5-2", 3, 4},
	}
	for _, tc := range cases {
		f, _ := c.Lookup(tc.name)
		if got := formation.AttackStrength(f); got != tc.attack {
			t.Errorf("%s attack = %v, want %v", tc.name, got, tc.attack)
		}
		if got := formation.DefenseStrength(f); got != tc.defen {
			t.Errorf("%s defense = %v, want %v", tc.name, got, tc.defen)
		}
	}
	if got := formation.Strength(formation.Formation{}, formation.Attack); got != 1 {
		t.Errorf("empty formation strength = %v, want floor 1", got)
	}
}

func TestRandom_PicksFromCatalog(t *testing.T) {
	c := formation.Default()
	rng := rand.New(rand.NewPCG(1, 2))
	seen := map[string]bool{}
	for range 200 {
		n := c.Random(rng)
		if _, err := c.Lookup(n); err != nil {
			t.Fatalf("Random returned %q not in catalog", n)
		}
		seen[n] = true
	}
	if len(seen) != len(c.Names()) {
		t.Errorf("200 draws hit %d of %d formations", len(seen), len(c.Names()))
	}
}

const customYAML = `
formations:
  - name: 5-3-2
    defenders: [{x: 0.12, y: 0.1}, {x: 0.15, y: 0.3}, {x: 0.15, y: 0.5}, {x: 0.15, y: 0.7}, {x: 0.12, y: 0.9}]
    midfielders: [{x: 0.35, y: 0.3}, {x: 0.35, y: 0.5}, {x: 0.35, y: 0.7}]
    forwards: [{x: 0.55, y: 0.4}, {x: 0.55, y: 0.6}]
`

func TestLoadYAML_MergesOverBuiltins(t *testing.T) {
	c, err := formation.LoadYAML(formation.Default(), strings.NewReader(customYAML))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	f, err := c.Lookup("5-3-2")
	if err != nil {
		t.Fatalf("custom formation missing: %v", err)
	}
	if formation.DefenseStrength(f) != 5.5 {
		t.Errorf("5-3-2 defense = %v, want 5.5", formation.DefenseStrength(f))
	}
	if len(c.Names()) != 7 {
		t.Errorf("merged catalog has %d formations, want 7", len(c.Names()))
	}
}

func TestLoadYAML_RejectsInvalidDocument(t *testing.T) {
	bad := `
formations:
  - name: 2-2
    defenders: [{x: 0.1, y: 0.5}, {x: 0.1, y: 0.6}]
    forwards: [{x: 0.5, y: 0.4}, {x: 0.5, y: 1.4}]
`
	_, err := formation.LoadYAML(formation.Default(), strings.NewReader(bad))
	if !errors.Is(err, domain.ErrInvalidFormation) {
		t.Errorf("LoadYAML(bad) error = %v, want ErrInvalidFormation", err)
	}
}

func TestLoadFile_EmptyPathKeepsBase(t *testing.T) {
	base := formation.Default()
	c, err := formation.LoadFile(base, "")
	if err != nil || c != base {
		t.Errorf("LoadFile(\"\") = %p, %v; want base", c, err)
	}
}
