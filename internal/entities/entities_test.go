package entities

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/geometry"
)

func TestShiftCyclePhaseProgression(t *testing.T) {
	s := NewShiftCycle(10, geometry.Subdivisions)
	if s.Phase != PhaseDawn {
		t.Fatalf("initial phase = %s", s.Phase)
	}

	// A full revolution is 2400 ticks; each quadrant is 600.
	seen := map[Phase]bool{PhaseDawn: true}
	transitions := 0
	for tick := uint64(1); tick <= 2400; tick++ {
		if _, changed := s.Step(tick); changed {
			transitions++
			seen[s.Phase] = true
		}
	}
	if len(seen) != 4 {
		t.Fatalf("phases seen = %v, want all four", seen)
	}
	if transitions != 4 {
		t.Fatalf("transitions = %d, want 4 over one revolution", transitions)
	}
}

func TestIlluminationBounds(t *testing.T) {
	s := NewShiftCycle(10, geometry.Subdivisions)
	for angle := 0.0; angle < 2*math.Pi; angle += math.Pi / 7 {
		s.SunAngle = angle
		for face := 0; face < geometry.FaceCount; face++ {
			v := s.Illumination(geometry.Key{Face: face, Row: 32, Col: 32})
			if v < 0 || v > 1 {
				t.Fatalf("illumination %f out of [0,1]", v)
			}
		}
	}
}

func TestDarkFacesExist(t *testing.T) {
	s := NewShiftCycle(10, geometry.Subdivisions)
	dark := 0
	for face := 0; face < geometry.FaceCount; face++ {
		if s.FaceDark(face, 0.15) {
			dark++
		}
	}
	if dark == 0 {
		t.Fatal("no face is dark; the far side should be")
	}
	if dark == geometry.FaceCount {
		t.Fatal("every face is dark")
	}
}

func TestCorruptionSpreadAndClamp(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	c := NewCorruption(10)
	seed := geometry.Key{Face: 0, Row: 32, Col: 32}
	c.Seed(seed, 10)

	rng := rand.New(rand.NewSource(1))
	grew := false
	for i := 0; i < 50; i++ {
		if len(c.Spread(geom, rng, false)) > 0 {
			grew = true
		}
	}
	if !grew {
		t.Fatal("intensity-10 seed never spread in 50 passes")
	}
	for k, v := range c.Field {
		if v < 1 || v > 10 {
			t.Fatalf("intensity %d at %v out of range", v, k)
		}
	}
}

func TestPurifyReducesInsideFieldOnly(t *testing.T) {
	c := NewCorruption(10)
	inside := geometry.Key{Face: 0, Row: 10, Col: 10}
	outside := geometry.Key{Face: 0, Row: 40, Col: 40}
	c.Seed(inside, 5)
	c.Seed(outside, 5)

	fields := []ProtectiveField{{Center: geometry.Key{Face: 0, Row: 10, Col: 12}, Radius: 5}}
	c.Purify(fields)

	if c.Intensity(inside) != 4 {
		t.Fatalf("inside = %d, want 4", c.Intensity(inside))
	}
	if c.Intensity(outside) != 5 {
		t.Fatalf("outside = %d, want 5", c.Intensity(outside))
	}
}

func TestHissSpawnsFromHotSpots(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	c := NewCorruption(10)
	c.Seed(geometry.Key{Face: 0, Row: 5, Col: 5}, 9)
	c.Seed(geometry.Key{Face: 0, Row: 6, Col: 6}, 3)

	h := NewHissSwarm(geom)
	spawned := h.SpawnFrom(c, 8, 10, rand.New(rand.NewSource(1)))
	if len(spawned) != 1 {
		t.Fatalf("spawned = %d, want 1 (only the intensity-9 tile)", len(spawned))
	}

	// Re-running does not double-spawn on an occupied tile.
	if again := h.SpawnFrom(c, 8, 10, rand.New(rand.NewSource(2))); len(again) != 0 {
		t.Fatalf("double spawn: %d", len(again))
	}
}

func TestHissStepsTowardNearestTarget(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	h := NewHissSwarm(geom)
	e := &HissEntity{ID: uuid.New(), Pos: geometry.Key{Face: 0, Row: 10, Col: 10}, HP: 10}
	h.Entities[e.ID] = e

	target := geometry.Key{Face: 0, Row: 13, Col: 10}
	for i := 0; i < 2; i++ {
		h.Step([]geometry.Key{target})
	}
	if e.Pos != (geometry.Key{Face: 0, Row: 12, Col: 10}) {
		t.Fatalf("pos after 2 steps = %v", e.Pos)
	}
	arrived := h.Step([]geometry.Key{target})
	if len(arrived) != 1 || arrived[0].Pos != target {
		t.Fatalf("entity did not arrive: %v", e.Pos)
	}
}

func TestHissDamageAndDeath(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	h := NewHissSwarm(geom)
	e := &HissEntity{ID: uuid.New(), Pos: geometry.Key{Face: 0, Row: 1, Col: 1}, HP: 3}
	h.Entities[e.ID] = e

	if h.Damage(e.ID, 2) {
		t.Fatal("died too early")
	}
	if !h.Damage(e.ID, 2) {
		t.Fatal("should have died")
	}
	if len(h.Entities) != 0 {
		t.Fatal("dead entity still present")
	}
}

func TestCreatureSpawnRespectsCap(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	c := NewCreatures(geom, 2, 0)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		c.Spawn(uint64(i), geometry.Subdivisions, rng)
	}
	perFace := make(map[int]int)
	for _, w := range c.Wild {
		perFace[w.Pos.Face]++
	}
	for face, n := range perFace {
		if n > 2 {
			t.Fatalf("face %d has %d creatures, cap is 2", face, n)
		}
	}
}

func TestCaptureMovesToRoster(t *testing.T) {
	geom := geometry.NewTable(geometry.Subdivisions)
	c := NewCreatures(geom, 8, 0)
	rng := rand.New(rand.NewSource(1))
	spawned := c.Spawn(1, geometry.Subdivisions, rng)
	if len(spawned) == 0 {
		t.Fatal("nothing spawned")
	}
	owner := uuid.New()
	w := spawned[0]
	captured := c.Capture(w.ID, owner, 5)
	if captured == nil || captured.OwnerID != owner {
		t.Fatalf("capture = %+v", captured)
	}
	if _, stillWild := c.Wild[w.ID]; stillWild {
		t.Fatal("captured creature still wild")
	}
	if len(c.Roster[owner]) != 1 {
		t.Fatalf("roster = %d", len(c.Roster[owner]))
	}
}

func TestWorldEventCooldown(t *testing.T) {
	w := NewWorldEvents(500, map[EventKind]uint64{EventHissSurge: 150})
	rng := rand.New(rand.NewSource(1))

	first := w.Roll(100, rng)
	if first == nil {
		t.Fatal("first roll did not start an event")
	}
	for tick := uint64(101); tick <= 250; tick++ {
		w.Expire(tick)
	}
	if w.Active != nil {
		t.Fatal("event did not expire after its duration")
	}
	// Cooldown not elapsed: no new event.
	if again := w.Roll(300, rng); again != nil {
		t.Fatal("event started inside the cooldown window")
	}
	if again := w.Roll(700, rng); again == nil {
		t.Fatal("event did not start after the cooldown")
	}
}

func TestTerritoryDisjointness(t *testing.T) {
	terr := NewTerritory(8)
	alice, bob := uuid.New(), uuid.New()
	center := geometry.Key{Face: 0, Row: 30, Col: 30}

	if !terr.CanClaim(center, alice) {
		t.Fatal("first claim refused")
	}
	terr.Claim(center, alice)

	// Overlapping claim by another owner is refused.
	near := geometry.Key{Face: 0, Row: 30, Col: 40}
	if terr.CanClaim(near, bob) {
		t.Fatal("overlapping claim allowed for a different owner")
	}
	// The same owner may overlap their own claims.
	if !terr.CanClaim(near, alice) {
		t.Fatal("owner refused an overlap with their own claim")
	}
	// A far-away claim is fine.
	far := geometry.Key{Face: 0, Row: 30, Col: 50}
	if !terr.CanClaim(far, bob) {
		t.Fatal("disjoint claim refused")
	}
}

func TestResearchClearanceAdvances(t *testing.T) {
	r := NewResearch()
	owner := uuid.New()
	if r.Clearance(owner) != 0 {
		t.Fatal("fresh owner not at clearance 0")
	}
	r.Submit(owner, "iron_ingot", 10)
	if r.Clearance(owner) != 1 {
		t.Fatalf("clearance after 10 = %d, want 1", r.Clearance(owner))
	}
	r.Submit(owner, "iron_ingot", 20)
	if r.Clearance(owner) != 2 {
		t.Fatalf("clearance after 30 = %d, want 2", r.Clearance(owner))
	}
}
