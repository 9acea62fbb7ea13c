package entities

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/geometry"
)

// CreatureType determines the boost a captured creature grants when
// assigned to a building.
type CreatureType string

const (
	CreatureSprinter  CreatureType = "sprinter"  // speed
	CreatureTinkerer  CreatureType = "tinkerer"  // efficiency
	CreatureHoarder   CreatureType = "hoarder"   // output
	CreatureFarseer   CreatureType = "farseer"   // area
	CreatureBulwark   CreatureType = "bulwark"   // defense
	CreaturePrismatic CreatureType = "prismatic" // all
)

var allCreatureTypes = []CreatureType{
	CreatureSprinter, CreatureTinkerer, CreatureHoarder,
	CreatureFarseer, CreatureBulwark, CreaturePrismatic,
}

// BoostKind is the typed effect an assigned creature applies.
type BoostKind string

const (
	BoostSpeed      BoostKind = "speed"
	BoostEfficiency BoostKind = "efficiency"
	BoostOutput     BoostKind = "output"
	BoostArea       BoostKind = "area"
	BoostDefense    BoostKind = "defense"
	BoostAll        BoostKind = "all"
)

// BoostOf maps a creature type to its boost.
func BoostOf(t CreatureType) BoostKind {
	switch t {
	case CreatureSprinter:
		return BoostSpeed
	case CreatureTinkerer:
		return BoostEfficiency
	case CreatureHoarder:
		return BoostOutput
	case CreatureFarseer:
		return BoostArea
	case CreatureBulwark:
		return BoostDefense
	default:
		return BoostAll
	}
}

// WildCreature roams the world until captured or despawned.
type WildCreature struct {
	ID            uuid.UUID
	Type          CreatureType
	Pos           geometry.Key
	SpawnedAtTick uint64
}

// CapturedCreature lives in an owner's roster and may be assigned to a
// building.
type CapturedCreature struct {
	ID             uuid.UUID
	Type           CreatureType
	OwnerID        uuid.UUID
	AssignedTo     *geometry.Key
	CapturedAtTick uint64
}

// Creatures owns both the wild population and the per-owner rosters.
type Creatures struct {
	Wild   map[uuid.UUID]*WildCreature
	Roster map[uuid.UUID][]*CapturedCreature // keyed by owner

	capPerFace int
	ttlTicks   uint64
	geom       *geometry.Table
}

// NewCreatures returns an empty creature registry.
func NewCreatures(geom *geometry.Table, capPerFace int, ttlTicks uint64) *Creatures {
	return &Creatures{
		Wild:       make(map[uuid.UUID]*WildCreature),
		Roster:     make(map[uuid.UUID][]*CapturedCreature),
		capPerFace: capPerFace,
		ttlTicks:   ttlTicks,
		geom:       geom,
	}
}

// wildSorted returns the wild creatures ordered by position then id, the
// stable order the tick processor iterates in.
func (c *Creatures) wildSorted() []*WildCreature {
	out := make([]*WildCreature, 0, len(c.Wild))
	for _, w := range c.Wild {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Less(out[j].Pos)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Spawn attempts to add one wild creature per face that is still under
// the per-face cap. Returns the creatures spawned.
func (c *Creatures) Spawn(tick uint64, subdivisions int, rng *rand.Rand) []*WildCreature {
	perFace := make(map[int]int)
	for _, w := range c.Wild {
		perFace[w.Pos.Face]++
	}
	var spawned []*WildCreature
	for face := 0; face < geometry.FaceCount; face++ {
		if perFace[face] >= c.capPerFace {
			continue
		}
		w := &WildCreature{
			ID:            deterministicUUID(rng),
			Type:          allCreatureTypes[rng.Intn(len(allCreatureTypes))],
			Pos:           geometry.Key{Face: face, Row: rng.Intn(subdivisions), Col: rng.Intn(subdivisions)},
			SpawnedAtTick: tick,
		}
		c.Wild[w.ID] = w
		spawned = append(spawned, w)
	}
	return spawned
}

// Move steps every wild creature uniformly into one of its four
// neighbours, and despawns creatures past their TTL. Returns the ids of
// creatures that moved or despawned.
func (c *Creatures) Move(tick uint64, rng *rand.Rand) (moved, despawned []uuid.UUID) {
	for _, w := range c.wildSorted() {
		if c.ttlTicks > 0 && tick-w.SpawnedAtTick > c.ttlTicks {
			delete(c.Wild, w.ID)
			despawned = append(despawned, w.ID)
			continue
		}
		d := geometry.Direction(rng.Intn(4))
		w.Pos = c.geom.Neighbor(w.Pos, d).Key
		moved = append(moved, w.ID)
	}
	return moved, despawned
}

// WildNear returns the wild creatures on the same face within Manhattan
// radius r of center, in stable order.
func (c *Creatures) WildNear(center geometry.Key, r int) []*WildCreature {
	var out []*WildCreature
	for _, w := range c.wildSorted() {
		if w.Pos.Face == center.Face && geometry.ManhattanInFace(w.Pos, center) <= r {
			out = append(out, w)
		}
	}
	return out
}

// Capture moves a wild creature into an owner's roster.
func (c *Creatures) Capture(id, owner uuid.UUID, tick uint64) *CapturedCreature {
	w, ok := c.Wild[id]
	if !ok {
		return nil
	}
	delete(c.Wild, id)
	cap := &CapturedCreature{
		ID:             w.ID,
		Type:           w.Type,
		OwnerID:        owner,
		CapturedAtTick: tick,
	}
	c.Roster[owner] = append(c.Roster[owner], cap)
	return cap
}

// AssignedTo returns the captured creature assigned to the given
// building key, if any.
func (c *Creatures) AssignedTo(key geometry.Key) *CapturedCreature {
	for _, roster := range c.Roster {
		for _, cc := range roster {
			if cc.AssignedTo != nil && *cc.AssignedTo == key {
				return cc
			}
		}
	}
	return nil
}

// deterministicUUID draws a v4-shaped UUID from the given RNG so entity
// ids stay reproducible under the determinism contract.
func deterministicUUID(rng *rand.Rand) uuid.UUID {
	var b [16]byte
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return uuid.UUID(b)
}
