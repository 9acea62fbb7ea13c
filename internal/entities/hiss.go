package entities

import (
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/geometry"
)

// HissEntity is a hostile mob spawned from high-intensity corruption.
type HissEntity struct {
	ID     uuid.UUID
	Pos    geometry.Key
	HP     int
	Target *geometry.Key
}

// Corruption is the sparse tile -> intensity field. Absent keys are
// intensity zero; present values are clamped to [1, max].
type Corruption struct {
	Field map[geometry.Key]int
	max   int
}

// NewCorruption returns an empty corruption field with the given
// intensity ceiling.
func NewCorruption(max int) *Corruption {
	return &Corruption{Field: make(map[geometry.Key]int), max: max}
}

// Intensity returns the corruption level at a tile (0 when absent).
func (c *Corruption) Intensity(k geometry.Key) int {
	return c.Field[k]
}

// Set writes an intensity, clamping to [0, max] and deleting at zero.
func (c *Corruption) Set(k geometry.Key, v int) {
	if v <= 0 {
		delete(c.Field, k)
		return
	}
	if v > c.max {
		v = c.max
	}
	c.Field[k] = v
}

// Seed plants an initial corruption hot-spot.
func (c *Corruption) Seed(k geometry.Key, intensity int) {
	c.Set(k, intensity)
}

// keysSorted returns the corrupted keys in lexicographic order for
// deterministic iteration.
func (c *Corruption) keysSorted() []geometry.Key {
	keys := make([]geometry.Key, 0, len(c.Field))
	for k := range c.Field {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Spread runs one corruption-spread pass: each tile with intensity >= 2
// has probability i/20 (doubled under a hiss surge) of incrementing a
// uniform-random neighbour. Returns the tiles whose intensity changed.
func (c *Corruption) Spread(geom *geometry.Table, rng *rand.Rand, surge bool) []geometry.Key {
	var changed []geometry.Key
	for _, k := range c.keysSorted() {
		i := c.Field[k]
		if i < 2 {
			continue
		}
		p := float64(i) / 20
		if surge {
			p *= 2
		}
		if rng.Float64() >= p {
			continue
		}
		n := geom.Neighbor(k, geometry.Direction(rng.Intn(4))).Key
		before := c.Field[n]
		c.Set(n, before+1)
		if c.Field[n] != before {
			changed = append(changed, n)
		}
	}
	return changed
}

// Purify reduces intensity by one on every corrupted tile inside any of
// the given protective fields (beacon/stabilizer centres with radii).
// Returns the tiles that changed.
func (c *Corruption) Purify(fields []ProtectiveField) []geometry.Key {
	var changed []geometry.Key
	for _, k := range c.keysSorted() {
		for _, f := range fields {
			if k.Face != f.Center.Face || geometry.ManhattanInFace(k, f.Center) > f.Radius {
				continue
			}
			c.Set(k, c.Field[k]-1)
			changed = append(changed, k)
			break
		}
	}
	return changed
}

// ProtectiveField is a purification beacon or dimensional stabilizer
// footprint.
type ProtectiveField struct {
	Center geometry.Key
	Radius int
}

// HissSwarm owns the live hiss entities.
type HissSwarm struct {
	Entities map[uuid.UUID]*HissEntity
	geom     *geometry.Table
}

// NewHissSwarm returns an empty swarm.
func NewHissSwarm(geom *geometry.Table) *HissSwarm {
	return &HissSwarm{Entities: make(map[uuid.UUID]*HissEntity), geom: geom}
}

// SortedEntities returns the live hiss entities in stable order.
func (h *HissSwarm) SortedEntities() []*HissEntity {
	return h.sorted()
}

func (h *HissSwarm) sorted() []*HissEntity {
	out := make([]*HissEntity, 0, len(h.Entities))
	for _, e := range h.Entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos != out[j].Pos {
			return out[i].Pos.Less(out[j].Pos)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// SpawnFrom spawns one hiss entity on each corruption tile at or above
// the spawn threshold that doesn't already host one. Returns the new
// entities.
func (h *HissSwarm) SpawnFrom(c *Corruption, minIntensity, hp int, rng *rand.Rand) []*HissEntity {
	occupied := make(map[geometry.Key]bool, len(h.Entities))
	for _, e := range h.Entities {
		occupied[e.Pos] = true
	}
	var spawned []*HissEntity
	for _, k := range c.keysSorted() {
		if c.Field[k] < minIntensity || occupied[k] {
			continue
		}
		e := &HissEntity{ID: deterministicUUID(rng), Pos: k, HP: hp}
		h.Entities[e.ID] = e
		spawned = append(spawned, e)
	}
	return spawned
}

// Step moves every hiss entity one tile toward its target, re-acquiring
// the nearest key in targets (owned buildings) first. Entities step
// through intervening tiles; buildings do not block them. Returns the
// entities now standing on their target tile, ready to attack.
func (h *HissSwarm) Step(targets []geometry.Key) []*HissEntity {
	var arrived []*HissEntity
	for _, e := range h.sorted() {
		e.Target = nearestKey(e.Pos, targets)
		if e.Target == nil {
			continue
		}
		if e.Pos == *e.Target {
			arrived = append(arrived, e)
			continue
		}
		e.Pos = h.stepToward(e.Pos, *e.Target)
		if e.Pos == *e.Target {
			arrived = append(arrived, e)
		}
	}
	return arrived
}

// stepToward advances one tile toward the target, row-first on the same
// face; off-face targets walk toward the nearer of the west and east
// seams.
func (h *HissSwarm) stepToward(from, to geometry.Key) geometry.Key {
	var d geometry.Direction
	switch {
	case from.Face != to.Face:
		// Walk toward the nearer of the west and east seams; crossing
		// re-targets naturally next step.
		d = geometry.West
		if from.Col >= h.geom.Size()/2 {
			d = geometry.East
		}
	case from.Row < to.Row:
		d = geometry.South
	case from.Row > to.Row:
		d = geometry.North
	case from.Col < to.Col:
		d = geometry.East
	default:
		d = geometry.West
	}
	return h.geom.Neighbor(from, d).Key
}

// Damage applies damage to an entity; at zero HP the entity dies and is
// removed. Reports whether it died.
func (h *HissSwarm) Damage(id uuid.UUID, dmg int) bool {
	e, ok := h.Entities[id]
	if !ok {
		return false
	}
	e.HP -= dmg
	if e.HP <= 0 {
		delete(h.Entities, id)
		return true
	}
	return false
}

// Near returns hiss entities on the same face within Manhattan radius r
// of center, in stable order.
func (h *HissSwarm) Near(center geometry.Key, r int) []*HissEntity {
	var out []*HissEntity
	for _, e := range h.sorted() {
		if e.Pos.Face == center.Face && geometry.ManhattanInFace(e.Pos, center) <= r {
			out = append(out, e)
		}
	}
	return out
}

func nearestKey(from geometry.Key, keys []geometry.Key) *geometry.Key {
	var best *geometry.Key
	bestDist := 0
	for i, k := range keys {
		d := geometry.ManhattanInFace(from, k)
		if k.Face != from.Face {
			// Cross-face targets rank behind any same-face target.
			d += 1 << 16
		}
		if best == nil || d < bestDist || (d == bestDist && k.Less(*best)) {
			best = &keys[i]
			bestDist = d
		}
	}
	return best
}
