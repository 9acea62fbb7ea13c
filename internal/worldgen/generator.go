// Package worldgen produces the seed-deterministic terrain, biome, and
// resource-vein layout for a fresh world. Same seed, same world: the
// generator draws everything from seeded noise and seeded RNG streams
// and never touches behaviour state.
package worldgen

import (
	"math/rand"

	"github.com/ojrac/opensimplex-go"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// Config holds the generation parameters.
type Config struct {
	Seed         uint64
	Subdivisions int

	// Vein tuning.
	VeinsPerFace   int
	VeinMinUnits   int
	VeinMaxUnits   int
	VeinMinTiles   int
	VeinMaxTiles   int
	AlteredPerFace int
}

// DefaultConfig returns the standard generation parameters.
func DefaultConfig(seed uint64) Config {
	return Config{
		Seed:           seed,
		Subdivisions:   geometry.Subdivisions,
		VeinsPerFace:   6,
		VeinMinUnits:   100,
		VeinMaxUnits:   500,
		VeinMinTiles:   5,
		VeinMaxTiles:   20,
		AlteredPerFace: 3,
	}
}

// Generator assigns terrain and resources deterministically from a seed.
// Two independent simplex fields drive it: a low-frequency terrain field
// that shapes where the neighbouring latitude band's biome bleeds into a
// face, and a jitter field that nudges each face's biome boundary.
type Generator struct {
	cfg     Config
	terrain opensimplex.Noise
	jitter  opensimplex.Noise
}

// New creates a generator for the given config. The two fields use
// offset seeds so they stay uncorrelated.
func New(cfg Config) *Generator {
	return &Generator{
		cfg:     cfg,
		terrain: opensimplex.New(int64(cfg.Seed)),
		jitter:  opensimplex.New(int64(cfg.Seed) + 1000),
	}
}

// faceJitter is a per-face latitude offset in [-0.05, 0.05], so two
// worlds with nearby seeds don't share identical biome bands.
func (g *Generator) faceJitter(face int) float64 {
	return g.jitter.Eval2(float64(face)*3.7, 0.5) * 0.05
}

// minorityPatch reports whether a tile falls inside one of the
// neighbour-biome patches. Three terrain-field octaves keep the ~30%
// minority share contiguous instead of speckled.
func (g *Generator) minorityPatch(face, row, col int) bool {
	x := float64(face*g.cfg.Subdivisions + col)
	y := float64(row)
	v := g.terrain.Eval2(x*0.05, y*0.05) +
		0.5*g.terrain.Eval2(x*0.1, y*0.1) +
		0.25*g.terrain.Eval2(x*0.2, y*0.2)
	return v/1.75 > 0.24
}

// faceBiome derives a face's base biome from the latitude (y component)
// of its centroid plus the face's jitter.
func (g *Generator) faceBiome(face int) store.Biome {
	y := geometry.FaceNormal(face).Y + g.faceJitter(face)
	switch {
	case y > 0.7:
		return store.Tundra
	case y > 0.3:
		return store.Forest
	case y > -0.3:
		return store.Grassland
	case y > -0.7:
		return store.Desert
	default:
		return store.Volcanic
	}
}

// neighborBiome is the biome a minority tile on a face leans toward:
// the base biome of the face one latitude band over.
func neighborBiome(b store.Biome) store.Biome {
	switch b {
	case store.Tundra:
		return store.Forest
	case store.Forest:
		return store.Grassland
	case store.Grassland:
		return store.Desert
	case store.Desert:
		return store.Volcanic
	default:
		return store.Desert
	}
}

// veinWeights returns the biome-conditional resource weights used when
// seeding ore veins (§4.C step 3).
func veinWeights(b store.Biome) map[items.ResourceKind]int {
	switch b {
	case store.Tundra:
		return map[items.ResourceKind]int{items.Ice: 5, items.Iron: 4, items.Quartz: 2, items.Titanium: 1}
	case store.Forest:
		return map[items.ResourceKind]int{items.Iron: 4, items.Copper: 4, items.Quartz: 2, items.Oil: 1}
	case store.Grassland:
		return map[items.ResourceKind]int{items.Iron: 4, items.Copper: 3, items.Quartz: 2, items.Oil: 2}
	case store.Desert:
		return map[items.ResourceKind]int{items.Oil: 4, items.Copper: 3, items.Sulfur: 2, items.Titanium: 2}
	default: // volcanic
		return map[items.ResourceKind]int{items.Sulfur: 5, items.Uranium: 3, items.Titanium: 2, items.Iron: 1}
	}
}

func weightedResource(rng *rand.Rand, weights map[items.ResourceKind]int) items.ResourceKind {
	total := 0
	for _, k := range items.AllResourceKinds {
		total += weights[k]
	}
	roll := rng.Intn(total)
	for _, k := range items.AllResourceKinds {
		roll -= weights[k]
		if roll < 0 {
			return k
		}
	}
	return items.Iron
}

// Generate builds the complete tile set and bulk-loads it into the
// store without dirty marking.
func (g *Generator) Generate(s *store.Store) {
	n := g.cfg.Subdivisions
	batch := make(map[store.Key]store.Tile, geometry.FaceCount*n*n)

	for face := 0; face < geometry.FaceCount; face++ {
		base := g.faceBiome(face)
		minority := neighborBiome(base)
		// Independent per-face streams: reseeding from (seed, face) keeps
		// one face's draw count from perturbing another's layout.
		rng := rand.New(rand.NewSource(int64(g.cfg.Seed) ^ int64(face)*0x9e3779b9))

		// Step 2: ~70% of tiles take the face biome, ~30% the neighbour
		// biome.
		for row := 0; row < n; row++ {
			for col := 0; col < n; col++ {
				terrain := base
				if g.minorityPatch(face, row, col) {
					terrain = minority
				}
				batch[store.Key{Face: face, Row: row, Col: col}] = store.Tile{Terrain: terrain}
			}
		}

		// Step 3: ore veins, clustered radially around a centre tile.
		weights := veinWeights(base)
		for i := 0; i < g.cfg.VeinsPerFace; i++ {
			kind := weightedResource(rng, weights)
			units := g.cfg.VeinMinUnits + rng.Intn(g.cfg.VeinMaxUnits-g.cfg.VeinMinUnits+1)
			tiles := g.cfg.VeinMinTiles + rng.Intn(g.cfg.VeinMaxTiles-g.cfg.VeinMinTiles+1)
			cr, cc := rng.Intn(n), rng.Intn(n)
			g.scatterVein(batch, face, cr, cc, kind, units, tiles, rng)
		}

		// Altered tiles: a handful of per-tile modifiers per face.
		for i := 0; i < g.cfg.AlteredPerFace; i++ {
			k := store.Key{Face: face, Row: rng.Intn(n), Col: rng.Intn(n)}
			t := batch[k]
			switch rng.Intn(3) {
			case 0:
				t.Altered = store.AlteredAccelerant
			case 1:
				t.Altered = store.AlteredDampener
			default:
				t.Altered = store.AlteredShiftingAnchor
			}
			batch[k] = t
		}
	}

	s.PutTiles(batch)
}

// scatterVein distributes units of one resource across up to tileCount
// tiles spiralling outward from the centre, clamping each tile's stock
// to the 0..500 range the tile format allows.
func (g *Generator) scatterVein(batch map[store.Key]store.Tile, face, cr, cc int, kind items.ResourceKind, units, tileCount int, rng *rand.Rand) {
	n := g.cfg.Subdivisions
	placed := 0
	perTile := units / tileCount
	if perTile < 1 {
		perTile = 1
	}
	for radius := 0; radius <= tileCount && placed < tileCount; radius++ {
		for dr := -radius; dr <= radius && placed < tileCount; dr++ {
			for dc := -radius; dc <= radius && placed < tileCount; dc++ {
				if abs(dr)+abs(dc) != radius {
					continue
				}
				r, c := cr+dr, cc+dc
				if r < 0 || r >= n || c < 0 || c >= n {
					continue
				}
				k := store.Key{Face: face, Row: r, Col: c}
				t := batch[k]
				if t.Resource != nil {
					continue
				}
				amount := perTile + rng.Intn(perTile+1) - perTile/2
				if amount < 1 {
					amount = 1
				}
				if amount > 500 {
					amount = 500
				}
				t.Resource = &store.ResourceStock{Kind: kind, Amount: uint16(amount)}
				batch[k] = t
				placed++
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
