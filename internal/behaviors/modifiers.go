package behaviors

import (
	"math"

	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/store"
)

// shiftBiomeModifier is the phase x biome term of the modifier stack.
// Entries absent from the table are 1.0.
var shiftBiomeModifier = map[entities.Phase]map[store.Biome]float64{
	entities.PhaseZenith: {
		store.Desert:   1.1, // heat haze slows the line
		store.Volcanic: 1.1,
		store.Tundra:   0.95,
	},
	entities.PhaseNadir: {
		store.Tundra:   1.15, // deep cold
		store.Volcanic: 0.9,  // vents run hot at night
	},
}

// creatureRateModifier is the creature-boost term for the boosts that
// affect rate; area/defense/output boosts act elsewhere.
var creatureRateModifier = map[entities.BoostKind]float64{
	entities.BoostSpeed:      0.8,
	entities.BoostEfficiency: 0.9,
	entities.BoostAll:        0.9,
}

// alteredRateModifier is the altered-effect term.
var alteredRateModifier = map[store.AlteredKind]float64{
	store.AlteredAccelerant: 1.0 / 1.5,
	store.AlteredDampener:   1.0 / 0.75,
}

// EffectiveRate computes a building's working rate in ticks. The stack
// order is fixed: base, shift-cycle biome modifier, creature boost,
// altered effect, object-of-power bonus, world-event multiplier.
// Missing modifiers default to 1.0 and the result never drops below one
// tick.
func EffectiveRate(ctx *Context, key store.Key, b *store.Building, base int) int {
	m := 1.0

	if ctx.Shift != nil {
		if tile, err := ctx.Store.GetTile(key); err == nil {
			if byBiome, ok := shiftBiomeModifier[ctx.Shift.Phase]; ok {
				if v, ok := byBiome[tile.Terrain]; ok {
					m *= v
				}
			}
		}
	}

	if ctx.Creatures != nil {
		if cc := ctx.Creatures.AssignedTo(key); cc != nil {
			if v, ok := creatureRateModifier[entities.BoostOf(cc.Type)]; ok {
				m *= v
			}
		}
	}

	if tile, err := ctx.Store.GetTile(key); err == nil {
		if v, ok := alteredRateModifier[tile.Altered]; ok {
			m *= v
		}
	}

	if ctx.Research != nil {
		m *= ctx.Research.ObjectOfPowerMultiplier(b.OwnerID)
	}

	if ctx.Events != nil {
		m *= ctx.Events.RateMultiplier()
	}

	rate := int(math.Round(float64(base) * m))
	if rate < 1 {
		rate = 1
	}
	return rate
}

// OutputBonus is the extra output quantity granted by an assigned
// output-boost creature.
func OutputBonus(ctx *Context, key store.Key) int {
	if ctx.Creatures == nil {
		return 0
	}
	cc := ctx.Creatures.AssignedTo(key)
	if cc == nil {
		return 0
	}
	switch entities.BoostOf(cc.Type) {
	case entities.BoostOutput, entities.BoostAll:
		return 1
	}
	return 0
}

// AreaBonus is the extra radius granted by an assigned area-boost
// creature (extractor adjacency, drone range).
func AreaBonus(ctx *Context, key store.Key) int {
	if ctx.Creatures == nil {
		return 0
	}
	cc := ctx.Creatures.AssignedTo(key)
	if cc == nil {
		return 0
	}
	switch entities.BoostOf(cc.Type) {
	case entities.BoostArea, entities.BoostAll:
		return 1
	}
	return 0
}

// DefenseBonus is the extra radius granted to turrets by an assigned
// defense-boost creature.
func DefenseBonus(ctx *Context, key store.Key) int {
	if ctx.Creatures == nil {
		return 0
	}
	cc := ctx.Creatures.AssignedTo(key)
	if cc == nil {
		return 0
	}
	switch entities.BoostOf(cc.Type) {
	case entities.BoostDefense, entities.BoostAll:
		return 1
	}
	return 0
}
