package behaviors

import (
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// tickTrap scans for wild creatures in radius; contact winds up the
// capture counter, and at the threshold the first creature in range (in
// tile-key order) joins the owner's roster.
func tickTrap(ctx *Context, key store.Key, b *store.Building) (*entities.WildCreature, bool) {
	t := b.State.Trap
	if t == nil {
		return nil, false
	}
	radius := ctx.Balance.Creature.CaptureRadius + AreaBonus(ctx, key)
	near := ctx.Creatures.WildNear(key, radius)
	if len(near) == 0 {
		changed := t.CaptureProgress != 0
		t.CaptureProgress = 0
		return nil, changed
	}
	t.CaptureProgress++
	if t.CaptureProgress < ctx.Balance.Creature.CaptureThreshold {
		return nil, true
	}
	t.CaptureProgress = 0
	captured := near[0]
	ctx.Creatures.Capture(captured.ID, b.OwnerID, ctx.Tick)
	return captured, true
}

// tickTurret attacks one hiss entity in radius per tick; a kill drops
// hiss residue into the turret's output buffer.
func tickTurret(ctx *Context, key store.Key, b *store.Building) int {
	t := b.State.Turret
	if t == nil {
		return 0
	}
	radius := ctx.Balance.Hiss.TurretRadius + DefenseBonus(ctx, key)
	near := ctx.Hiss.Near(key, radius)
	if len(near) == 0 {
		return 0
	}
	const turretDamage = 2
	if ctx.Hiss.Damage(near[0].ID, turretDamage) {
		if t.Output == nil {
			residue := items.ItemHissResidue
			t.Output = &residue
		} else {
			// Output still occupied: residue lands on the ground instead.
			ctx.Store.GroundAdd(key, items.ItemHissResidue, 1)
		}
		return 1
	}
	return 0
}

// fuelValueTicks maps accepted fuel items to generator burn time.
var fuelValueTicks = map[items.Kind]int{
	items.ItemRefinedFuel: 600,
	items.ItemHissResidue: 300,
}

// acceptFuel feeds a bio generator.
func acceptFuel(b *store.Building, item items.Kind) bool {
	v, ok := fuelValueTicks[item]
	if !ok || b.State.Power == nil {
		return false
	}
	b.State.Power.FuelRemainingTicks += v
	return true
}

// acceptConstruction delivers an item to a construction site: only
// items present in the required map are taken, and never beyond the
// required count.
func acceptConstruction(b *store.Building, item items.Kind) bool {
	c := b.Construction
	if c == nil {
		return false
	}
	need, ok := c.Required[item]
	if !ok || c.Delivered[item] >= need {
		return false
	}
	if c.Delivered == nil {
		c.Delivered = make(map[items.Kind]uint16)
	}
	c.Delivered[item]++
	return true
}

// FinishConstruction completes a construction site in place, installing
// the kind's fresh behaviour state.
func FinishConstruction(ctx *Context, b *store.Building) {
	b.Construction = nil
	b.State = InitialState(b.Kind, ctx.Balance)
}

// clearProductionOutput advances the drain after a successful push: the
// next item of the same type loads while output remains, else the
// buffer empties.
func clearProductionOutput(p *store.ProductionState) {
	if p.OutputRemaining > 0 {
		p.OutputRemaining--
		return // buffer keeps the same item kind
	}
	p.OutputBuffer = nil
}
