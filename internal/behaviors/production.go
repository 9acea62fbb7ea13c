package behaviors

import (
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// recipeTableFor returns the recipe table backing a production building.
func recipeTableFor(ctx *Context, kind store.BuildingKind) (*items.Table, bool) {
	return ctx.Recipes.Get(string(kind))
}

// tickProduction advances the Idle -> Processing -> Drain state machine
// shared by every crafting building.
func tickProduction(ctx *Context, key store.Key, b *store.Building) bool {
	p := b.State.Production
	if p == nil {
		return false
	}
	if p.RequiresCreature && ctx.Creatures.AssignedTo(key) == nil {
		return false
	}
	table, ok := recipeTableFor(ctx, b.Kind)
	if !ok {
		return false
	}

	switch p.Phase {
	case store.PhaseIdle:
		// Idle -> Processing when every slot holds its recipe item in
		// the required quantity and no drain is pending.
		if p.OutputBuffer != nil {
			p.Phase = store.PhaseDrain
			return true
		}
		if _, ok := table.MatchSlots(p.Slots); ok {
			p.Phase = store.PhaseProcessing
			p.Progress = 0
			return true
		}
		return false

	case store.PhaseProcessing:
		recipe, ok := table.MatchSlots(p.Slots)
		if !ok {
			// Inputs vanished (eject); fall back to idle.
			p.Phase = store.PhaseIdle
			p.Progress = 0
			return true
		}
		p.Progress++
		rate := EffectiveRate(ctx, key, b, baseRate[b.Kind])
		if p.Progress < rate {
			return true
		}
		// Consume inputs, load the output buffer, start draining.
		for slot, need := range recipe.Inputs {
			got := p.Slots[slot]
			got.Qty -= need.Qty
			if got.Qty <= 0 {
				delete(p.Slots, slot)
			} else {
				p.Slots[slot] = got
			}
		}
		out := recipe.Output.Item
		qty := recipe.Output.Qty + OutputBonus(ctx, key)
		p.SelectedRecipe = recipe.ID
		p.OutputBuffer = &out
		p.OutputRemaining = qty - 1
		p.Progress = 0
		p.Phase = store.PhaseDrain
		return true

	case store.PhaseDrain:
		// The push phase clears the buffer; once both the buffer and the
		// remaining count are exhausted, return to idle.
		if p.OutputBuffer == nil && p.OutputRemaining == 0 {
			p.Phase = store.PhaseIdle
			return true
		}
	}
	return false
}

// acceptProduction implements try_accept_item for the production
// template: an item lands in slot k iff some recipe uses it in slot k
// and the other non-empty slots stay consistent with that recipe, and
// the slot isn't already full for the selected recipe.
func acceptProduction(ctx *Context, b *store.Building, item items.Kind) bool {
	p := b.State.Production
	if p == nil {
		return false
	}
	table, ok := recipeTableFor(ctx, b.Kind)
	if !ok {
		return false
	}
	for _, r := range table.Recipes {
		for slot, need := range r.Inputs {
			if need.Item != item {
				continue
			}
			if !slotsConsistent(p.Slots, r, slot) {
				continue
			}
			got := p.Slots[slot]
			if got.Item == item && got.Qty >= need.Qty {
				continue // slot already full for this recipe
			}
			got.Item = item
			got.Qty++
			p.Slots[slot] = got
			return true
		}
	}
	return false
}

// slotsConsistent reports whether every occupied slot other than the
// candidate matches recipe r's requirements for that slot.
func slotsConsistent(slots map[int]items.Ingredient, r items.Recipe, candidate int) bool {
	for slot, got := range slots {
		if slot == candidate {
			if got.Item != r.Inputs[slot].Item && got.Qty > 0 {
				return false
			}
			continue
		}
		need, ok := r.Inputs[slot]
		if !ok || need.Item != got.Item {
			return false
		}
	}
	return true
}
