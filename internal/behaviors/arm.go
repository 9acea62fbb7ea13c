package behaviors

import (
	"sort"

	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// tickArm moves items from the arm's source tile to its destination
// tile, one per tick (more with the stack upgrade). Arms require power;
// the dispatcher already gated on that.
func tickArm(ctx *Context, key store.Key, b *store.Building) bool {
	a := b.State.Arm
	if a == nil {
		return false
	}
	if a.Source.Face != key.Face || a.Destination.Face != key.Face {
		return false
	}
	maxRange := ctx.Balance.Arm.MaxRangeManhattan
	if geometry.ManhattanInFace(a.Source, key) > maxRange || geometry.ManhattanInFace(a.Destination, key) > maxRange {
		return false
	}
	count := 1
	if a.StackUpgrade {
		count = ctx.Balance.Arm.StackUpgradeCount
	}
	moved := false
	for i := 0; i < count; i++ {
		item, ok := armExtract(ctx, a.Source)
		if !ok {
			break
		}
		if !armInsert(ctx, a.Destination, item) {
			// Destination refused; put the item back where it came from.
			armUndoExtract(ctx, a.Source, item)
			break
		}
		moved = true
		ctx.Store.PutBuilding(a.Source, mustGet(ctx, a.Source))
		ctx.Store.PutBuilding(a.Destination, mustGet(ctx, a.Destination))
	}
	return moved
}

func mustGet(ctx *Context, k store.Key) *store.Building {
	b, _ := ctx.Store.GetBuilding(k)
	return b
}

// armExtract pulls one item out of the building at the source tile.
// Extractable are a storage container's stored count (never its pending
// inserts), the leading slot of a conveyor, and the output buffer of a
// production building or extractor.
func armExtract(ctx *Context, src store.Key) (items.Kind, bool) {
	b, err := ctx.Store.GetBuilding(src)
	if err != nil || b.Construction != nil {
		return "", false
	}
	switch {
	case b.State.Storage != nil:
		st := b.State.Storage
		for _, kind := range sortedKinds(st.Counts) {
			if st.Counts[kind] > 0 {
				st.Counts[kind]--
				if st.Counts[kind] == 0 {
					delete(st.Counts, kind)
				}
				return kind, true
			}
		}
	case b.State.Conveyor != nil:
		c := b.State.Conveyor
		if c.Slots[0] != nil {
			item := *c.Slots[0]
			c.Slots[0] = nil
			return item, true
		}
	case b.State.Production != nil:
		p := b.State.Production
		if p.OutputBuffer != nil {
			item := *p.OutputBuffer
			clearProductionOutput(p)
			return item, true
		}
	case b.State.Extractor != nil:
		e := b.State.Extractor
		if e.Output != nil {
			item := *e.Output
			e.Output = nil
			return item, true
		}
	}
	return "", false
}

// armUndoExtract reverses a failed transfer so no item is lost. The
// reinsertion targets the same structure the item came out of.
func armUndoExtract(ctx *Context, src store.Key, item items.Kind) {
	b, err := ctx.Store.GetBuilding(src)
	if err != nil {
		// Source vanished mid-tick; drop on the ground rather than lose
		// the item.
		ctx.Store.GroundAdd(src, item, 1)
		return
	}
	switch {
	case b.State.Storage != nil:
		b.State.Storage.Counts[item]++
	case b.State.Conveyor != nil && b.State.Conveyor.Slots[0] == nil:
		v := item
		b.State.Conveyor.Slots[0] = &v
	case b.State.Production != nil && b.State.Production.OutputBuffer == nil:
		v := item
		b.State.Production.OutputBuffer = &v
	case b.State.Extractor != nil && b.State.Extractor.Output == nil:
		v := item
		b.State.Extractor.Output = &v
	default:
		ctx.Store.GroundAdd(src, item, 1)
	}
}

// armInsert places one item into the building at the destination tile.
// Storage containers take it into their pending-insert ledger, which
// consolidates at end of tick — the invariant that keeps an item from
// crossing more than one arm hop per tick.
func armInsert(ctx *Context, dst store.Key, item items.Kind) bool {
	b, err := ctx.Store.GetBuilding(dst)
	if err != nil {
		return false
	}
	if b.Construction != nil {
		return acceptConstruction(b, item)
	}
	switch {
	case b.State.Storage != nil:
		b.State.Storage.Inserted[item]++
		return true
	case b.State.Production != nil:
		return acceptProduction(ctx, b, item)
	case b.State.Terminal != nil:
		b.State.Terminal.Buffer[item]++
		return true
	case b.State.Conveyor != nil:
		c := b.State.Conveyor
		tail := c.Tier - 1
		if c.Slots[tail] == nil {
			v := item
			c.Slots[tail] = &v
			return true
		}
	case b.State.Power != nil && b.Kind == store.KindBioGenerator:
		return acceptFuel(b, item)
	}
	return false
}

// ConsolidateStorage folds pending arm inserts into the stored count at
// end of tick.
func ConsolidateStorage(b *store.Building) {
	st := b.State.Storage
	if st == nil {
		return
	}
	for kind, n := range st.Inserted {
		st.Counts[kind] += n
	}
	if len(st.Inserted) > 0 {
		st.Inserted = make(map[items.Kind]int)
	}
}

func sortedKinds(m map[items.Kind]int) []items.Kind {
	out := make([]items.Kind, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
