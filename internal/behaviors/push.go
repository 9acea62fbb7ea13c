package behaviors

import (
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// Flight is one item crossing between tiles this tick, recorded for the
// per-face change-set.
type Flight struct {
	From store.Key
	To   store.Key
	Item items.Kind
}

// Left and Right are relative to a facing direction: a splitter facing
// East splits to South (left) and North (right).
func Left(d geometry.Direction) geometry.Direction {
	return (d + 3) % 4
}

func Right(d geometry.Direction) geometry.Direction {
	return (d + 1) % 4
}

// ResolvePushes runs the push phase: every building with a non-empty
// output slot attempts to place its item into the downstream neighbour,
// in lexicographic source order. An item is always in exactly one slot
// of exactly one building; the push commits atomically or not at all.
func ResolvePushes(ctx *Context) []Flight {
	var flights []Flight
	for _, key := range ctx.Store.AllBuildingKeysSorted() {
		b, err := ctx.Store.GetBuilding(key)
		if err != nil || b.Construction != nil || b.Disabled {
			continue
		}
		flights = append(flights, pushFrom(ctx, key, b)...)
	}
	return flights
}

// pushFrom resolves one source building's outgoing pushes.
func pushFrom(ctx *Context, key store.Key, b *store.Building) []Flight {
	var flights []Flight
	facing := geometry.Direction(b.Orientation)

	record := func(to store.Key, item items.Kind) {
		flights = append(flights, Flight{From: key, To: to, Item: item})
		ctx.Store.PutBuilding(key, b)
	}

	switch {
	case b.State.Production != nil:
		p := b.State.Production
		if p.OutputBuffer != nil {
			item := *p.OutputBuffer
			if to, ok := tryPush(ctx, key, facing, item, true); ok {
				clearProductionOutput(p)
				record(to, item)
			}
		}

	case b.State.Extractor != nil:
		e := b.State.Extractor
		if e.Output != nil {
			item := *e.Output
			if to, ok := tryPush(ctx, key, facing, item, true); ok {
				e.Output = nil
				record(to, item)
			}
		}

	case b.State.Turret != nil:
		t := b.State.Turret
		if t.Output != nil {
			item := *t.Output
			if to, ok := tryPush(ctx, key, facing, item, false); ok {
				t.Output = nil
				record(to, item)
			}
		}

	case b.State.Conveyor != nil:
		c := b.State.Conveyor
		if c.Slots[0] != nil {
			item := *c.Slots[0]
			if to, ok := tryPush(ctx, key, facing, item, false); ok {
				c.Slots[0] = nil
				record(to, item)
			}
		}
		// Internal FIFO advance: each trailing item moves one slot
		// toward the head.
		moved := false
		for i := 0; i < c.Tier-1; i++ {
			if c.Slots[i] == nil && c.Slots[i+1] != nil {
				c.Slots[i], c.Slots[i+1] = c.Slots[i+1], nil
				moved = true
			}
		}
		if moved {
			ctx.Store.PutBuilding(key, b)
		}

	case b.State.Conduit != nil:
		cd := b.State.Conduit
		if cd.Held != nil && cd.LinkedTo != nil {
			partner, err := ctx.Store.GetBuilding(*cd.LinkedTo)
			if err == nil && partner.State.Conduit != nil {
				item := *cd.Held
				outDir := geometry.Direction(partner.Orientation)
				if to, ok := tryPushAt(ctx, *cd.LinkedTo, outDir, item); ok {
					cd.Held = nil
					record(to, item)
				}
			}
		}

	case b.State.Router != nil:
		flights = append(flights, pushRouter(ctx, key, b)...)
	}
	return flights
}

// pushRouter resolves the routing policies of §4.D.3.
func pushRouter(ctx *Context, key store.Key, b *store.Building) []Flight {
	r := b.State.Router
	facing := geometry.Direction(b.Orientation)
	var flights []Flight

	attempt := func(item items.Kind, dirs []geometry.Direction) (geometry.Direction, store.Key, bool) {
		for _, d := range dirs {
			if to, ok := tryPush(ctx, key, d, item, false); ok {
				return d, to, true
			}
		}
		return 0, store.Key{}, false
	}
	record := func(to store.Key, item items.Kind) {
		flights = append(flights, Flight{From: key, To: to, Item: item})
		ctx.Store.PutBuilding(key, b)
	}

	switch r.Router {
	case store.RouterSplitter:
		if r.Held == nil {
			break
		}
		item := *r.Held
		order := []geometry.Direction{Left(facing), Right(facing)}
		if r.AltBit {
			order = []geometry.Direction{Right(facing), Left(facing)}
		}
		if d, to, ok := attempt(item, order); ok {
			r.Held = nil
			// Alternate per successful push; a fully blocked pair leaves
			// the bit untouched.
			r.AltBit = d == Left(facing)
			record(to, item)
		}

	case store.RouterBalancer:
		if r.Held == nil {
			break
		}
		item := *r.Held
		l, rr := Left(facing), Right(facing)
		lFree := destFreeSlots(ctx, key, l)
		rFree := destFreeSlots(ctx, key, rr)
		order := []geometry.Direction{l, rr}
		switch {
		case rFree > lFree:
			order = []geometry.Direction{rr, l}
		case rFree == lFree && r.AltBit:
			order = []geometry.Direction{rr, l}
		}
		if d, to, ok := attempt(item, order); ok {
			r.Held = nil
			r.AltBit = d == l
			record(to, item)
		}

	case store.RouterFilteredSplitter:
		if r.Held == nil {
			break
		}
		item := *r.Held
		var dirs []geometry.Direction
		switch {
		case item == r.FilterItem:
			dirs = []geometry.Direction{Left(facing)}
		case r.DualFilter:
			dirs = []geometry.Direction{facing}
		default:
			dirs = []geometry.Direction{Right(facing)}
		}
		if _, to, ok := attempt(item, dirs); ok {
			r.Held = nil
			record(to, item)
		}

	case store.RouterOverflowGate:
		if r.Held == nil {
			break
		}
		item := *r.Held
		if _, to, ok := attempt(item, []geometry.Direction{facing, Left(facing)}); ok {
			r.Held = nil
			record(to, item)
		}

	case store.RouterMerger, store.RouterPriorityMerger:
		if r.Held == nil {
			break
		}
		item := *r.Held
		if _, to, ok := attempt(item, []geometry.Direction{facing}); ok {
			r.Held = nil
			record(to, item)
		}

	case store.RouterCrossover:
		if r.HeldH != nil {
			item := *r.HeldH
			if to, ok := tryPush(ctx, key, geometry.Direction(r.HeldHDir), item, false); ok {
				r.HeldH = nil
				record(to, item)
			}
		}
		if r.HeldV != nil {
			item := *r.HeldV
			if to, ok := tryPush(ctx, key, geometry.Direction(r.HeldVDir), item, false); ok {
				r.HeldV = nil
				record(to, item)
			}
		}
	}
	return flights
}

// destFreeSlots counts how many more items the neighbour in direction d
// could take, for the balancer's less-full routing.
func destFreeSlots(ctx *Context, key store.Key, d geometry.Direction) int {
	n := ctx.Geom.Neighbor(key, d)
	b, err := ctx.Store.GetBuilding(n.Key)
	if err != nil || b.Construction != nil || b.Disabled {
		return -1
	}
	switch {
	case b.State.Conveyor != nil:
		free := 0
		for _, s := range b.State.Conveyor.Slots {
			if s == nil {
				free++
			}
		}
		return free
	case b.State.Router != nil:
		if b.State.Router.Held == nil {
			return 1
		}
		return 0
	case b.State.Storage != nil, b.State.Terminal != nil:
		return 2
	case b.State.Production != nil:
		return 1
	}
	return 0
}

// tryPush resolves a push out of source in direction d, honouring the
// shifting-anchor altered effect for producer-class sources.
func tryPush(ctx *Context, source store.Key, d geometry.Direction, item items.Kind, producerClass bool) (store.Key, bool) {
	skip := 0
	if producerClass {
		if tile, err := ctx.Store.GetTile(source); err == nil && tile.Altered == store.AlteredShiftingAnchor {
			skip = 1
			if ctx.Events != nil && ctx.Events.IsActive(entities.EventResonanceCascade) {
				skip = 2
			}
		}
	}
	pos := source
	dir := d
	for i := 0; i <= skip; i++ {
		n := ctx.Geom.Neighbor(pos, dir)
		pos, dir = n.Key, n.Dir
	}
	if accept(ctx, pos, dir, item) {
		return pos, true
	}
	return store.Key{}, false
}

// tryPushAt is tryPush anchored at an explicit origin tile (used by the
// underground conduit, whose item exits at the partner's forward
// neighbour).
func tryPushAt(ctx *Context, origin store.Key, d geometry.Direction, item items.Kind) (store.Key, bool) {
	n := ctx.Geom.Neighbor(origin, d)
	if accept(ctx, n.Key, n.Dir, item) {
		return n.Key, true
	}
	return store.Key{}, false
}

// accept commits an item into the destination tile's building if it can
// take it. travelDir is the item's direction of travel in the
// destination's basis (post seam remap).
func accept(ctx *Context, dest store.Key, travelDir geometry.Direction, item items.Kind) bool {
	b, err := ctx.Store.GetBuilding(dest)
	if err != nil || b.Disabled {
		return false
	}
	if b.Construction != nil {
		if acceptConstruction(b, item) {
			ctx.Store.PutBuilding(dest, b)
			return true
		}
		return false
	}
	ok := acceptInto(ctx, dest, b, travelDir, item)
	if ok {
		ctx.Store.PutBuilding(dest, b)
	}
	return ok
}

// acceptInto is the per-kind acceptance check and commit.
func acceptInto(ctx *Context, dest store.Key, b *store.Building, travelDir geometry.Direction, item items.Kind) bool {
	facing := geometry.Direction(b.Orientation)
	enteredFrom := travelDir.Opposite()

	switch {
	case b.State.Conveyor != nil:
		c := b.State.Conveyor
		tail := c.Tier - 1
		if c.Slots[tail] != nil {
			return false
		}
		v := item
		c.Slots[tail] = &v
		return true

	case b.State.Production != nil:
		return acceptProduction(ctx, b, item)

	case b.State.Terminal != nil:
		b.State.Terminal.Buffer[item]++
		return true

	case b.State.Storage != nil:
		b.State.Storage.Inserted[item]++
		return true

	case b.State.Conduit != nil:
		if enteredFrom != facing.Opposite() || b.State.Conduit.Held != nil {
			return false
		}
		v := item
		b.State.Conduit.Held = &v
		return true

	case b.State.Power != nil && b.Kind == store.KindBioGenerator:
		return acceptFuel(b, item)

	case b.State.DroneBay != nil:
		if _, isFuel := fuelValueTicks[item]; !isFuel {
			return false
		}
		b.State.DroneBay.ReserveFuel++
		return true

	case b.State.Router != nil:
		return acceptRouter(b.State.Router, facing, enteredFrom, travelDir, item)
	}
	return false
}

// acceptRouter places an incoming item into the right router slot based
// on which side it entered through.
func acceptRouter(r *store.RouterState, facing, enteredFrom, travelDir geometry.Direction, item items.Kind) bool {
	switch r.Router {
	case store.RouterSplitter, store.RouterBalancer,
		store.RouterFilteredSplitter, store.RouterOverflowGate:
		// Rear input only.
		if enteredFrom != facing.Opposite() || r.Held != nil {
			return false
		}
		v := item
		r.Held = &v
		return true

	case store.RouterMerger, store.RouterPriorityMerger:
		// HeldL/HeldR always record the physical entry side; the mirror
		// flag is applied when draining (tickMerger).
		left, right := Left(facing), Right(facing)
		switch enteredFrom {
		case left:
			if r.HeldL != nil {
				return false
			}
			v := item
			r.HeldL = &v
			return true
		case right:
			if r.HeldR != nil {
				return false
			}
			v := item
			r.HeldR = &v
			return true
		}
		return false

	case store.RouterCrossover:
		// The two streams share no slot: items travelling on the facing
		// axis use the H slot, the perpendicular stream the V slot.
		onFacingAxis := travelDir == facing || travelDir == facing.Opposite()
		if onFacingAxis {
			if r.HeldH != nil {
				return false
			}
			v := item
			r.HeldH = &v
			r.HeldHDir = int(travelDir)
			return true
		}
		if r.HeldV != nil {
			return false
		}
		v := item
		r.HeldV = &v
		r.HeldVDir = int(travelDir)
		return true
	}
	return false
}
