package command

import (
	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/behaviors"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// Context is everything a command handler may touch.
type Context struct {
	Store     *store.Store
	Geom      *geometry.Table
	Balance   *config.BalanceConfig
	Territory *entities.Territory
	Research  *entities.Research
	Board     *entities.BoardContact

	// OnNewOwner fires the first time a command arrives from an owner id
	// the world hasn't seen; persistence uses it to upsert the player row.
	OnNewOwner func(uuid.UUID)
	seenOwners map[uuid.UUID]bool
}

// clearanceRequired gates placement by research tier. Kinds absent from
// the table are tier 0.
var clearanceRequired = map[store.BuildingKind]int{
	store.KindAdvancedSmelter:  1,
	store.KindRefinery:         2,
	store.KindFilteredSplitter: 1,
	store.KindPriorityMerger:   1,
	store.KindCrossover:        1,
	store.KindUndergroundConduit: 2,
	store.KindTransferStation:  3,
	store.KindFabricator:       3,
	store.KindDroneBay:         4,
	store.KindReactorAssembler: 5,
	store.KindDimensionalStab:  6,
	store.KindJurisdictionBeacon: 2,
}

// buildCosts lists the kinds whose placement opens a construction site;
// everything else completes instantly.
var buildCosts = map[store.BuildingKind]map[items.Kind]uint16{
	store.KindReactorAssembler: {items.ItemSteelIngot: 6, items.ItemCircuitBoard: 2},
	store.KindDroneBay:         {items.ItemStructuralBeam: 2, items.ItemCircuitBoard: 2},
	store.KindDimensionalStab:  {items.ItemEnrichedCore: 1, items.ItemStructuralBeam: 4},
	store.KindTransferStation:  {items.ItemCopperIngot: 4, items.ItemIronIngot: 4},
}

// validKinds is the closed placement set.
var validKinds = map[store.BuildingKind]bool{}

func init() {
	for _, k := range []store.BuildingKind{
		store.KindExtractor, store.KindConveyorT1, store.KindConveyorT2, store.KindConveyorT3,
		store.KindSplitter, store.KindMerger, store.KindPriorityMerger, store.KindBalancer,
		store.KindFilteredSplitter, store.KindOverflowGate, store.KindCrossover,
		store.KindUndergroundConduit, store.KindArm, store.KindStorageContainer,
		store.KindSmelter, store.KindAdvancedSmelter, store.KindRefinery,
		store.KindReactorAssembler, store.KindFabricator,
		store.KindSubmissionTerminal, store.KindTradeTerminal,
		store.KindContainmentTrap, store.KindPurificationBeacon, store.KindDimensionalStab,
		store.KindDefenseTurret, store.KindBioGenerator, store.KindShadowPanel,
		store.KindSubstation, store.KindTransferStation, store.KindDroneBay,
		store.KindJurisdictionBeacon, store.KindLamp,
	} {
		validKinds[k] = true
	}
}

// Apply executes one command against the world and returns its typed
// result. Called by the tick processor in enqueue order at phase 0.
func (c *Context) Apply(cmd Command) Result {
	if c.seenOwners == nil {
		c.seenOwners = make(map[uuid.UUID]bool)
	}
	if cmd.Owner != uuid.Nil && !c.seenOwners[cmd.Owner] {
		c.seenOwners[cmd.Owner] = true
		if c.OnNewOwner != nil {
			c.OnNewOwner(cmd.Owner)
		}
	}
	switch cmd.Type {
	case TypePlace:
		return c.place(cmd.Key, cmd.Kind, cmd.Orientation, cmd.Owner)
	case TypePlaceBatch:
		out := Result{Batch: make([]Result, 0, len(cmd.Batch))}
		for _, spec := range cmd.Batch {
			out.Batch = append(out.Batch, c.place(spec.Key, spec.Kind, spec.Orientation, cmd.Owner))
		}
		return out
	case TypeRemove:
		return c.remove(cmd.Key, cmd.Owner)
	case TypeLinkConduit:
		return c.linkConduit(cmd.Key, cmd.Other, cmd.Owner)
	case TypeLinkTrade:
		return c.linkTrade(cmd.Key, cmd.TradeID, cmd.Owner)
	case TypeEject:
		return c.eject(cmd.Key, cmd.Owner)
	case TypeTogglePower:
		return c.togglePower(cmd.Key, cmd.Owner)
	case TypeSelectUpgrade:
		return c.selectUpgrade(cmd.Key, cmd.Upgrade, cmd.Owner)
	case TypeActivateBoardContact:
		return c.activateBoardContact(cmd.Owner)
	}
	return fail(ErrInvalidKind, "unknown command %q", cmd.Type)
}

func (c *Context) place(key store.Key, kind store.BuildingKind, orientation int, owner uuid.UUID) Result {
	n := c.Geom.Size()
	if key.Face < 0 || key.Face >= geometry.FaceCount ||
		key.Row < 0 || key.Row >= n || key.Col < 0 || key.Col >= n ||
		orientation < 0 || orientation > 3 {
		return fail(ErrInvalidTile, "%v", key)
	}
	if !validKinds[kind] {
		return fail(ErrInvalidKind, "%s", kind)
	}
	if c.Store.HasBuilding(key) {
		return fail(ErrTileOccupied, "%v", key)
	}
	tile, err := c.Store.GetTile(key)
	if err != nil {
		return fail(ErrInvalidTile, "%v has no tile", key)
	}
	if kind == store.KindExtractor && tile.Resource == nil {
		return fail(ErrInvalidPlacement, "extractor needs a resource tile")
	}
	if need := clearanceRequired[kind]; c.Research.Clearance(owner) < need {
		return fail(ErrNoClearance, "%s needs clearance %d", kind, need)
	}
	if claimOwner, claimed := c.Territory.OwnerAt(key); claimed && claimOwner != owner {
		return fail(ErrTerritoryViolation, "%v is inside another jurisdiction", key)
	}
	if kind == store.KindJurisdictionBeacon && !c.Territory.CanClaim(key, owner) {
		return fail(ErrTerritoryViolation, "claim would overlap another jurisdiction")
	}

	b := &store.Building{Kind: kind, Orientation: orientation, OwnerID: owner}
	if cost, needsBuild := buildCosts[kind]; needsBuild {
		required := make(map[items.Kind]uint16, len(cost))
		for k, v := range cost {
			required[k] = v
		}
		b.Construction = &store.ConstructionState{
			Required:  required,
			Delivered: make(map[items.Kind]uint16),
		}
	} else {
		b.State = behaviors.InitialState(kind, c.Balance)
	}
	c.Store.PutBuilding(key, b)
	if kind == store.KindJurisdictionBeacon && b.Construction == nil {
		c.Territory.Claim(key, owner)
	}
	return Result{}
}

func (c *Context) remove(key store.Key, owner uuid.UUID) Result {
	b, err := c.Store.GetBuilding(key)
	if err != nil {
		return fail(ErrNoBuilding, "%v", key)
	}
	if b.OwnerID != owner {
		return fail(ErrNotOwner, "%v", key)
	}
	// Held items spill onto the ground so removal never destroys them.
	c.spillHeld(key, b)
	c.Store.RemoveBuilding(key)
	if b.Kind == store.KindJurisdictionBeacon {
		c.Territory.Release(key)
	}
	return Result{}
}

func (c *Context) linkConduit(a, b store.Key, owner uuid.UUID) Result {
	ba, errA := c.Store.GetBuilding(a)
	bb, errB := c.Store.GetBuilding(b)
	if errA != nil || errB != nil {
		return fail(ErrNoBuilding, "conduit pair %v %v", a, b)
	}
	if ba.OwnerID != owner || bb.OwnerID != owner {
		return fail(ErrNotOwner, "conduit pair %v %v", a, b)
	}
	if ba.State.Conduit == nil || bb.State.Conduit == nil {
		return fail(ErrNotConduit, "conduit pair %v %v", a, b)
	}
	if ba.State.Conduit.LinkedTo != nil || bb.State.Conduit.LinkedTo != nil {
		return fail(ErrAlreadyLinked, "conduit pair %v %v", a, b)
	}
	la, lb := b, a
	ba.State.Conduit.LinkedTo = &la
	bb.State.Conduit.LinkedTo = &lb
	c.Store.PutBuilding(a, ba)
	c.Store.PutBuilding(b, bb)
	return Result{}
}

func (c *Context) linkTrade(key store.Key, tradeID uuid.UUID, owner uuid.UUID) Result {
	b, err := c.Store.GetBuilding(key)
	if err != nil {
		return fail(ErrNoBuilding, "%v", key)
	}
	if b.OwnerID != owner {
		return fail(ErrNotOwner, "%v", key)
	}
	if b.Kind != store.KindTradeTerminal || b.State.Terminal == nil {
		return fail(ErrInvalidKind, "%v is not a trade terminal", key)
	}
	id := tradeID
	b.State.Terminal.TradeID = &id
	c.Store.PutBuilding(key, b)
	return Result{}
}

func (c *Context) eject(key store.Key, owner uuid.UUID) Result {
	b, err := c.Store.GetBuilding(key)
	if err != nil {
		return fail(ErrNoBuilding, "%v", key)
	}
	if b.OwnerID != owner {
		return fail(ErrNotOwner, "%v", key)
	}
	c.spillHeld(key, b)
	c.Store.PutBuilding(key, b)
	return Result{}
}

func (c *Context) togglePower(key store.Key, owner uuid.UUID) Result {
	b, err := c.Store.GetBuilding(key)
	if err != nil {
		return fail(ErrNoBuilding, "%v", key)
	}
	if b.OwnerID != owner {
		return fail(ErrNotOwner, "%v", key)
	}
	b.Disabled = !b.Disabled
	c.Store.PutBuilding(key, b)
	return Result{}
}

func (c *Context) selectUpgrade(key store.Key, upgrade string, owner uuid.UUID) Result {
	b, err := c.Store.GetBuilding(key)
	if err != nil {
		return fail(ErrNoBuilding, "%v", key)
	}
	if b.OwnerID != owner {
		return fail(ErrNotOwner, "%v", key)
	}
	switch upgrade {
	case "delivery_drone":
		d := b.State.DroneBay
		if d == nil {
			return fail(ErrInvalidKind, "%v is not a drone bay", key)
		}
		if c.Research.Clearance(owner) < clearanceRequired[store.KindDroneBay] {
			return fail(ErrNoClearance, "delivery drone needs clearance %d", clearanceRequired[store.KindDroneBay])
		}
		if d.DeliveryDroneEnabled {
			return fail(ErrAlreadyPurchased, "delivery drone")
		}
		d.DeliveryDroneEnabled = true
		d.Phase = store.DroneBayAccepting
	case "cargo":
		d := b.State.DroneBay
		if d == nil {
			return fail(ErrInvalidKind, "%v is not a drone bay", key)
		}
		if d.CargoUpgrade {
			return fail(ErrAlreadyPurchased, "cargo")
		}
		d.CargoUpgrade = true
	case "stack":
		a := b.State.Arm
		if a == nil {
			return fail(ErrInvalidKind, "%v is not an arm", key)
		}
		if a.StackUpgrade {
			return fail(ErrAlreadyPurchased, "stack")
		}
		a.StackUpgrade = true
	case "dual_filter":
		r := b.State.Router
		if r == nil || r.Router != store.RouterFilteredSplitter {
			return fail(ErrInvalidKind, "%v is not a filtered splitter", key)
		}
		if r.DualFilter {
			return fail(ErrAlreadyPurchased, "dual_filter")
		}
		r.DualFilter = true
	case "mirror":
		r := b.State.Router
		if r == nil || r.Router != store.RouterPriorityMerger {
			return fail(ErrInvalidKind, "%v is not a priority merger", key)
		}
		r.Mirror = !r.Mirror
	default:
		return fail(ErrInvalidKind, "unknown upgrade %q", upgrade)
	}
	c.Store.PutBuilding(key, b)
	return Result{}
}

func (c *Context) activateBoardContact(owner uuid.UUID) Result {
	const requiredClearance = 8
	if c.Research.Clearance(owner) < requiredClearance {
		return fail(ErrNoClearance, "board contact needs clearance %d", requiredClearance)
	}
	c.Board.Active = true
	return Result{}
}

// spillHeld moves every item a building holds onto the ground at its
// tile.
func (c *Context) spillHeld(key store.Key, b *store.Building) {
	drop := func(k *items.Kind) {
		if k != nil {
			c.Store.GroundAdd(key, *k, 1)
		}
	}
	if cs := b.Construction; cs != nil {
		for kind, n := range cs.Delivered {
			c.Store.GroundAdd(key, kind, int(n))
			delete(cs.Delivered, kind)
		}
		return
	}
	st := &b.State
	if p := st.Production; p != nil {
		for slot, ing := range p.Slots {
			c.Store.GroundAdd(key, ing.Item, ing.Qty)
			delete(p.Slots, slot)
		}
		if p.OutputBuffer != nil {
			c.Store.GroundAdd(key, *p.OutputBuffer, 1+p.OutputRemaining)
			p.OutputBuffer = nil
			p.OutputRemaining = 0
		}
		p.Phase = store.PhaseIdle
		p.Progress = 0
	}
	if cv := st.Conveyor; cv != nil {
		for i, s := range cv.Slots {
			drop(s)
			cv.Slots[i] = nil
		}
	}
	if r := st.Router; r != nil {
		drop(r.Held)
		drop(r.HeldL)
		drop(r.HeldR)
		drop(r.HeldH)
		drop(r.HeldV)
		r.Held, r.HeldL, r.HeldR, r.HeldH, r.HeldV = nil, nil, nil, nil, nil
	}
	if cd := st.Conduit; cd != nil {
		drop(cd.Held)
		cd.Held = nil
	}
	if sg := st.Storage; sg != nil {
		for kind, n := range sg.Counts {
			c.Store.GroundAdd(key, kind, n)
		}
		for kind, n := range sg.Inserted {
			c.Store.GroundAdd(key, kind, n)
		}
		sg.Counts = make(map[items.Kind]int)
		sg.Inserted = make(map[items.Kind]int)
	}
	if t := st.Terminal; t != nil {
		for kind, n := range t.Buffer {
			c.Store.GroundAdd(key, kind, n)
		}
		t.Buffer = make(map[items.Kind]int)
	}
	if e := st.Extractor; e != nil {
		drop(e.Output)
		e.Output = nil
	}
	if tu := st.Turret; tu != nil {
		drop(tu.Output)
		tu.Output = nil
	}
}
