// Package drones implements the autonomous delivery drone routine: one
// drone per upgraded drone bay, ferrying construction materials from
// storage containers to sites within its cell range.
package drones

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sphericsim/worldcore/internal/behaviors"
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/store"
)

// DronePhase is the delivery state machine phase.
type DronePhase string

const (
	PhaseIdleAtBay       DronePhase = "idle_at_bay"
	PhaseFlyingToStorage DronePhase = "flying_to_storage"
	PhaseFlyingToSite    DronePhase = "flying_to_site"
	PhaseReturning       DronePhase = "returning"
)

// Drone is one delivery drone. Its position is continuous over tiles of
// a single face; range never crosses a seam.
type Drone struct {
	ID          uuid.UUID
	Bay         store.Key
	Pos         store.Key
	Phase       DronePhase
	FuelSeconds float64
	Cargo       map[items.Kind]int
	Storage     store.Key
	Site        store.Key
}

// Fleet tracks every active drone, keyed by bay.
type Fleet struct {
	Drones map[store.Key]*Drone
	bal    *config.DroneBalance
	tickMS int
}

// NewFleet returns an empty fleet.
func NewFleet(bal *config.DroneBalance, tickPeriodMS int) *Fleet {
	return &Fleet{Drones: make(map[store.Key]*Drone), bal: bal, tickMS: tickPeriodMS}
}

// baysSorted returns the active bays in key order.
func (f *Fleet) baysSorted() []store.Key {
	keys := make([]store.Key, 0, len(f.Drones))
	for k := range f.Drones {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Step advances every drone one tick. newID mints deterministic drone
// ids for newly-activated bays.
func (f *Fleet) Step(ctx *behaviors.Context, newID func() uuid.UUID) {
	// Spawn drones for bays that enabled delivery since last tick, and
	// retire drones whose bay vanished.
	for _, key := range ctx.Store.AllBuildingKeysSorted() {
		b, err := ctx.Store.GetBuilding(key)
		if err != nil || b.Kind != store.KindDroneBay || b.Construction != nil {
			continue
		}
		d := b.State.DroneBay
		if d == nil || !d.DeliveryDroneEnabled {
			continue
		}
		if _, ok := f.Drones[key]; !ok {
			f.Drones[key] = &Drone{
				ID:          newID(),
				Bay:         key,
				Pos:         key,
				Phase:       PhaseIdleAtBay,
				FuelSeconds: f.bal.BaseFuelSeconds,
				Cargo:       make(map[items.Kind]int),
			}
		}
	}
	for _, bay := range f.baysSorted() {
		if _, err := ctx.Store.GetBuilding(bay); err != nil {
			delete(f.Drones, bay)
			continue
		}
		f.stepDrone(ctx, f.Drones[bay])
	}
}

// stepDrone advances one drone by one tick.
func (f *Fleet) stepDrone(ctx *behaviors.Context, d *Drone) {
	if d.Phase == PhaseIdleAtBay {
		f.selectTask(ctx, d)
		return
	}

	// Burn fuel; an empty tank loads the bay's next reserve slot, and a
	// dry reserve drops the cargo where the drone is.
	d.FuelSeconds -= float64(f.tickMS) / 1000
	if d.FuelSeconds <= 0 {
		if !f.reload(ctx, d) {
			f.crash(ctx, d)
			return
		}
	}

	switch d.Phase {
	case PhaseFlyingToStorage:
		if f.fly(d, d.Storage) {
			f.loadCargo(ctx, d)
		}
	case PhaseFlyingToSite:
		if f.fly(d, d.Site) {
			f.deliver(ctx, d)
		}
	case PhaseReturning:
		if f.fly(d, d.Bay) {
			d.Phase = PhaseIdleAtBay
		}
	}
}

// fly moves one tile along the Manhattan path, row-first then
// column-first. Reports arrival.
func (f *Fleet) fly(d *Drone, to store.Key) bool {
	switch {
	case d.Pos.Row < to.Row:
		d.Pos.Row++
	case d.Pos.Row > to.Row:
		d.Pos.Row--
	case d.Pos.Col < to.Col:
		d.Pos.Col++
	case d.Pos.Col > to.Col:
		d.Pos.Col--
	}
	return d.Pos == to
}

// reload pulls the next reserve-tank slot from the bay.
func (f *Fleet) reload(ctx *behaviors.Context, d *Drone) bool {
	b, err := ctx.Store.GetBuilding(d.Bay)
	if err != nil || b.State.DroneBay == nil || b.State.DroneBay.ReserveFuel <= 0 {
		return false
	}
	b.State.DroneBay.ReserveFuel--
	d.FuelSeconds += f.bal.BaseFuelSeconds
	ctx.Store.PutBuilding(d.Bay, b)
	return true
}

// crash drops the cargo as ground items at the drone's current tile and
// sends it home empty.
func (f *Fleet) crash(ctx *behaviors.Context, d *Drone) {
	for kind, n := range d.Cargo {
		ctx.Store.GroundAdd(d.Pos, kind, n)
	}
	d.Cargo = make(map[items.Kind]int)
	d.Phase = PhaseIdleAtBay
	d.Pos = d.Bay
	d.FuelSeconds = 0
}

// capacity returns the drone's cargo limit, honouring the bay's cargo
// upgrade.
func (f *Fleet) capacity(ctx *behaviors.Context, d *Drone) int {
	b, err := ctx.Store.GetBuilding(d.Bay)
	if err == nil && b.State.DroneBay != nil && b.State.DroneBay.CargoUpgrade {
		return f.bal.UpgradedCapacity
	}
	return f.bal.BaseCargoCapacity
}

// inRange reports whether a target shares the bay's face and lies
// within the bay's cell range.
func (f *Fleet) inRange(ctx *behaviors.Context, d *Drone, target store.Key) bool {
	if target.Face != d.Bay.Face {
		return false
	}
	cells := f.bal.BaseRangeCells + behaviors.AreaBonus(ctx, d.Bay)
	const cellSize = 16
	a, b := geometry.CellOf(d.Bay, cellSize), geometry.CellOf(target, cellSize)
	dr, dc := a.CRow-b.CRow, a.CCol-b.CCol
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr <= cells && dc <= cells
}

// selectTask finds, at idle, the lexicographically smallest (site,
// storage) pair where the site still needs items the storage holds.
func (f *Fleet) selectTask(ctx *behaviors.Context, d *Drone) {
	keys := ctx.Store.AllBuildingKeysSorted()
	for _, site := range keys {
		sb, err := ctx.Store.GetBuilding(site)
		if err != nil || sb.Construction == nil || !f.inRange(ctx, d, site) {
			continue
		}
		needed := neededItems(sb.Construction)
		if len(needed) == 0 {
			continue
		}
		for _, storage := range keys {
			vb, err := ctx.Store.GetBuilding(storage)
			if err != nil || vb.State.Storage == nil || vb.Construction != nil || !f.inRange(ctx, d, storage) {
				continue
			}
			if firstStocked(vb.State.Storage, needed) == "" {
				continue
			}
			d.Site = site
			d.Storage = storage
			d.Phase = PhaseFlyingToStorage
			return
		}
	}
}

// loadCargo extracts up to capacity of the first needed item from the
// storage container; zero yield (storage vanished) sends the drone
// home.
func (f *Fleet) loadCargo(ctx *behaviors.Context, d *Drone) {
	sb, errSite := ctx.Store.GetBuilding(d.Site)
	vb, errStore := ctx.Store.GetBuilding(d.Storage)
	if errSite != nil || errStore != nil || sb.Construction == nil || vb.State.Storage == nil {
		d.Phase = PhaseReturning
		return
	}
	needed := neededItems(sb.Construction)
	kind := firstStocked(vb.State.Storage, needed)
	if kind == "" {
		d.Phase = PhaseReturning
		return
	}
	take := f.capacity(ctx, d)
	if have := vb.State.Storage.Counts[kind]; take > have {
		take = have
	}
	if want := needed[kind]; take > want {
		take = want
	}
	if take <= 0 {
		d.Phase = PhaseReturning
		return
	}
	vb.State.Storage.Counts[kind] -= take
	if vb.State.Storage.Counts[kind] == 0 {
		delete(vb.State.Storage.Counts, kind)
	}
	ctx.Store.PutBuilding(d.Storage, vb)
	d.Cargo[kind] += take
	d.Phase = PhaseFlyingToSite
}

// deliver drops the cargo into the construction site; surplus the site
// no longer needs lands on the ground beside it.
func (f *Fleet) deliver(ctx *behaviors.Context, d *Drone) {
	sb, err := ctx.Store.GetBuilding(d.Site)
	for kind, n := range d.Cargo {
		for i := 0; i < n; i++ {
			if err == nil && sb.Construction != nil && acceptDelivery(sb.Construction, kind) {
				continue
			}
			ctx.Store.GroundAdd(d.Pos, kind, 1)
		}
	}
	if err == nil {
		if sb.Construction != nil && sb.Construction.Complete() {
			behaviors.FinishConstruction(ctx, sb)
		}
		ctx.Store.PutBuilding(d.Site, sb)
	}
	d.Cargo = make(map[items.Kind]int)
	d.Phase = PhaseReturning
}

func acceptDelivery(c *store.ConstructionState, kind items.Kind) bool {
	need, ok := c.Required[kind]
	if !ok || c.Delivered[kind] >= need {
		return false
	}
	if c.Delivered == nil {
		c.Delivered = make(map[items.Kind]uint16)
	}
	c.Delivered[kind]++
	return true
}

// neededItems returns the outstanding requirement per item kind.
func neededItems(c *store.ConstructionState) map[items.Kind]int {
	out := make(map[items.Kind]int)
	for kind, need := range c.Required {
		if got := c.Delivered[kind]; got < need {
			out[kind] = int(need - got)
		}
	}
	return out
}

// firstStocked returns the lexicographically first needed kind the
// storage actually holds.
func firstStocked(st *store.StorageState, needed map[items.Kind]int) items.Kind {
	kinds := make([]items.Kind, 0, len(needed))
	for k := range needed {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		if st.Counts[k] > 0 {
			return k
		}
	}
	return ""
}
