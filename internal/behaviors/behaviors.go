// Package behaviors implements the per-building state machines: the
// shared production template, conveyors and routing buildings, arms,
// extractors, and the special buildings (traps, turrets, beacons, power
// producers, drone bays). Behaviors are total functions — they never
// fail, they just make no progress when their preconditions are unmet.
package behaviors

import (
	"github.com/sphericsim/worldcore/internal/config"
	"github.com/sphericsim/worldcore/internal/entities"
	"github.com/sphericsim/worldcore/internal/geometry"
	"github.com/sphericsim/worldcore/internal/items"
	"github.com/sphericsim/worldcore/internal/power"
	"github.com/sphericsim/worldcore/internal/store"
)

// Context carries everything a behavior tick may read. Behaviors mutate
// their own building's state, with a few exceptions: extractors deplete
// the tiles they mine, arms move items between their source and
// destination buildings, traps capture creatures and turrets damage hiss.
// All other cross-building movement happens in the push phase.
type Context struct {
	Store     *store.Store
	Geom      *geometry.Table
	Recipes   *items.RecipeRegistry
	Balance   *config.BalanceConfig
	Tick      uint64
	Power     *power.Table
	Shift     *entities.ShiftCycle
	Creatures *entities.Creatures
	Hiss      *entities.HissSwarm
	Events    *entities.WorldEvents
	Research  *entities.Research
}

// requiresPower lists the kinds that stall entirely without power; every
// other kind keeps working off-grid.
var requiresPower = map[store.BuildingKind]bool{
	store.KindArm:             true,
	store.KindDefenseTurret:   true,
	store.KindContainmentTrap: true,
	store.KindDroneBay:        true,
	store.KindLamp:            true,
}

// RequiresPower reports whether a kind stalls when unpowered.
func RequiresPower(kind store.BuildingKind) bool {
	return requiresPower[kind]
}

// baseRate is the unmodified processing rate in ticks for each
// production kind.
var baseRate = map[store.BuildingKind]int{
	store.KindSmelter:          10,
	store.KindAdvancedSmelter:  12,
	store.KindRefinery:         15,
	store.KindReactorAssembler: 20,
	store.KindFabricator:       12,
}

// requiresCreature lists production kinds that do not tick without an
// assigned creature.
var requiresCreature = map[store.BuildingKind]bool{
	store.KindReactorAssembler: true,
}

// InitialState returns a fresh behaviour state for a completed building
// of the given kind.
func InitialState(kind store.BuildingKind, bal *config.BalanceConfig) store.BehaviorState {
	var st store.BehaviorState
	switch {
	case store.ProductionKinds[kind]:
		st.Production = &store.ProductionState{
			Phase:            store.PhaseIdle,
			Slots:            make(map[int]items.Ingredient),
			RequiresCreature: requiresCreature[kind],
		}
	case store.ConveyorTiers[kind] > 0:
		tier := store.ConveyorTiers[kind]
		st.Conveyor = &store.ConveyorState{Tier: tier, Slots: make([]*items.Kind, tier)}
	default:
		switch kind {
		case store.KindExtractor:
			st.Extractor = &store.ExtractorState{}
		case store.KindSplitter:
			st.Router = &store.RouterState{Router: store.RouterSplitter}
		case store.KindMerger:
			st.Router = &store.RouterState{Router: store.RouterMerger}
		case store.KindPriorityMerger:
			st.Router = &store.RouterState{Router: store.RouterPriorityMerger}
		case store.KindBalancer:
			st.Router = &store.RouterState{Router: store.RouterBalancer}
		case store.KindFilteredSplitter:
			st.Router = &store.RouterState{Router: store.RouterFilteredSplitter}
		case store.KindOverflowGate:
			st.Router = &store.RouterState{Router: store.RouterOverflowGate}
		case store.KindCrossover:
			st.Router = &store.RouterState{Router: store.RouterCrossover}
		case store.KindUndergroundConduit:
			st.Conduit = &store.ConduitState{}
		case store.KindArm:
			st.Arm = &store.ArmState{}
		case store.KindStorageContainer:
			st.Storage = &store.StorageState{
				Counts:   make(map[items.Kind]int),
				Inserted: make(map[items.Kind]int),
			}
		case store.KindSubmissionTerminal, store.KindTradeTerminal:
			st.Terminal = &store.TerminalState{Buffer: make(map[items.Kind]int)}
		case store.KindContainmentTrap:
			st.Trap = &store.TrapState{}
		case store.KindDefenseTurret:
			st.Turret = &store.TurretState{}
		case store.KindBioGenerator:
			st.Power = &store.PowerProducerState{OutputCapacity: 20}
		case store.KindShadowPanel:
			st.Power = &store.PowerProducerState{OutputCapacity: 10}
		case store.KindDroneBay:
			st.DroneBay = &store.DroneBayState{Phase: store.DroneBayIdle}
		case store.KindPurificationBeacon:
			st.Beacon = &store.BeaconState{Radius: bal.Hiss.PurifierRadius}
		case store.KindDimensionalStab:
			st.Beacon = &store.BeaconState{Radius: bal.Hiss.StabilizerRadius}
		case store.KindJurisdictionBeacon:
			st.Beacon = &store.BeaconState{Radius: bal.Territory.BeaconRadius}
		case store.KindLamp:
			st.Beacon = &store.BeaconState{Radius: 4}
		}
	}
	return st
}

// TickResult reports side effects a behavior tick asks the processor to
// carry out beyond the building's own state.
type TickResult struct {
	Changed          bool
	CapturedCreature *entities.WildCreature
	KilledHiss       int
}

// Tick runs one behavior step for the building at key. Buildings under
// construction, disabled buildings, and unpowered power-dependent kinds
// make no progress.
func Tick(ctx *Context, key store.Key, b *store.Building) TickResult {
	var res TickResult
	if b.Construction != nil || b.Disabled {
		return res
	}
	if RequiresPower(b.Kind) && !ctx.Power.IsPowered(key) {
		return res
	}
	switch {
	case store.ProductionKinds[b.Kind]:
		res.Changed = tickProduction(ctx, key, b)
	case b.Kind == store.KindExtractor:
		res.Changed = tickExtractor(ctx, key, b)
	case b.Kind == store.KindArm:
		res.Changed = tickArm(ctx, key, b)
	case b.Kind == store.KindContainmentTrap:
		res.CapturedCreature, res.Changed = tickTrap(ctx, key, b)
	case b.Kind == store.KindDefenseTurret:
		res.KilledHiss = tickTurret(ctx, key, b)
		res.Changed = res.KilledHiss > 0
	case b.Kind == store.KindBioGenerator:
		res.Changed = tickBioGenerator(b)
	case b.Kind == store.KindMerger, b.Kind == store.KindPriorityMerger:
		res.Changed = tickMerger(b)
	case b.Kind == store.KindDroneBay:
		res.Changed = tickDroneBay(b)
	}
	return res
}

// tickBioGenerator burns fuel as a countdown of ticks.
func tickBioGenerator(b *store.Building) bool {
	p := b.State.Power
	if p != nil && p.FuelRemainingTicks > 0 {
		p.FuelRemainingTicks--
		return true
	}
	return false
}

// tickMerger drains a side input into the empty output slot, left
// first. The priority merger's mirror flag swaps which side counts as
// left.
func tickMerger(b *store.Building) bool {
	r := b.State.Router
	if r == nil || r.Held != nil {
		return false
	}
	first, second := &r.HeldL, &r.HeldR
	if r.Router == store.RouterPriorityMerger && r.Mirror {
		first, second = &r.HeldR, &r.HeldL
	}
	switch {
	case *first != nil:
		r.Held, *first = *first, nil
	case *second != nil:
		r.Held, *second = *second, nil
	default:
		return false
	}
	return true
}

// tickDroneBay advances the bay's upgrade-acceptance state machine; the
// delivery routine itself runs in the drone phase.
func tickDroneBay(b *store.Building) bool {
	d := b.State.DroneBay
	if d == nil {
		return false
	}
	if d.Phase == store.DroneBayAccepting && d.DeliveryDroneEnabled {
		d.Phase = store.DroneBayComplete
		return true
	}
	return false
}
